package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/flashbots/go-utils/cli"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/searcherdash/searcherdb-node/blockfetch"
	"github.com/searcherdash/searcherdb-node/searcherdb"
	"github.com/searcherdash/searcherdb-node/zeromev"
)

var version = "dev" // is set during build process

func main() {
	// .env is optional, flags and env vars always win
	_ = godotenv.Load()

	var (
		defaultDebug             = os.Getenv("DEBUG") == "1"
		defaultLogProd           = os.Getenv("LOG_PROD") == "1"
		defaultLogService        = os.Getenv("LOG_SERVICE")
		defaultMetricsPort       = cli.GetEnv("METRICS_PORT", "8088")
		defaultRPCEndpoint       = cli.GetEnv("RPC_ENDPOINT", "http://127.0.0.1:8545")
		defaultFeedEndpoint      = cli.GetEnv("MEV_FEED_ENDPOINT", zeromev.DefaultBaseURL)
		defaultFeedRateLimit     = cli.GetEnv("MEV_FEED_RATE_LIMIT", "5")
		defaultRedisEndpoint     = cli.GetEnv("REDIS_ENDPOINT", "")
		defaultPostgresDSN       = cli.GetEnv("POSTGRES_DSN", "")
		defaultStartBlock        = cli.GetEnv("START_BLOCK", "0")
		defaultEndBlock          = cli.GetEnv("END_BLOCK", "0")
		defaultWorkers           = cli.GetEnv("WORKERS", strconv.Itoa(searcherdb.DefaultWorkers))
		defaultBuildersConfig    = cli.GetEnv("BUILDERS_CONFIG", "")
		defaultEntitiesConfig    = cli.GetEnv("KNOWN_ENTITIES_CONFIG", "")
		defaultOutDir            = cli.GetEnv("OUT_DIR", "out")
		defaultCoverageThreshold = cli.GetEnv("COVERAGE_THRESHOLD", "0.99")
		defaultMinBuilderTxs     = cli.GetEnv("MIN_BUILDER_TXS", "10")

		debugPtr             = flag.Bool("debug", defaultDebug, "print debug output")
		logProdPtr           = flag.Bool("log-prod", defaultLogProd, "log in production mode (json)")
		logServicePtr        = flag.String("log-service", defaultLogService, "'service' tag to logs")
		metricsPortPtr       = flag.String("metrics-port", defaultMetricsPort, "metrics port to listen on, empty to disable")
		rpcPtr               = flag.String("rpc", defaultRPCEndpoint, "execution client json-rpc endpoint (alchemy_getAssetTransfers capable)")
		feedPtr              = flag.String("mev-feed", defaultFeedEndpoint, "mev classification feed base url")
		feedRateLimitPtr     = flag.String("mev-feed-rate-limit", defaultFeedRateLimit, "mev feed rate limit (calls per second)")
		redisPtr             = flag.String("redis", defaultRedisEndpoint, "redis url for the feed cache, empty for in-memory")
		postgresDSNPtr       = flag.String("postgres-dsn", defaultPostgresDSN, "postgres dsn, empty to skip persistence")
		startBlockPtr        = flag.String("start-block", defaultStartBlock, "first block of the range")
		endBlockPtr          = flag.String("end-block", defaultEndBlock, "last block of the range (inclusive)")
		workersPtr           = flag.String("workers", defaultWorkers, "number of concurrent block attribution workers")
		buildersConfigPtr    = flag.String("builders-config", defaultBuildersConfig, "builder extradata fragments config file")
		entitiesConfigPtr    = flag.String("known-entities-config", defaultEntitiesConfig, "known contracts and labels config file")
		outDirPtr            = flag.String("out", defaultOutDir, "directory for json artifacts")
		coverageThresholdPtr = flag.String("coverage-threshold", defaultCoverageThreshold, "orderflow share kept by the top-searcher filter (0-1, 0 disables)")
		minBuilderTxsPtr     = flag.String("min-builder-txs", defaultMinBuilderTxs, "drop builders with at most this many attributed txs (0 disables)")
	)
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	if *logProdPtr {
		atom := zap.NewAtomicLevel()
		if *debugPtr {
			atom.SetLevel(zap.DebugLevel)
		}

		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		logger = zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.Lock(os.Stdout),
			atom,
		))
	}
	defer func() { _ = logger.Sync() }()
	if *logServicePtr != "" {
		logger = logger.With(zap.String("service", *logServicePtr))
	}

	ctx, ctxCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer ctxCancel()

	logger.Info("Starting searcherdb-node", zap.String("version", version))

	startBlock, err := strconv.ParseUint(*startBlockPtr, 10, 64)
	if err != nil {
		logger.Fatal("Failed to parse start block", zap.Error(err))
	}
	endBlock, err := strconv.ParseUint(*endBlockPtr, 10, 64)
	if err != nil {
		logger.Fatal("Failed to parse end block", zap.Error(err))
	}
	if endBlock < startBlock {
		logger.Fatal("End block is before start block",
			zap.Uint64("start_block", startBlock), zap.Uint64("end_block", endBlock))
	}
	workers, err := strconv.Atoi(*workersPtr)
	if err != nil || workers < 1 {
		logger.Fatal("Workers must be a positive integer", zap.String("workers", *workersPtr))
	}
	feedRateLimit, err := strconv.ParseFloat(*feedRateLimitPtr, 64)
	if err != nil {
		logger.Fatal("Failed to parse mev feed rate limit", zap.Error(err))
	}
	coverageThreshold, err := strconv.ParseFloat(*coverageThresholdPtr, 64)
	if err != nil {
		logger.Fatal("Failed to parse coverage threshold", zap.Error(err))
	}
	minBuilderTxs, err := strconv.ParseFloat(*minBuilderTxsPtr, 64)
	if err != nil {
		logger.Fatal("Failed to parse min builder txs", zap.Error(err))
	}

	if *metricsPortPtr != "" {
		go func() {
			metricsMux := http.NewServeMux()
			metricsMux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
				metrics.WritePrometheus(w, true)
			})
			metricsMux.Handle("/debug/pprof/", http.HandlerFunc(pprof.Index))

			metricsServer := &http.Server{
				Addr:              fmt.Sprintf("0.0.0.0:%s", *metricsPortPtr),
				ReadHeaderTimeout: 5 * time.Second,
				Handler:           metricsMux,
			}
			if err := metricsServer.ListenAndServe(); err != nil {
				logger.Error("Metrics server stopped", zap.Error(err))
			}
		}()
	}

	registry := searcherdb.NewBuilderRegistry()
	if *buildersConfigPtr != "" {
		registry, err = searcherdb.LoadBuilderRegistry(*buildersConfigPtr)
		if err != nil {
			logger.Fatal("Failed to load builders config", zap.Error(err))
		}
	}
	known := searcherdb.NewKnownEntities()
	if *entitiesConfigPtr != "" {
		known, err = searcherdb.LoadKnownEntities(*entitiesConfigPtr)
		if err != nil {
			logger.Fatal("Failed to load known entities config", zap.Error(err))
		}
	}

	var feedCache zeromev.Cache
	if *redisPtr != "" {
		redisOpts, err := redis.ParseURL(*redisPtr)
		if err != nil {
			logger.Fatal("Failed to parse redis url", zap.Error(err))
		}
		// classified blocks are immutable once final, long TTL is safe
		feedCache = zeromev.NewRedisCache(redis.NewClient(redisOpts), 30*24*time.Hour, "mev-feed")
	} else {
		feedCache = zeromev.NewMemoryCache(time.Hour)
	}
	feed := zeromev.NewClient(logger, *feedPtr, feedRateLimit, feedCache)

	fetcher := blockfetch.NewClient(logger, *rpcPtr)

	logger.Info("Fetching blocks",
		zap.Uint64("start_block", startBlock), zap.Uint64("end_block", endBlock))
	blocks, err := fetcher.GetBlocks(ctx, startBlock, endBlock)
	if err != nil {
		logger.Fatal("Failed to fetch blocks", zap.Error(err))
	}
	transfers, err := fetcher.GetInternalTransfers(ctx, blocks)
	if err != nil {
		logger.Fatal("Failed to fetch fee recipient transfers", zap.Error(err))
	}

	analysis := searcherdb.NewMevAnalysis()
	analyzer := searcherdb.NewAnalyzer(logger, feed, registry, workers)
	analyzer.AnalyzeBlocks(ctx, blocks, transfers, analysis)

	report := searcherdb.BuildReport(analysis, known, searcherdb.ReportOptions{
		CoverageThreshold: coverageThreshold,
		MinBuilderTxs:     minBuilderTxs,
	})

	if err := writeArtifacts(*outDirPtr, analysis, report); err != nil {
		logger.Fatal("Failed to write artifacts", zap.Error(err))
	}
	logger.Info("Wrote artifacts", zap.String("dir", *outDirPtr))

	if *postgresDSNPtr != "" {
		if err := persistReport(ctx, *postgresDSNPtr, startBlock, endBlock, report); err != nil {
			logger.Fatal("Failed to persist report", zap.Error(err))
		}
		logger.Info("Persisted report")
	}

	logger.Info("Done",
		zap.Int("blocks", len(blocks)),
		zap.Int("atomic_builders", len(report.AtomicTxAgg)),
		zap.Int("nonatomic_builders", len(report.NonatomicTxAgg)))
}

func writeArtifacts(dir string, analysis *searcherdb.MevAnalysis, report *searcherdb.Report) error {
	artifacts := map[string]any{
		"report.json": report,

		"atomic/block_agg.json":  report.AtomicBlockAgg,
		"atomic/tx_agg.json":     report.AtomicTxAgg,
		"atomic/profit_agg.json": report.AtomicProfitAgg,
		"atomic/vol_agg.json":    report.AtomicVolAgg,
		"atomic/bribe_agg.json":  report.AtomicBribeAgg,
		"atomic/bribe_map.json":  report.AtomicBribeMap,
		"atomic/top_map.json":    report.TopAtomicMap,
		"atomic/vol_list.json":   analysis.AtomicVolList,

		"nonatomic/block_agg.json": report.NonatomicBlockAgg,
		"nonatomic/tx_agg.json":    report.NonatomicTxAgg,
		"nonatomic/vol_agg.json":   report.NonatomicVolAgg,
		"nonatomic/bribe_agg.json": report.NonatomicBribeAgg,
		"nonatomic/bribe_map.json": report.NonatomicBribeMap,
		"nonatomic/top_map.json":   report.TopNonatomicMap,
		"nonatomic/vol_list.json":  analysis.NonatomicVolList,

		"evidence/coinbase_bribe.json": analysis.CoinbaseBribe,
		"evidence/after_bribe.json":    analysis.AfterBribe,
		"evidence/tob_bribe.json":      analysis.TobBribe,

		"notable.json": report.Notable,
	}
	for name, v := range artifacts {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func persistReport(ctx context.Context, dsn string, startBlock, endBlock uint64, report *searcherdb.Report) error {
	backend, err := searcherdb.NewDBBackend(dsn)
	if err != nil {
		return err
	}
	defer backend.Close()

	run, err := backend.InsertRun(ctx, startBlock, endBlock)
	if err != nil {
		return err
	}
	for _, entry := range []struct {
		domain, metric string
		agg            searcherdb.SortedAgg
	}{
		{"atomic", "blocks", report.AtomicBlockAgg},
		{"atomic", "txs", report.AtomicTxAgg},
		{"atomic", "profit", report.AtomicProfitAgg},
		{"atomic", "volume", report.AtomicVolAgg},
		{"atomic", "bribes", report.AtomicBribeAgg},
		{"nonatomic", "blocks", report.NonatomicBlockAgg},
		{"nonatomic", "txs", report.NonatomicTxAgg},
		{"nonatomic", "volume", report.NonatomicVolAgg},
		{"nonatomic", "bribes", report.NonatomicBribeAgg},
	} {
		if err := backend.InsertAgg(ctx, run.ID, entry.domain, entry.metric, entry.agg); err != nil {
			return err
		}
	}
	return nil
}
