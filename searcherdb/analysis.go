package searcherdb

import (
	"context"
	"math"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/searcherdash/searcherdb-node/metrics"
)

// DefaultWorkers matches the thread-pool width used for batch attribution.
const DefaultWorkers = 64

// MevFeed supplies the externally classified MEV events for one block.
type MevFeed interface {
	MevBlock(ctx context.Context, blockNumber string) ([]MevEvent, error)
}

// MevAnalysis is the shared record set mutated by every in-flight block task.
// All mutation goes through the mutex; derived views must only be taken after
// the batch's full-barrier join.
type MevAnalysis struct {
	mu sync.Mutex

	AtomicBlockCount Map
	AtomicTxCount    StatsMap
	AtomicProfit     StatsMap
	AtomicVol        StatsMap
	AtomicCoinBribe  StatsMap
	AtomicGasBribe   StatsMap
	AtomicVolList    VolListMap

	NonatomicBlockCount Map
	NonatomicTxCount    Map
	NonatomicVol        Map
	NonatomicCoinBribe  Map
	NonatomicGasBribe   Map
	NonatomicVolList    VolListMap

	// append-only bribe-evidence side channels, keyed by searcher
	CoinbaseBribe map[string][]BribeEvidence
	AfterBribe    map[string][]BribeEvidence
	TobBribe      map[string][]TobEvidence
}

func NewMevAnalysis() *MevAnalysis {
	return &MevAnalysis{
		AtomicBlockCount: make(Map),
		AtomicTxCount:    make(StatsMap),
		AtomicProfit:     make(StatsMap),
		AtomicVol:        make(StatsMap),
		AtomicCoinBribe:  make(StatsMap),
		AtomicGasBribe:   make(StatsMap),
		AtomicVolList:    make(VolListMap),

		NonatomicBlockCount: make(Map),
		NonatomicTxCount:    make(Map),
		NonatomicVol:        make(Map),
		NonatomicCoinBribe:  make(Map),
		NonatomicGasBribe:   make(Map),
		NonatomicVolList:    make(VolListMap),

		CoinbaseBribe: make(map[string][]BribeEvidence),
		AfterBribe:    make(map[string][]BribeEvidence),
		TobBribe:      make(map[string][]TobEvidence),
	}
}

// Analyzer runs attribution for batches of blocks on a bounded worker pool.
type Analyzer struct {
	log      *zap.Logger
	feed     MevFeed
	registry *BuilderRegistry
	workers  int
}

func NewAnalyzer(log *zap.Logger, feed MevFeed, registry *BuilderRegistry, workers int) *Analyzer {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Analyzer{
		log:      log,
		feed:     feed,
		registry: registry,
		workers:  workers,
	}
}

// AnalyzeBlocks attributes every feed-flagged transaction in the batch,
// mutating res. One task per block; a failed block logs and contributes
// nothing beyond what it already recorded, without affecting other blocks.
// When AnalyzeBlocks returns, all tasks have joined and res is a stable
// snapshot.
func (a *Analyzer) AnalyzeBlocks(ctx context.Context, blocks map[string]*Block, transfers map[string]TransferMap, res *MevAnalysis) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for blockNumber, block := range blocks {
		blockNumber, block := blockNumber, block
		g.Go(func() error {
			if err := a.analyzeBlock(ctx, blockNumber, block, transfers[blockNumber], res); err != nil {
				metrics.IncBlocksFailed()
				a.log.Warn("Failed to analyze block",
					zap.String("block", blockNumber), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// topOfBlockBoundary is the index marking the first ~10% of the block's
// transactions, ceil(total * 0.1).
func topOfBlockBoundary(totalTxs int) int {
	return int(math.Ceil(float64(totalTxs) * 0.1))
}

func (a *Analyzer) analyzeBlock(ctx context.Context, blockNumber string, block *Block, transferMap TransferMap, res *MevAnalysis) error {
	if block == nil || len(block.Transactions) == 0 {
		a.log.Debug("Skipping block",
			zap.String("block", blockNumber), zap.Error(ErrEmptyBlock))
		return nil
	}

	totalTxs := len(block.Transactions)
	builder := a.registry.Resolve(DecodeExtraData(block.ExtraData), block.FeeRecipient)
	boundary := topOfBlockBoundary(totalTxs)
	if transferMap == nil {
		transferMap = TransferMap{}
	}

	res.addBlock(builder)
	metrics.IncBlocksAnalyzed()

	events, err := a.feed.MevBlock(ctx, blockNumber)
	if err != nil {
		// the block keeps its block-count increment but contributes no
		// per-transaction attribution
		metrics.IncFeedErrors()
		return err
	}

	seen := make(map[string]struct{})
	for _, ev := range events {
		if ev.TxIndex < 0 || ev.TxIndex >= totalTxs {
			a.log.Warn("Skipping event",
				zap.String("block", blockNumber), zap.Int("txIndex", ev.TxIndex),
				zap.Error(ErrTxIndexOutOfRange))
			continue
		}
		fullTx := &block.Transactions[ev.TxIndex]
		var nextTx *Transaction
		if ev.TxIndex+1 < totalTxs {
			nextTx = &block.Transactions[ev.TxIndex+1]
		}
		res.Dispatch(builder, block.FeeRecipient, ev, fullTx, nextTx, transferMap, boundary, block.BaseFeePerGas, seen)
	}
	return nil
}

// addBlock counts the block once for the builder in both domains.
func (r *MevAnalysis) addBlock(builder string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.AtomicBlockCount.bump(builder, BlockTotalKey, 1)
	r.NonatomicBlockCount.bump(builder, BlockTotalKey, 1)
}

// countBlockOnce increments the per-builder block-count metric for the
// searcher at most once per block, whatever the number of qualifying events.
func countBlockOnce(m Map, builder, searcher string, seen map[string]struct{}) {
	if _, ok := seen[searcher]; ok {
		return
	}
	m.bump(builder, searcher, 1)
	seen[searcher] = struct{}{}
}

// priorityFee is the tip over base fee actually paid for the transaction,
// denominated in wei.
func priorityFee(tx *Transaction, blockBaseFee float64) float64 {
	return tx.GasUsed*tx.GasPrice - tx.GasUsed*blockBaseFee
}
