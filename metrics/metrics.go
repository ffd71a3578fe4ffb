// Package metrics contains all application-logic metrics
package metrics

import "github.com/VictoriaMetrics/metrics"

var (
	blocksAnalyzed    = metrics.NewCounter("attribution_blocks_analyzed_total")
	blocksFailed      = metrics.NewCounter("attribution_blocks_failed_total")
	atomicEvents      = metrics.NewCounter("attribution_atomic_events_total")
	nonatomicEvents   = metrics.NewCounter("attribution_nonatomic_events_total")
	eventsDiscarded   = metrics.NewCounter("attribution_events_discarded_total")
	feedErrors        = metrics.NewCounter("mev_feed_errors_total")
	feedCacheHits     = metrics.NewCounter("mev_feed_cache_hits_total")
	feedCacheMisses   = metrics.NewCounter("mev_feed_cache_misses_total")
	rpcBatchesFetched = metrics.NewCounter("rpc_block_batches_fetched_total")
)

func IncBlocksAnalyzed() {
	blocksAnalyzed.Inc()
}

func IncBlocksFailed() {
	blocksFailed.Inc()
}

func IncAtomicEvents() {
	atomicEvents.Inc()
}

func IncNonatomicEvents() {
	nonatomicEvents.Inc()
}

func IncEventsDiscarded() {
	eventsDiscarded.Inc()
}

func IncFeedErrors() {
	feedErrors.Inc()
}

func IncFeedCacheHits() {
	feedCacheHits.Inc()
}

func IncFeedCacheMisses() {
	feedCacheMisses.Inc()
}

func IncRPCBatchesFetched() {
	rpcBatchesFetched.Inc()
}
