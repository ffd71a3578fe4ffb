package searcherdb

import "github.com/searcherdash/searcherdb-node/metrics"

// Dispatch routes one feed event to the matching attributor. It holds the
// record-set lock for the whole event so each event contributes exactly once,
// whatever the number of in-flight block tasks.
//
// Routing rules, in priority order:
//   - sandwich legs are accounted as non-atomic searcher activity;
//   - swaps carrying the multi-protocol marker are re-tagged uncertain and
//     treated as atomic (multi-hop swaps are heuristically atomic arbitrage),
//     all other swaps are non-atomic;
//   - arb, frontrun, backrun and liquid are atomic.
func (r *MevAnalysis) Dispatch(builder, feeRecipient string, ev MevEvent, fullTx, nextTx *Transaction, transferMap TransferMap, tobBoundary int, blockBaseFee float64, seen map[string]struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.MevType {
	case MevTypeSandwich:
		r.attributeNonAtomic(builder, feeRecipient, ev, fullTx, nextTx, transferMap, tobBoundary, blockBaseFee, seen)
	case MevTypeSwap:
		if ev.Protocol == ProtocolMultiple {
			ev.MevType = MevTypeUncertain
			r.attributeAtomic(builder, ev, fullTx, transferMap, blockBaseFee, seen)
			return
		}
		r.attributeNonAtomic(builder, feeRecipient, ev, fullTx, nextTx, transferMap, tobBoundary, blockBaseFee, seen)
	case MevTypeArb, MevTypeFrontrun, MevTypeBackrun, MevTypeLiquid, MevTypeUncertain:
		r.attributeAtomic(builder, ev, fullTx, transferMap, blockBaseFee, seen)
	default:
		metrics.IncEventsDiscarded()
	}
}
