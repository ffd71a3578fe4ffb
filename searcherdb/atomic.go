package searcherdb

import (
	"strings"

	"github.com/searcherdash/searcherdb-node/metrics"
)

// attributeAtomic updates the per-builder/per-searcher counters for one
// atomic event. Caller holds the record-set lock.
func (r *MevAnalysis) attributeAtomic(builder string, ev MevEvent, fullTx *Transaction, transferMap TransferMap, blockBaseFee float64, seen map[string]struct{}) {
	mevType := ev.MevType
	addrTo := strings.ToLower(ev.AddressTo)
	addrFrom := strings.ToLower(ev.AddressFrom)
	profit := usdOrZero(ev.ExtractorProfitUSD)
	volume := usdOrZero(ev.ExtractorSwapVolumeUSD)

	// a searcher can pay a coinbase transfer and a gas tip on the same tx;
	// the two bribe maps are not mutually exclusive
	if transfer, ok := transferMap[fullTx.Hash]; ok {
		r.AtomicCoinBribe.stats(builder, addrTo).addWithTotal(mevType, transfer.Value)
	}
	r.AtomicGasBribe.stats(builder, addrTo).addWithTotal(mevType, priorityFee(fullTx, blockBaseFee))

	switch mevType {
	case MevTypeArb, MevTypeFrontrun:
		r.AtomicTxCount.stats(builder, addrTo).addWithTotal(mevType, 1)
		r.AtomicProfit.stats(builder, addrTo).addWithTotal(mevType, profit)
		r.AtomicVol.stats(builder, addrTo).addWithTotal(mevType, volume)
		r.AtomicVolList.appendVol(builder, addrTo, volume)
		countBlockOnce(r.AtomicBlockCount, builder, addrTo, seen)

	case MevTypeBackrun:
		// both sandwich legs are separate events; the backrun leg counts
		// toward the total tx count only, its economics stay under the
		// backrun key so the sandwich total is attributed once, on the
		// frontrun leg
		r.AtomicTxCount.stats(builder, addrTo).addWithTotal(mevType, 1)
		r.AtomicProfit.stats(builder, addrTo).add(mevType, profit)
		r.AtomicVol.stats(builder, addrTo).add(mevType, volume)
		r.AtomicVolList.appendVol(builder, addrTo, volume)
		countBlockOnce(r.AtomicBlockCount, builder, addrTo, seen)

	case MevTypeLiquid:
		// liquidations are sent from the liquidator's EOA, not routed
		// through a dedicated contract, so the searcher is address_from
		r.AtomicTxCount.stats(builder, addrFrom).addWithTotal(mevType, 1)
		r.AtomicProfit.stats(builder, addrFrom).addWithTotal(mevType, profit)
		r.AtomicVol.stats(builder, addrFrom).addWithTotal(mevType, volume)
		r.AtomicVolList.appendVol(builder, addrFrom, volume)
		countBlockOnce(r.AtomicBlockCount, builder, addrFrom, seen)

	case MevTypeUncertain:
		// no identified extractor, so the economic frame is the victim's
		// volume rather than a declared extractor volume
		userVolume := usdOrZero(ev.UserSwapVolumeUSD)
		r.AtomicTxCount.stats(builder, addrTo).addWithTotal(mevType, 1)
		r.AtomicVol.stats(builder, addrTo).addWithTotal(mevType, userVolume)
		r.AtomicVolList.appendVol(builder, addrTo, userVolume)
		countBlockOnce(r.AtomicBlockCount, builder, addrTo, seen)

	default:
		return
	}
	metrics.IncAtomicEvents()
}
