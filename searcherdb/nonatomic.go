package searcherdb

import (
	"strings"

	"github.com/ethereum/go-ethereum/params"

	"github.com/searcherdash/searcherdb-node/metrics"
)

// attributeNonAtomic applies the tiered bribe heuristic to one directional
// swap or sandwich leg. The tiers are evaluated in fixed order and the first
// match wins; a swap matching none of them is not counted as
// MEV-for-builder activity at all. Caller holds the record-set lock.
func (r *MevAnalysis) attributeNonAtomic(builder, feeRecipient string, ev MevEvent, fullTx, nextTx *Transaction, transferMap TransferMap, tobBoundary int, blockBaseFee float64, seen map[string]struct{}) {
	volume := usdOrZero(ev.UserSwapVolumeUSD)
	addrTo := strings.ToLower(ev.AddressTo)
	addrFrom := strings.ToLower(ev.AddressFrom)

	switch {
	case hasTransfer(transferMap, fullTx.Hash):
		// tier 1: the coinbase-transfer trail is the strongest evidence of
		// who paid, so the searcher is the transfer sender, not the swap's
		// raw counterparty
		transfer := transferMap[fullTx.Hash]
		searcher := strings.ToLower(transfer.From)
		r.NonatomicTxCount.bump(builder, searcher, 1)
		r.NonatomicVol.bump(builder, searcher, volume)
		r.NonatomicCoinBribe.bump(builder, searcher, transfer.Value)
		r.NonatomicGasBribe.bump(builder, searcher, priorityFee(fullTx, blockBaseFee))
		r.NonatomicVolList.appendVol(builder, searcher, volume)
		r.CoinbaseBribe[searcher] = append(r.CoinbaseBribe[searcher], BribeEvidence{
			Hash:    fullTx.Hash,
			Builder: builder,
			Bribe:   transfer.Value,
		})
		countBlockOnce(r.NonatomicBlockCount, builder, searcher, seen)

	case followedByTransferToBuilder(feeRecipient, fullTx, nextTx):
		// tier 2: swap, then pay the builder directly in the next tx; the
		// payer is an EOA and the bribe is the trailing transfer's value
		bribe := nextTx.Value / params.Ether
		r.NonatomicTxCount.bump(builder, addrFrom, 1)
		r.NonatomicVol.bump(builder, addrFrom, volume)
		r.NonatomicCoinBribe.bump(builder, addrFrom, bribe)
		r.NonatomicVolList.appendVol(builder, addrFrom, volume)
		r.AfterBribe[addrFrom] = append(r.AfterBribe[addrFrom], BribeEvidence{
			Hash:    fullTx.Hash,
			Builder: builder,
			Bribe:   bribe,
		})
		countBlockOnce(r.NonatomicBlockCount, builder, addrFrom, seen)

	case ev.TxIndex <= tobBoundary:
		// tier 3: privileged placement in the first ~10% of the block; the
		// gas tip is the implicit bribe
		r.NonatomicTxCount.bump(builder, addrTo, 1)
		r.NonatomicVol.bump(builder, addrTo, volume)
		r.NonatomicGasBribe.bump(builder, addrTo, priorityFee(fullTx, blockBaseFee))
		r.NonatomicVolList.appendVol(builder, addrTo, volume)
		r.TobBribe[addrTo] = append(r.TobBribe[addrTo], TobEvidence{
			Hash:     fullTx.Hash,
			Builder:  builder,
			Index:    ev.TxIndex,
			GasPrice: fullTx.GasPrice,
			Gas:      fullTx.Gas,
		})
		countBlockOnce(r.NonatomicBlockCount, builder, addrTo, seen)

	default:
		return
	}
	metrics.IncNonatomicEvents()
}

func hasTransfer(transferMap TransferMap, hash string) bool {
	_, ok := transferMap[hash]
	return ok
}

// followedByTransferToBuilder reports the two-transaction pattern where the
// swap's sender pays the block's fee recipient in the very next transaction.
func followedByTransferToBuilder(feeRecipient string, cur, next *Transaction) bool {
	if next == nil {
		return false
	}
	return strings.EqualFold(next.From, cur.From) && strings.EqualFold(next.To, feeRecipient)
}
