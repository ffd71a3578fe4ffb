package searcherdb

import (
	"testing"

	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"
)

func TestNonAtomicCoinbaseTransferTier(t *testing.T) {
	res := NewMevAnalysis()
	tx := &Transaction{Hash: "0xswap", From: "0xeoa", GasPrice: 2e9, GasUsed: 100_000}
	ev := MevEvent{MevType: MevTypeSwap, TxIndex: 50, AddressFrom: "0xEOA", AddressTo: "0xRouter", UserSwapVolumeUSD: f64(1200)}
	transfers := TransferMap{"0xswap": {From: "0xPayer", To: "0xfee", Value: 0.4}}

	dispatchOne(res, ev, tx, nil, transfers)

	// the transfer sender is the searcher of record, not the swap counterparty
	require.Equal(t, 1.0, res.NonatomicTxCount["builder"]["0xpayer"])
	require.Equal(t, 1200.0, res.NonatomicVol["builder"]["0xpayer"])
	require.Equal(t, 0.4, res.NonatomicCoinBribe["builder"]["0xpayer"])
	require.Equal(t, 1e14, res.NonatomicGasBribe["builder"]["0xpayer"])
	require.Equal(t, 1.0, res.NonatomicBlockCount["builder"]["0xpayer"])

	require.Len(t, res.CoinbaseBribe["0xpayer"], 1)
	require.Equal(t, BribeEvidence{Hash: "0xswap", Builder: "builder", Bribe: 0.4}, res.CoinbaseBribe["0xpayer"][0])
}

func TestNonAtomicTrailingTransferTier(t *testing.T) {
	res := NewMevAnalysis()
	tx := &Transaction{Index: 50, Hash: "0xswap", From: "0xEOA", GasPrice: 2e9, GasUsed: 100_000}
	next := &Transaction{Index: 51, Hash: "0xpay", From: "0xeoa", To: "0xFee", Value: 2 * params.Ether}
	ev := MevEvent{MevType: MevTypeSwap, TxIndex: 50, AddressFrom: "0xEOA", AddressTo: "0xRouter", UserSwapVolumeUSD: f64(300)}

	dispatchOne(res, ev, tx, next, nil)

	require.Equal(t, 1.0, res.NonatomicTxCount["builder"]["0xeoa"])
	require.Equal(t, 2.0, res.NonatomicCoinBribe["builder"]["0xeoa"])
	// trailing transfer carries no gas-tip attribution
	require.Empty(t, res.NonatomicGasBribe)

	require.Len(t, res.AfterBribe["0xeoa"], 1)
	require.Equal(t, 2.0, res.AfterBribe["0xeoa"][0].Bribe)
}

func TestNonAtomicTopOfBlockTier(t *testing.T) {
	res := NewMevAnalysis()
	tx := &Transaction{Index: 2, Hash: "0xswap", From: "0xeoa", Gas: 300_000, GasPrice: 5e9, GasUsed: 100_000}
	ev := MevEvent{MevType: MevTypeSwap, TxIndex: 2, AddressFrom: "0xEOA", AddressTo: "0xCexDex", UserSwapVolumeUSD: f64(9000)}

	// boundary is 2, index 2 qualifies
	dispatchOne(res, ev, tx, nil, nil)

	require.Equal(t, 1.0, res.NonatomicTxCount["builder"]["0xcexdex"])
	require.Equal(t, 9000.0, res.NonatomicVol["builder"]["0xcexdex"])
	require.Equal(t, 4e14, res.NonatomicGasBribe["builder"]["0xcexdex"])
	require.Empty(t, res.NonatomicCoinBribe)

	require.Len(t, res.TobBribe["0xcexdex"], 1)
	evd := res.TobBribe["0xcexdex"][0]
	require.Equal(t, TobEvidence{Hash: "0xswap", Builder: "builder", Index: 2, GasPrice: 5e9, Gas: 300_000}, evd)
}

func TestNonAtomicNoTierMatchesNothingCounted(t *testing.T) {
	res := NewMevAnalysis()
	tx := &Transaction{Index: 80, Hash: "0xswap", From: "0xeoa", GasPrice: 2e9, GasUsed: 100_000}
	ev := MevEvent{MevType: MevTypeSwap, TxIndex: 80, AddressFrom: "0xEOA", AddressTo: "0xRouter", UserSwapVolumeUSD: f64(100)}

	dispatchOne(res, ev, tx, nil, nil)

	require.Empty(t, res.NonatomicTxCount)
	require.Empty(t, res.NonatomicVol)
	require.Empty(t, res.NonatomicBlockCount)
}

func TestNonAtomicTiersAreExclusiveFirstMatchWins(t *testing.T) {
	res := NewMevAnalysis()
	// qualifies for all three tiers at once
	tx := &Transaction{Index: 0, Hash: "0xswap", From: "0xEOA", GasPrice: 2e9, GasUsed: 100_000}
	next := &Transaction{Index: 1, Hash: "0xpay", From: "0xEOA", To: "0xFee", Value: params.Ether}
	ev := MevEvent{MevType: MevTypeSwap, TxIndex: 0, AddressFrom: "0xEOA", AddressTo: "0xRouter"}
	transfers := TransferMap{"0xswap": {From: "0xpayer", To: "0xfee", Value: 0.1}}

	dispatchOne(res, ev, tx, next, transfers)

	// only the coinbase-transfer tier fires
	require.Len(t, res.CoinbaseBribe, 1)
	require.Empty(t, res.AfterBribe)
	require.Empty(t, res.TobBribe)
	require.Equal(t, 1.0, res.NonatomicTxCount["builder"]["0xpayer"])
}

func TestFollowedByTransferToBuilder(t *testing.T) {
	cur := &Transaction{From: "0xAbc"}
	require.False(t, followedByTransferToBuilder("0xFee", cur, nil))
	require.True(t, followedByTransferToBuilder("0xFee", cur, &Transaction{From: "0xabc", To: "0xfee"}))
	require.False(t, followedByTransferToBuilder("0xFee", cur, &Transaction{From: "0xother", To: "0xfee"}))
	require.False(t, followedByTransferToBuilder("0xFee", cur, &Transaction{From: "0xabc", To: "0xelse"}))
}
