package searcherdb

import (
	"testing"

	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"
)

func TestAggregateMapConsistency(t *testing.T) {
	m := Map{
		"b1": {"s1": 3, "s2": 2},
		"b2": {"s1": 4},
	}
	agg := AggregateMap(m)
	require.Equal(t, Agg{"s1": 7, "s2": 2}, agg)
}

func TestAggregateBlockCountSkipsTotalRow(t *testing.T) {
	m := Map{
		"b1": {BlockTotalKey: 100, "s1": 3},
		"b2": {BlockTotalKey: 50, "s1": 1},
	}
	require.Equal(t, Agg{"s1": 4}, AggregateBlockCount(m))
}

func TestAggregateAndFlattenStatsMap(t *testing.T) {
	m := StatsMap{
		"b1": {"s1": {Total: 5, Arb: 3, Backrun: 2}},
		"b2": {"s1": {Total: 1, Liquid: 1}, "s2": {Total: 2, Frontrun: 2}},
	}
	require.Equal(t, Agg{"s1": 6, "s2": 2}, AggregateStatsMap(m))
	require.Equal(t, Map{
		"b1": {"s1": 5},
		"b2": {"s1": 1, "s2": 2},
	}, FlattenStatsMap(m))
}

func TestSortAggDeterministic(t *testing.T) {
	agg := Agg{"c": 5, "a": 10, "b": 5, "d": 1}
	expected := SortedAgg{
		{Searcher: "a", Value: 10},
		{Searcher: "b", Value: 5},
		{Searcher: "c", Value: 5},
		{Searcher: "d", Value: 1},
	}
	for i := 0; i < 10; i++ {
		require.Equal(t, expected, SortAgg(agg))
	}
}

func TestSortMapOrdersBuildersByTotal(t *testing.T) {
	m := Map{
		"small": {"s1": 1},
		"big":   {"s1": 5, "s2": 5},
		"tied":  {"s3": 1},
	}
	sorted := SortMap(m)
	require.Len(t, sorted, 3)
	require.Equal(t, "big", sorted[0].Builder)
	require.Equal(t, 10.0, sorted[0].Total)
	// equal totals break ties by name
	require.Equal(t, "small", sorted[1].Builder)
	require.Equal(t, "tied", sorted[2].Builder)
}

func TestAggInRangeMinimalCoveringSet(t *testing.T) {
	agg := Agg{"a": 50, "b": 30, "c": 15, "d": 5}

	require.Equal(t, Agg{"a": 50, "b": 30}, AggInRange(agg, 0.5))
	require.Equal(t, Agg{"a": 50, "b": 30, "c": 15}, AggInRange(agg, 0.9))
	require.Equal(t, agg, AggInRange(agg, 1.0))
}

func TestMapAndAggInRangeFiltersBothViews(t *testing.T) {
	m := Map{
		"b1": {"a": 30, "c": 10, "d": 5},
		"b2": {"a": 20, "b": 30, "c": 5},
	}
	agg := AggregateMap(m)

	outMap, outAgg := MapAndAggInRange(m, agg, 0.5)
	require.Equal(t, Agg{"a": 50, "b": 30}, outAgg)
	require.Equal(t, Map{
		"b1": {"a": 30},
		"b2": {"a": 20, "b": 30},
	}, outMap)
}

func TestPruneKnownEntities(t *testing.T) {
	known := NewKnownEntities()
	router := "0x7a250d5630b4cf539739df2c5dacb4c659f2488d"
	m := Map{
		"b1": {router: 100, "0xbot": 5},
		"b2": {router: 50},
	}
	agg := AggregateMap(m)

	outMap, outAgg := PruneKnownEntities(m, agg, known)
	require.Equal(t, Map{"b1": {"0xbot": 5}}, outMap)
	require.Equal(t, Agg{"0xbot": 5}, outAgg)
}

func TestRemoveAtomicFromMapAndAgg(t *testing.T) {
	m := Map{"b1": {"dual": 10, "pure": 3}}
	agg := AggregateMap(m)
	atomicAgg := Agg{"dual": 99}

	outMap, outAgg := RemoveAtomicFromMapAndAgg(m, agg, atomicAgg)
	require.Equal(t, Map{"b1": {"pure": 3}}, outMap)
	require.Equal(t, Agg{"pure": 3}, outAgg)
}

func TestRemoveSmallBuildersKeepsViewsConsistent(t *testing.T) {
	m := Map{
		"big":   {"s1": 40, "s2": 10},
		"small": {"s1": 2, "s3": 1},
	}
	agg := AggregateMap(m)

	outMap, outAgg := RemoveSmallBuilders(m, agg, 5)
	require.NotContains(t, outMap, "small")
	require.Contains(t, outMap, "big")
	// dropped contributions are subtracted, s3 disappears entirely
	require.Equal(t, Agg{"s1": 40, "s2": 10}, outAgg)
	require.Equal(t, AggregateMap(outMap), outAgg)
}

func TestCombineGasAndCoinBribesInETH(t *testing.T) {
	gas := Map{"b1": {"s1": 2 * params.Ether}}
	coin := Map{"b1": {"s1": 0.5}, "b2": {"s2": 1}}

	combined, agg := CombineGasAndCoinBribesInETH(gas, coin)
	require.InDelta(t, 2.5, combined["b1"]["s1"], 1e-9)
	require.Equal(t, 1.0, combined["b2"]["s2"])
	require.InDelta(t, 2.5, agg["s1"], 1e-9)
}

func TestCombineAtomicBribesInETH(t *testing.T) {
	gas := StatsMap{"b1": {"s1": {Total: 3 * params.Ether, Arb: 2 * params.Ether, Liquid: params.Ether}}}
	coin := StatsMap{"b1": {"s1": {Total: 1, Arb: 1}}}

	combined, agg := CombineAtomicBribesInETH(gas, coin)
	s := combined["b1"]["s1"]
	require.InDelta(t, 4.0, s.Total, 1e-9)
	require.InDelta(t, 3.0, s.Arb, 1e-9)
	require.InDelta(t, 1.0, s.Liquid, 1e-9)
	require.InDelta(t, 4.0, agg["s1"], 1e-9)
}

func TestBuildReportEndToEnd(t *testing.T) {
	a := NewMevAnalysis()
	a.AtomicBlockCount.bump("b1", BlockTotalKey, 2)
	a.AtomicTxCount.stats("b1", "0xarb").addWithTotal(MevTypeArb, 6)
	a.AtomicProfit.stats("b1", "0xarb").addWithTotal(MevTypeArb, 120)
	a.NonatomicBlockCount.bump("b1", BlockTotalKey, 2)
	a.NonatomicTxCount.bump("b1", "0xcex", 20)
	a.NonatomicTxCount.bump("b1", "0xarb", 4) // dual-mode actor
	a.NonatomicGasBribe.bump("b1", "0xcex", 2*params.Ether)
	a.NonatomicCoinBribe.bump("b1", "0xcex", 0.5)

	report := BuildReport(a, NewKnownEntities(), ReportOptions{})

	require.Equal(t, SortedAgg{{Searcher: "0xarb", Value: 6}}, report.AtomicTxAgg)
	require.Equal(t, SortedAgg{{Searcher: "0xarb", Value: 120}}, report.AtomicProfitAgg)
	require.InDelta(t, 2.5, report.NonatomicBribeAgg[0].Value, 1e-9)

	// the dual-mode actor is removed from the filtered non-atomic view only
	require.Len(t, report.TopNonatomicMap, 1)
	require.Equal(t, SortedAgg{{Searcher: "0xcex", Value: 20}}, report.TopNonatomicMap[0].Searchers)
	require.Equal(t, SortedAgg{{Searcher: "0xcex", Value: 20}, {Searcher: "0xarb", Value: 4}}, report.NonatomicTxAgg)
}
