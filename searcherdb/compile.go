package searcherdb

// ReportOptions tunes the derived views built from a finished analysis.
type ReportOptions struct {
	// CoverageThreshold keeps the minimal set of top searchers covering this
	// share of total orderflow (0 disables the filter).
	CoverageThreshold float64
	// MinBuilderTxs drops builders whose total tx count is at most this.
	MinBuilderTxs float64
}

// Report is the read-only summary handed to the reporting and chart layers.
type Report struct {
	AtomicBlockAgg     SortedAgg `json:"atomic_block_agg"`
	AtomicTxAgg        SortedAgg `json:"atomic_tx_agg"`
	AtomicProfitAgg    SortedAgg `json:"atomic_profit_agg"`
	AtomicVolAgg       SortedAgg `json:"atomic_vol_agg"`
	AtomicCoinAgg      SortedAgg `json:"atomic_coin_agg"`
	AtomicGasAgg       SortedAgg `json:"atomic_gas_agg"`
	AtomicBribeMap     StatsMap  `json:"atomic_bribe_map"`
	AtomicBribeAgg     SortedAgg `json:"atomic_bribe_agg"`
	NonatomicBlockAgg  SortedAgg `json:"nonatomic_block_agg"`
	NonatomicTxAgg     SortedAgg `json:"nonatomic_tx_agg"`
	NonatomicVolAgg    SortedAgg `json:"nonatomic_vol_agg"`
	NonatomicCoinAgg   SortedAgg `json:"nonatomic_coin_agg"`
	NonatomicGasAgg    SortedAgg `json:"nonatomic_gas_agg"`
	NonatomicBribeMap  Map       `json:"nonatomic_bribe_map"`
	NonatomicBribeAgg  SortedAgg `json:"nonatomic_bribe_agg"`
	TopAtomicMap       SortedMap `json:"top_atomic_map"`
	TopNonatomicMap    SortedMap `json:"top_nonatomic_map"`
	Notable            map[string]map[string]float64 `json:"notable"`
	BuilderMarketShare Agg                           `json:"builder_market_share"`
	Highlighted        []HighlightedPair             `json:"highlighted"`
}

// BuildReport folds the shared maps into sorted aggregates, prunes known
// non-MEV entities, separates dual-mode actors out of the non-atomic view,
// applies the coverage and small-builder filters, and runs the
// notable-relationship detector over the filtered tx-count views. Must only
// be called after the batch's attribution tasks have joined.
func BuildReport(a *MevAnalysis, known *KnownEntities, opts ReportOptions) *Report {
	r := &Report{
		AtomicBlockAgg:    SortAgg(AggregateBlockCount(a.AtomicBlockCount)),
		AtomicTxAgg:       SortAgg(AggregateStatsMap(a.AtomicTxCount)),
		AtomicProfitAgg:   SortAgg(AggregateStatsMap(a.AtomicProfit)),
		AtomicVolAgg:      SortAgg(AggregateStatsMap(a.AtomicVol)),
		AtomicCoinAgg:     SortAgg(AggregateStatsMap(a.AtomicCoinBribe)),
		AtomicGasAgg:      SortAgg(AggregateStatsMap(a.AtomicGasBribe)),
		NonatomicBlockAgg: SortAgg(AggregateBlockCount(a.NonatomicBlockCount)),
		NonatomicTxAgg:    SortAgg(AggregateMap(a.NonatomicTxCount)),
		NonatomicVolAgg:   SortAgg(AggregateMap(a.NonatomicVol)),
		NonatomicCoinAgg:  SortAgg(AggregateMap(a.NonatomicCoinBribe)),
		NonatomicGasAgg:   SortAgg(AggregateMap(a.NonatomicGasBribe)),
	}

	atomicBribeMap, atomicBribeAgg := CombineAtomicBribesInETH(a.AtomicGasBribe, a.AtomicCoinBribe)
	r.AtomicBribeMap = atomicBribeMap
	r.AtomicBribeAgg = SortAgg(atomicBribeAgg)

	nonatomicBribeMap, nonatomicBribeAgg := CombineGasAndCoinBribesInETH(a.NonatomicGasBribe, a.NonatomicCoinBribe)
	r.NonatomicBribeMap = nonatomicBribeMap
	r.NonatomicBribeAgg = SortAgg(nonatomicBribeAgg)

	atomicMap := FlattenStatsMap(a.AtomicTxCount)
	atomicAgg := AggregateMap(atomicMap)
	atomicMap, atomicAgg = PruneKnownEntities(atomicMap, atomicAgg, known)

	nonatomicMap := copyMap(a.NonatomicTxCount)
	nonatomicAgg := AggregateMap(nonatomicMap)
	nonatomicMap, nonatomicAgg = PruneKnownEntities(nonatomicMap, nonatomicAgg, known)
	nonatomicMap, nonatomicAgg = RemoveAtomicFromMapAndAgg(nonatomicMap, nonatomicAgg, atomicAgg)

	if opts.CoverageThreshold > 0 {
		atomicMap, atomicAgg = MapAndAggInRange(atomicMap, atomicAgg, opts.CoverageThreshold)
		nonatomicMap, nonatomicAgg = MapAndAggInRange(nonatomicMap, nonatomicAgg, opts.CoverageThreshold)
	}
	if opts.MinBuilderTxs > 0 {
		atomicMap, _ = RemoveSmallBuilders(atomicMap, atomicAgg, opts.MinBuilderTxs)
		nonatomicMap, _ = RemoveSmallBuilders(nonatomicMap, nonatomicAgg, opts.MinBuilderTxs)
	}
	r.TopAtomicMap = SortMap(atomicMap)
	r.TopNonatomicMap = SortMap(nonatomicMap)

	merged := copyMap(atomicMap)
	for builder, searchers := range nonatomicMap {
		for searcher, v := range searchers {
			merged.bump(builder, searcher, v)
		}
	}
	r.Notable, r.BuilderMarketShare, r.Highlighted = FindNotable(merged)

	return r
}
