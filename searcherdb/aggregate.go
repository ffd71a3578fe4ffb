package searcherdb

import (
	"sort"

	"github.com/ethereum/go-ethereum/params"
)

// AggregateMap sums a map's inner searcher metrics across all builders.
// For every searcher s, the returned aggregate satisfies
// agg[s] == sum over builders of m[builder][s].
func AggregateMap(m Map) Agg {
	agg := make(Agg)
	for _, searchers := range m {
		for searcher, v := range searchers {
			agg[searcher] += v
		}
	}
	return agg
}

// AggregateBlockCount is AggregateMap for block-count maps, skipping each
// builder's reserved total row.
func AggregateBlockCount(m Map) Agg {
	agg := make(Agg)
	for _, searchers := range m {
		for searcher, v := range searchers {
			if searcher == BlockTotalKey {
				continue
			}
			agg[searcher] += v
		}
	}
	return agg
}

// AggregateStatsMap sums the total field of an atomic stats map across all
// builders.
func AggregateStatsMap(m StatsMap) Agg {
	agg := make(Agg)
	for _, searchers := range m {
		for searcher, stats := range searchers {
			agg[searcher] += stats.Total
		}
	}
	return agg
}

// FlattenStatsMap reduces an atomic stats map to a scalar map of totals, so
// the scalar filtering operations apply to both domains.
func FlattenStatsMap(m StatsMap) Map {
	out := make(Map, len(m))
	for builder, searchers := range m {
		inner := make(Agg, len(searchers))
		for searcher, stats := range searchers {
			inner[searcher] = stats.Total
		}
		out[builder] = inner
	}
	return out
}

// SortAgg returns the aggregate ordered by value descending.
func SortAgg(agg Agg) SortedAgg {
	entries := make(SortedAgg, 0, len(agg))
	for searcher, v := range agg {
		entries = append(entries, AggEntry{Searcher: searcher, Value: v})
	}
	sortEntries(entries)
	return entries
}

// SortMap sorts each builder's searchers by value descending, then orders
// builders by their summed totals descending.
func SortMap(m Map) SortedMap {
	out := make(SortedMap, 0, len(m))
	for builder, searchers := range m {
		out = append(out, SortedBuilder{
			Builder:   builder,
			Total:     builderTotal(searchers),
			Searchers: SortAgg(searchers),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Builder < out[j].Builder
	})
	return out
}

// PruneKnownEntities removes searchers that are known common or labeled
// contracts from the map and its aggregate, consistently.
func PruneKnownEntities(m Map, agg Agg, known *KnownEntities) (Map, Agg) {
	outMap := make(Map, len(m))
	for builder, searchers := range m {
		inner := make(Agg)
		for searcher, v := range searchers {
			if known.IsKnown(searcher) {
				continue
			}
			inner[searcher] = v
		}
		if len(inner) > 0 {
			outMap[builder] = inner
		}
	}
	outAgg := make(Agg)
	for searcher, v := range agg {
		if known.IsKnown(searcher) {
			continue
		}
		outAgg[searcher] = v
	}
	return outMap, outAgg
}

// RemoveAtomicFromMapAndAgg removes from the non-atomic view any searcher
// that also appears in the atomic aggregate, so a dual-mode actor is not
// counted twice when the two views are merged.
func RemoveAtomicFromMapAndAgg(m Map, agg Agg, atomicAgg Agg) (Map, Agg) {
	outMap := make(Map, len(m))
	for builder, searchers := range m {
		inner := make(Agg)
		for searcher, v := range searchers {
			if _, ok := atomicAgg[searcher]; ok {
				continue
			}
			inner[searcher] = v
		}
		if len(inner) > 0 {
			outMap[builder] = inner
		}
	}
	outAgg := make(Agg)
	for searcher, v := range agg {
		if _, ok := atomicAgg[searcher]; ok {
			continue
		}
		outAgg[searcher] = v
	}
	return outMap, outAgg
}

// AggInRange returns the minimal covering set of top searchers whose running
// total exceeds threshold * grand total, walking the aggregate in descending
// order and including the searcher that crosses the threshold.
func AggInRange(agg Agg, threshold float64) Agg {
	var total float64
	for _, v := range agg {
		total += v
	}

	out := make(Agg)
	var running float64
	for _, entry := range SortAgg(agg) {
		out[entry.Searcher] = entry.Value
		running += entry.Value
		if running > threshold*total {
			break
		}
	}
	return out
}

// MapAndAggInRange filters the map and aggregate down to the minimal set of
// top searchers covering threshold of the aggregate's total volume.
func MapAndAggInRange(m Map, agg Agg, threshold float64) (Map, Agg) {
	retained := AggInRange(agg, threshold)

	outMap := make(Map, len(m))
	for builder, searchers := range m {
		inner := make(Agg)
		for searcher, v := range searchers {
			if _, ok := retained[searcher]; !ok {
				continue
			}
			inner[searcher] = v
		}
		if len(inner) > 0 {
			outMap[builder] = inner
		}
	}
	return outMap, retained
}

// RemoveSmallBuilders drops every builder whose summed total is at most
// minCount, subtracting the dropped builders' per-searcher contributions
// back out of the aggregate so the two views stay consistent.
func RemoveSmallBuilders(m Map, agg Agg, minCount float64) (Map, Agg) {
	outMap := make(Map, len(m))
	outAgg := copyAgg(agg)
	for builder, searchers := range m {
		if builderTotal(searchers) > minCount {
			outMap[builder] = copyAgg(searchers)
			continue
		}
		for searcher, v := range searchers {
			outAgg[searcher] -= v
			if outAgg[searcher] <= 0 {
				delete(outAgg, searcher)
			}
		}
	}
	return outMap, outAgg
}

// CombineGasAndCoinBribesInETH normalizes gas bribes from wei to ETH, leaves
// coin bribes in ETH, and sums the two maps key-wise into a single bribe map
// plus its derived aggregate.
func CombineGasAndCoinBribesInETH(gasMap, coinMap Map) (Map, Agg) {
	combined := make(Map)
	for builder, searchers := range gasMap {
		for searcher, wei := range searchers {
			combined.bump(builder, searcher, wei/params.Ether)
		}
	}
	for builder, searchers := range coinMap {
		for searcher, eth := range searchers {
			combined.bump(builder, searcher, eth)
		}
	}
	return combined, AggregateMap(combined)
}

// CombineAtomicBribesInETH is CombineGasAndCoinBribesInETH for the atomic
// stats maps, combining every subtype bucket.
func CombineAtomicBribesInETH(gasMap, coinMap StatsMap) (StatsMap, Agg) {
	combined := make(StatsMap)
	for builder, searchers := range gasMap {
		for searcher, s := range searchers {
			c := combined.stats(builder, searcher)
			c.Total += s.Total / params.Ether
			c.Arb += s.Arb / params.Ether
			c.Frontrun += s.Frontrun / params.Ether
			c.Backrun += s.Backrun / params.Ether
			c.Liquid += s.Liquid / params.Ether
			c.Uncertain += s.Uncertain / params.Ether
		}
	}
	for builder, searchers := range coinMap {
		for searcher, s := range searchers {
			c := combined.stats(builder, searcher)
			c.Total += s.Total
			c.Arb += s.Arb
			c.Frontrun += s.Frontrun
			c.Backrun += s.Backrun
			c.Liquid += s.Liquid
			c.Uncertain += s.Uncertain
		}
	}
	return combined, AggregateStatsMap(combined)
}
