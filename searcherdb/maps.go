package searcherdb

import "sort"

// BlockTotalKey is the reserved inner key counting a builder's blocks in the
// block-count maps. It is skipped when aggregating searchers.
const BlockTotalKey = "total"

// Agg maps searcher -> metric, summed across all builders.
type Agg map[string]float64

// Map maps builder -> searcher -> scalar metric.
type Map map[string]Agg

// StatsMap maps builder -> searcher -> per-subtype atomic stats.
type StatsMap map[string]map[string]*Stats

// VolListMap maps builder -> searcher -> raw per-tx volumes, kept for later
// median/variance analysis. Append-only.
type VolListMap map[string]map[string][]float64

// bump adds v to the (builder, searcher) cell, inserting it if absent.
// Lookups never insert; only writes do.
func (m Map) bump(builder, searcher string, v float64) {
	inner, ok := m[builder]
	if !ok {
		inner = make(Agg)
		m[builder] = inner
	}
	inner[searcher] += v
}

func (m StatsMap) stats(builder, searcher string) *Stats {
	inner, ok := m[builder]
	if !ok {
		inner = make(map[string]*Stats)
		m[builder] = inner
	}
	s, ok := inner[searcher]
	if !ok {
		s = &Stats{}
		inner[searcher] = s
	}
	return s
}

func (m VolListMap) appendVol(builder, searcher string, v float64) {
	inner, ok := m[builder]
	if !ok {
		inner = make(map[string][]float64)
		m[builder] = inner
	}
	inner[searcher] = append(inner[searcher], v)
}

// AggEntry is one searcher's row in a sorted aggregate view.
type AggEntry struct {
	Searcher string  `json:"searcher"`
	Value    float64 `json:"value"`
}

// SortedAgg is an aggregate ordered by value descending, ties broken by
// searcher ascending so output is deterministic.
type SortedAgg []AggEntry

// SortedBuilder is one builder's row in a sorted map view.
type SortedBuilder struct {
	Builder   string    `json:"builder"`
	Total     float64   `json:"total"`
	Searchers SortedAgg `json:"searchers"`
}

// SortedMap orders builders by their summed total descending, each with its
// searchers ordered by value descending.
type SortedMap []SortedBuilder

func sortEntries(entries []AggEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].Searcher < entries[j].Searcher
	})
}

func copyAgg(a Agg) Agg {
	out := make(Agg, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

func copyMap(m Map) Map {
	out := make(Map, len(m))
	for b, inner := range m {
		out[b] = copyAgg(inner)
	}
	return out
}

func builderTotal(inner Agg) float64 {
	var total float64
	for _, v := range inner {
		total += v
	}
	return total
}
