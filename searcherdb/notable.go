package searcherdb

import "sort"

// notableTopSearchers bounds the diagnostic to the biggest searchers by
// total orderflow.
const notableTopSearchers = 20

// HighlightedPair is one disproportionate searcher->builder orderflow
// relationship.
type HighlightedPair struct {
	Searcher string  `json:"searcher"`
	Builder  string  `json:"builder"`
	Percent  float64 `json:"percent"`
}

// FindNotable flags searchers whose orderflow is directed at a builder far
// beyond that builder's overall market share. For each of the top searchers
// it walks their builder destinations (most concentrated first) and flags on
// the first builder whose directed share crosses its market-share tier:
// dominant builders (>40% share) need >80% directed, large (>25%) need 2x
// their share, mid-size (>3%) need 3x, and small builders need 10x plus an
// absolute 10% floor. The result is a small bounded diagnostic set, not an
// exhaustive statistical test.
func FindNotable(m Map) (notable map[string]map[string]float64, marketShare Agg, highlighted []HighlightedPair) {
	notable = make(map[string]map[string]float64)
	marketShare = make(Agg)
	highlighted = []HighlightedPair{}

	var grandTotal float64
	builderTotals := make(Agg, len(m))
	for builder, searchers := range m {
		t := builderTotal(searchers)
		builderTotals[builder] = t
		grandTotal += t
	}
	if grandTotal == 0 {
		return notable, marketShare, highlighted
	}
	for builder, t := range builderTotals {
		marketShare[builder] = t / grandTotal * 100
	}

	// invert to searcher -> builder -> count
	bySearcher := make(map[string]Agg)
	searcherTotals := make(Agg)
	for builder, searchers := range m {
		for searcher, v := range searchers {
			inner, ok := bySearcher[searcher]
			if !ok {
				inner = make(Agg)
				bySearcher[searcher] = inner
			}
			inner[builder] += v
			searcherTotals[searcher] += v
		}
	}

	top := SortAgg(searcherTotals)
	if len(top) > notableTopSearchers {
		top = top[:notableTopSearchers]
	}

	for _, entry := range top {
		searcher, total := entry.Searcher, entry.Value
		if total == 0 {
			continue
		}

		destinations := bySearcher[searcher]
		builders := make([]string, 0, len(destinations))
		for builder := range destinations {
			builders = append(builders, builder)
		}
		sort.Slice(builders, func(i, j int) bool {
			if destinations[builders[i]] != destinations[builders[j]] {
				return destinations[builders[i]] > destinations[builders[j]]
			}
			return builders[i] < builders[j]
		})

		for _, builder := range builders {
			percent := destinations[builder] / total * 100
			if !crossesTier(marketShare[builder], percent) {
				continue
			}

			breakdown := make(map[string]float64, len(destinations))
			for b, v := range destinations {
				breakdown[b] = v / total * 100
			}
			notable[searcher] = breakdown
			highlighted = append(highlighted, HighlightedPair{
				Searcher: searcher,
				Builder:  builder,
				Percent:  percent,
			})
			break
		}
	}
	return notable, marketShare, highlighted
}

func crossesTier(share, percent float64) bool {
	switch {
	case share > 40:
		return percent > 80
	case share > 25:
		return percent > 2*share
	case share > 3:
		return percent > 3*share
	default:
		return percent > 10*share && percent > 10
	}
}
