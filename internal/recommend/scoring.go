// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package recommend

import (
	"math"
	"sort"
)

// Round4 rounds to 4 decimal places, the precision all model scores are
// reported at.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// sanitize maps NaN and infinities to 0 so broken ratios never propagate
// into rankings.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// NormalizeScores min-max scales a score map into [0, 1]. When every score
// is equal (including a single entry), all values become 1.0 so a lone
// strong signal is not erased. Returns a new map; empty input yields an
// empty map.
func NormalizeScores(scores map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range scores {
		v = sanitize(v)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == min {
		for k := range scores {
			out[k] = 1.0
		}
		return out
	}
	span := max - min
	for k, v := range scores {
		out[k] = (sanitize(v) - min) / span
	}
	return out
}

// DiscountBoost converts a discount percentage into a score multiplier:
// 1 + ln(1 + pct/100) * 0.4, rounded to 3 decimals. Grows sub-linearly so
// deep discounts do not drown out relevance. Out-of-range input clamps to
// [0, 100].
func DiscountBoost(pct float64) float64 {
	if pct <= 0 {
		return 1.0
	}
	if pct > 100 {
		pct = 100
	}
	return round3(1 + math.Log1p(pct/100)*0.4)
}

// ApplyBusinessBoosts multiplies base relevance scores by expiry and
// discount boosts and returns the top n results in descending score
// order, ties broken by product id for determinism. The resolver supplies
// discount rates; unresolvable ids keep a 1.0 discount boost. Entries
// whose boosted score is not positive are dropped, which is how expired
// products (expiry weight 0) fall out of the ranking.
func ApplyBusinessBoosts(scores map[string]float64, weights *ExpiryWeights, resolver *ProductResolver, n int) []ScoredProduct {
	ranked := make([]ScoredProduct, 0, len(scores))
	for id, base := range scores {
		base = sanitize(base)
		eb := weights.Weight(id)
		db := 1.0
		if resolver != nil {
			if p := resolver.Resolve(id); p != nil {
				db = DiscountBoost(p.Discount)
			}
		}
		boosted := Round4(base * eb * db)
		if boosted <= 0 {
			continue
		}
		ranked = append(ranked, ScoredProduct{
			ProductID:     id,
			Score:         boosted,
			Relevance:     Round4(base),
			ExpiryBoost:   eb,
			DiscountBoost: db,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// topNScores sorts a score map descending and returns up to n entries,
// ties broken by id.
func topNScores(scores map[string]float64, n int) []ScoredProduct {
	ranked := make([]ScoredProduct, 0, len(scores))
	for id, v := range scores {
		ranked = append(ranked, ScoredProduct{ProductID: id, Score: v})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ProductID < ranked[j].ProductID
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
