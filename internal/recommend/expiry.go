// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package recommend

import (
	"math"
	"time"
)

// ExpiryWeights is the per-request expiry analysis of a catalog.
type ExpiryWeights struct {
	// Weights maps effective product id to urgency multiplier. 1.0 means
	// no urgency; values up to MaxExpiryBoost mean the product expires
	// within the urgency window. Expired products carry weight 0 so any
	// score multiplied by it drops out.
	Weights map[string]float64

	// Expired lists products whose expiry date has passed.
	Expired []Product

	// NearExpiry lists products inside the urgency window, soonest first.
	NearExpiry []Product
}

// Weight returns the urgency multiplier for an id, defaulting to 1.0.
func (w *ExpiryWeights) Weight(productID string) float64 {
	if w == nil || w.Weights == nil {
		return 1.0
	}
	if v, ok := w.Weights[productID]; ok {
		return v
	}
	return 1.0
}

// ComputeExpiryWeights classifies products by days until expiry at
// day granularity: dates are truncated to midnight UTC before
// differencing, so a product expiring later today still counts as day 0.
// A product d--days from expiry inside the window gets weight
// 1 + (maxBoost-1) * (1 - d/nearDays), rounded to 3 decimals, which
// decays linearly from maxBoost at day 0 to 1.0 at the window edge.
// Products without an expiry date get weight 1.0 and never appear in the
// near-expiry list.
func ComputeExpiryWeights(products []Product, now time.Time, nearDays int, maxBoost float64) *ExpiryWeights {
	if nearDays < 1 {
		nearDays = 1
	}
	if maxBoost < 1 {
		maxBoost = 1
	}

	out := &ExpiryWeights{Weights: make(map[string]float64, len(products))}
	today := truncateDay(now)

	type nearEntry struct {
		product Product
		days    int
	}
	var near []nearEntry

	for i := range products {
		p := products[i]
		id := p.EffectiveID()
		if id == "" {
			continue
		}
		if p.ExpiryDate == nil {
			out.Weights[id] = 1.0
			continue
		}
		days := int(truncateDay(*p.ExpiryDate).Sub(today).Hours() / 24)
		switch {
		case days < 0:
			out.Weights[id] = 0
			out.Expired = append(out.Expired, p)
		case days <= nearDays:
			w := 1 + (maxBoost-1)*(1-float64(days)/float64(nearDays))
			out.Weights[id] = round3(w)
			near = append(near, nearEntry{product: p, days: days})
		default:
			out.Weights[id] = 1.0
		}
	}

	// Soonest expiry first; input order breaks ties (insertion sort keeps
	// the pass stable and the lists are small).
	for i := 1; i < len(near); i++ {
		for j := i; j > 0 && near[j].days < near[j-1].days; j-- {
			near[j], near[j-1] = near[j-1], near[j]
		}
	}
	for _, e := range near {
		out.NearExpiry = append(out.NearExpiry, e.product)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
