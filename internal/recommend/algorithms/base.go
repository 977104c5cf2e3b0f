// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package algorithms

import (
	"context"
	"math"
	"sort"
)

// ContextCancelled reports whether the context has been cancelled or
// timed out. Long-running training loops check this between phases.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// cosineDense computes cosine similarity between two dense vectors of
// equal length. Zero vectors yield 0.
func cosineDense(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// sparseDot computes the dot product of two sparse vectors. Iterates the
// smaller map.
func sparseDot(a, b map[int]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for i, va := range a {
		if vb, ok := b[i]; ok {
			dot += va * vb
		}
	}
	return dot
}

// l2Normalize scales a sparse vector to unit length in place. Zero
// vectors are left untouched.
func l2Normalize(v map[int]float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		v[i] = x / norm
	}
}

// topNFromMap returns up to n keys of a score map in descending score
// order, ties broken by key. n <= 0 means all.
func topNFromMap(scores map[string]float64, n int) map[string]float64 {
	if n <= 0 || len(scores) <= n {
		return scores
	}
	type kv struct {
		id    string
		score float64
	}
	ranked := make([]kv, 0, len(scores))
	for id, s := range scores {
		ranked = append(ranked, kv{id, s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	out := make(map[string]float64, n)
	for _, e := range ranked[:n] {
		out[e.id] = e.score
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
