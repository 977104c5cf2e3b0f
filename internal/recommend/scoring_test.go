// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package recommend

import (
	"math"
	"testing"
	"time"
)

func TestNormalizeScores(t *testing.T) {
	tests := []struct {
		name   string
		scores map[string]float64
		want   map[string]float64
	}{
		{
			name:   "standard min max",
			scores: map[string]float64{"a": 2, "b": 4, "c": 6},
			want:   map[string]float64{"a": 0, "b": 0.5, "c": 1},
		},
		{
			name:   "all equal become one",
			scores: map[string]float64{"a": 3, "b": 3},
			want:   map[string]float64{"a": 1, "b": 1},
		},
		{
			name:   "single entry becomes one",
			scores: map[string]float64{"only": 0.42},
			want:   map[string]float64{"only": 1},
		},
		{
			name:   "empty",
			scores: map[string]float64{},
			want:   map[string]float64{},
		},
		{
			name:   "nan and inf sanitized to zero",
			scores: map[string]float64{"nan": math.NaN(), "inf": math.Inf(1), "ok": 2},
			want:   map[string]float64{"nan": 0, "inf": 0, "ok": 1},
		},
		{
			name:   "negative scores shift up",
			scores: map[string]float64{"a": -2, "b": 0, "c": 2},
			want:   map[string]float64{"a": 0, "b": 0.5, "c": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeScores(tt.scores)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for k, want := range tt.want {
				if math.Abs(got[k]-want) > 1e-9 {
					t.Errorf("score[%s] = %v, want %v", k, got[k], want)
				}
			}
		})
	}
}

func TestDiscountBoost(t *testing.T) {
	tests := []struct {
		name string
		pct  float64
		want float64
	}{
		{name: "no discount", pct: 0, want: 1.0},
		{name: "negative clamps to one", pct: -5, want: 1.0},
		{name: "half off", pct: 50, want: 1.162}, // 1 + ln(1.5)*0.4
		{name: "full discount", pct: 100, want: 1.277},
		{name: "over one hundred clamps", pct: 250, want: 1.277},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DiscountBoost(tt.pct); got != tt.want {
				t.Errorf("DiscountBoost(%v) = %v, want %v", tt.pct, got, tt.want)
			}
		})
	}
}

func TestRound4(t *testing.T) {
	if got := Round4(0.123456); got != 0.1235 {
		t.Errorf("Round4(0.123456) = %v, want 0.1235", got)
	}
	if got := Round4(2); got != 2.0 {
		t.Errorf("Round4(2) = %v, want 2", got)
	}
}

func TestApplyBusinessBoosts(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	products := []Product{
		{ProductID: "plain", Name: "Plain"},
		{ProductID: "urgent", Name: "Urgent", ExpiryDate: datePtr(now)},
		{ProductID: "discounted", Name: "Cheap", Discount: 50},
	}
	resolver := NewProductResolver(products)
	weights := ComputeExpiryWeights(products, now, 7, 2.0)

	scores := map[string]float64{
		"plain":      0.5,
		"urgent":     0.5,
		"discounted": 0.5,
		"unknown":    0.5,
	}

	ranked := ApplyBusinessBoosts(scores, weights, resolver, 0)
	if len(ranked) != 4 {
		t.Fatalf("ranked length = %d, want 4", len(ranked))
	}
	if ranked[0].ProductID != "urgent" {
		t.Errorf("top result = %q, want urgent (2x expiry boost)", ranked[0].ProductID)
	}
	if ranked[0].Score != 1.0 {
		t.Errorf("urgent score = %v, want 1.0", ranked[0].Score)
	}
	if ranked[1].ProductID != "discounted" {
		t.Errorf("second result = %q, want discounted", ranked[1].ProductID)
	}
	if ranked[1].Score != Round4(0.5*1.162) {
		t.Errorf("discounted score = %v, want %v", ranked[1].Score, Round4(0.5*1.162))
	}

	t.Run("truncates to n", func(t *testing.T) {
		top := ApplyBusinessBoosts(scores, weights, resolver, 2)
		if len(top) != 2 {
			t.Errorf("length = %d, want 2", len(top))
		}
	})

	t.Run("expired products dropped", func(t *testing.T) {
		stale := []Product{
			{ProductID: "fresh", Name: "Fresh"},
			{ProductID: "stale", Name: "Stale", ExpiryDate: datePtr(now.AddDate(0, 0, -1))},
		}
		w := ComputeExpiryWeights(stale, now, 7, 2.0)
		got := ApplyBusinessBoosts(map[string]float64{"fresh": 0.5, "stale": 0.9}, w, NewProductResolver(stale), 0)
		if len(got) != 1 || got[0].ProductID != "fresh" {
			t.Errorf("ranked = %v, want only fresh", got)
		}
	})

	t.Run("zero relevance dropped", func(t *testing.T) {
		got := ApplyBusinessBoosts(map[string]float64{"plain": 0}, weights, resolver, 0)
		if len(got) != 0 {
			t.Errorf("ranked = %v, want empty", got)
		}
	})

	t.Run("ties break by id", func(t *testing.T) {
		tied := ApplyBusinessBoosts(map[string]float64{"zeta": 0.3, "alpha": 0.3}, nil, nil, 0)
		if tied[0].ProductID != "alpha" {
			t.Errorf("first tied = %q, want alpha", tied[0].ProductID)
		}
	})
}
