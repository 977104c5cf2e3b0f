// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

// Package reranking provides rerankers that reshape the individual
// candidate list before it is merged into the final feed.
package reranking

import (
	"context"

	"github.com/rameshwar8767/shopfusion/internal/recommend"
)

// CategoryCap limits how many individual candidates one category may
// contribute, so a dairy-heavy shopper still sees a varied feed. Input
// arrives sorted by descending score, so the cap keeps each category's
// strongest candidates.
type CategoryCap struct {
	maxPerCategory int
}

// NewCategoryCap creates the diversification reranker.
func NewCategoryCap(maxPerCategory int) *CategoryCap {
	if maxPerCategory < 1 {
		maxPerCategory = 3
	}
	return &CategoryCap{maxPerCategory: maxPerCategory}
}

// Name returns the reranker identifier.
func (c *CategoryCap) Name() string { return "category_cap" }

// Rerank admits at most maxPerCategory entries per category, preserving
// order. Entries without a category are never capped.
func (c *CategoryCap) Rerank(_ context.Context, entries []recommend.FeedEntry, _ int) []recommend.FeedEntry {
	counts := make(map[string]int)
	out := make([]recommend.FeedEntry, 0, len(entries))
	for _, e := range entries {
		category := ""
		if len(e.Products) > 0 {
			category = e.Products[0].Category
		}
		if category != "" {
			if counts[category] >= c.maxPerCategory {
				continue
			}
			counts[category]++
		}
		out = append(out, e)
	}
	return out
}
