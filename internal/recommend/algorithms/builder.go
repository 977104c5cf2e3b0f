// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package algorithms

import (
	"context"
	"fmt"

	"github.com/rameshwar8767/shopfusion/internal/recommend"
)

// Builder assembles a complete model snapshot from raw tenant data. It
// implements recommend.ModelBuilder.
type Builder struct{}

// NewBuilder creates a snapshot builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build trains all three models. Rule mining honors context
// cancellation; the cheaper vectorization phases run to completion once
// started.
func (b *Builder) Build(ctx context.Context, transactions []recommend.Transaction, products []recommend.Product, cfg *recommend.Config) (*recommend.ModelSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	collab := NewCollaborative(transactions)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content := NewTFIDF(recommend.ToContentCorpus(products), cfg)

	baskets := recommend.ToBaskets(transactions, cfg.MinBasketSize)
	rules, err := NewRuleMiner(cfg).Mine(ctx, baskets)
	if err != nil {
		return nil, fmt.Errorf("mine association rules: %w", err)
	}

	return &recommend.ModelSnapshot{
		Collaborative: collab,
		Content:       content,
		Affinity:      NewRuleIndex(rules),
		Rules:         rules,
	}, nil
}
