// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package algorithms

import (
	"context"
	"testing"

	"github.com/rameshwar8767/shopfusion/internal/recommend"
)

func TestBuilderBuild(t *testing.T) {
	transactions := []recommend.Transaction{
		txn("u1", "milk", "bread"),
		txn("u2", "milk", "bread", "butter"),
		txn("u3", "milk", "bread"),
	}
	products := []recommend.Product{
		{ProductID: "milk", Name: "Whole Milk", Category: "Dairy", Description: "Fresh whole milk"},
		{ProductID: "oat-milk", Name: "Oat Milk", Category: "Dairy", Description: "Creamy oat milk"},
		{ProductID: "bread", Name: "Sourdough Bread", Category: "Bakery", Description: "Fresh baked bread"},
		{ProductID: "butter", Name: "Salted Butter", Category: "Dairy", Description: "Creamy salted butter"},
	}
	cfg := recommend.DefaultConfig()
	cfg.MinSupport = 0.3

	snap, err := NewBuilder().Build(context.Background(), transactions, products, cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if snap.Collaborative == nil || snap.Content == nil || snap.Affinity == nil {
		t.Fatal("snapshot has nil models")
	}

	// All three shoppers bought milk and bread, so mining finds the pair.
	if len(snap.Rules) == 0 {
		t.Error("no rules mined from correlated baskets")
	}

	if got := snap.Collaborative.Recommend("u1", 0); len(got) == 0 {
		t.Error("collaborative model returned nothing for known shopper")
	}
	if got := snap.Content.SimilarTo("milk", 0); len(got) == 0 {
		t.Error("content model found no neighbors for milk")
	}
}

func TestBuilderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBuilder().Build(ctx, nil, nil, recommend.DefaultConfig())
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestBuilderEmptyTenant(t *testing.T) {
	snap, err := NewBuilder().Build(context.Background(), nil, nil, recommend.DefaultConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(snap.Rules) != 0 {
		t.Errorf("rules = %v, want empty", snap.Rules)
	}
	if got := snap.Collaborative.Recommend("anyone", 0); len(got) != 0 {
		t.Errorf("empty model recommended %v", got)
	}
}
