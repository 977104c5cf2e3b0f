// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package recommend

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeProvider struct {
	mu           sync.Mutex
	tenants      []string
	transactions map[string][]Transaction
	products     map[string][]Product
	rules        map[string][]AssociationRule
	expired      map[string][]string
	txnErr       error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		transactions: make(map[string][]Transaction),
		products:     make(map[string][]Product),
		rules:        make(map[string][]AssociationRule),
		expired:      make(map[string][]string),
	}
}

func (f *fakeProvider) Tenants(context.Context) ([]string, error) { return f.tenants, nil }

func (f *fakeProvider) Transactions(_ context.Context, tenantID string) ([]Transaction, error) {
	if f.txnErr != nil {
		return nil, f.txnErr
	}
	return f.transactions[tenantID], nil
}

func (f *fakeProvider) Products(_ context.Context, tenantID string) ([]Product, error) {
	return f.products[tenantID], nil
}

func (f *fakeProvider) ProductMap(_ context.Context, tenantID string) (map[string]Product, error) {
	out := make(map[string]Product)
	for _, p := range f.products[tenantID] {
		out[p.EffectiveID()] = p
	}
	return out, nil
}

func (f *fakeProvider) ReplaceRules(_ context.Context, tenantID string, rules []AssociationRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[tenantID] = rules
	return nil
}

func (f *fakeProvider) MarkExpired(_ context.Context, tenantID string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired[tenantID] = append(f.expired[tenantID], ids...)
	return nil
}

type fakeBuilder struct {
	snap     *ModelSnapshot
	err      error
	block    chan struct{}
	building chan struct{}
	builds   int
	buildMu  sync.Mutex
}

func (f *fakeBuilder) Build(ctx context.Context, _ []Transaction, _ []Product, _ *Config) (*ModelSnapshot, error) {
	f.buildMu.Lock()
	f.builds++
	f.buildMu.Unlock()
	if f.building != nil {
		f.building <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	snap := *f.snap
	return &snap, nil
}

func emptySnapshot() *ModelSnapshot {
	return testSnapshot(nil, nil, nil, nil)
}

func TestEngineTrainSwapsSnapshot(t *testing.T) {
	provider := newFakeProvider()
	provider.products["t1"] = []Product{{ProductID: "milk", Name: "Milk", Category: "Dairy"}}
	rules := []AssociationRule{{Antecedents: []string{"a"}, Consequents: []string{"b"}, Support: 0.1, Confidence: 0.5, Lift: 1.2}}
	builder := &fakeBuilder{snap: testSnapshot(nil, nil, nil, rules)}

	engine, err := NewEngine(DefaultConfig(), provider, builder)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if err := engine.Train(context.Background(), "t1", nil); err != nil {
		t.Fatalf("Train: %v", err)
	}

	status := engine.Status("t1")
	if status.ModelVersion != 1 {
		t.Errorf("version = %d, want 1", status.ModelVersion)
	}
	if status.RuleCount != 1 {
		t.Errorf("rule count = %d, want 1", status.RuleCount)
	}
	if len(provider.rules["t1"]) != 1 {
		t.Error("mined rules not persisted")
	}

	if err := engine.Train(context.Background(), "t1", nil); err != nil {
		t.Fatalf("second Train: %v", err)
	}
	if got := engine.Status("t1").ModelVersion; got != 2 {
		t.Errorf("version after retrain = %d, want 2", got)
	}
}

func TestEngineTrainConcurrentRejected(t *testing.T) {
	provider := newFakeProvider()
	builder := &fakeBuilder{
		snap:     emptySnapshot(),
		block:    make(chan struct{}),
		building: make(chan struct{}),
	}
	engine, err := NewEngine(DefaultConfig(), provider, builder)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- engine.Train(context.Background(), "t1", nil)
	}()
	// Wait until the first train holds the lock and sits in the builder.
	select {
	case <-builder.building:
	case <-time.After(2 * time.Second):
		t.Fatal("first training never reached the builder")
	}
	if err := engine.Train(context.Background(), "t1", nil); !errors.Is(err, ErrTrainingInProgress) {
		t.Fatalf("concurrent train error = %v, want ErrTrainingInProgress", err)
	}
	close(builder.block)
	if err := <-done; err != nil {
		t.Fatalf("first train failed: %v", err)
	}
}

func TestEngineTrainFailureKeepsOldSnapshot(t *testing.T) {
	provider := newFakeProvider()
	builder := &fakeBuilder{snap: emptySnapshot()}
	engine, err := NewEngine(DefaultConfig(), provider, builder)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	if err := engine.Train(context.Background(), "t1", nil); err != nil {
		t.Fatalf("Train: %v", err)
	}

	builder.err = errors.New("mining blew up")
	if err := engine.Train(context.Background(), "t1", nil); err == nil {
		t.Fatal("expected training error")
	}

	status := engine.Status("t1")
	if status.ModelVersion != 1 {
		t.Errorf("version after failed train = %d, want 1 (old snapshot kept)", status.ModelVersion)
	}
	if status.LastError == "" {
		t.Error("last error not recorded")
	}

	// Serving still works from the surviving snapshot.
	feed, err := engine.Recommend(context.Background(), "t1", "shopper", 10)
	if err != nil {
		t.Fatalf("Recommend after failed train: %v", err)
	}
	if feed.Entries == nil {
		t.Error("feed entries nil, want empty slice")
	}
}

func TestEngineRecommendUntrained(t *testing.T) {
	engine, err := NewEngine(DefaultConfig(), newFakeProvider(), &fakeBuilder{snap: emptySnapshot()})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	feed, err := engine.Recommend(context.Background(), "ghost-tenant", "shopper", 10)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(feed.Entries) != 0 || len(feed.NearExpiry) != 0 {
		t.Errorf("untrained tenant feed = %+v, want empty", feed)
	}
}

func TestEngineRecommendMarksExpired(t *testing.T) {
	now := time.Now().UTC()
	provider := newFakeProvider()
	provider.products["t1"] = []Product{
		{ProductID: "old-cheese", Name: "Cheese", ExpiryDate: datePtr(now.AddDate(0, 0, -2))},
		{ProductID: "milk", Name: "Milk"},
	}
	builder := &fakeBuilder{snap: emptySnapshot()}
	engine, err := NewEngine(DefaultConfig(), provider, builder)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := engine.Train(context.Background(), "t1", nil); err != nil {
		t.Fatalf("Train: %v", err)
	}

	if _, err := engine.Recommend(context.Background(), "t1", "shopper", 10); err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if got := provider.expired["t1"]; len(got) != 1 || got[0] != "old-cheese" {
		t.Errorf("expired flags = %v, want [old-cheese]", got)
	}
}

func TestEngineTrainAllIsolatesFailures(t *testing.T) {
	provider := newFakeProvider()
	provider.tenants = []string{"ok", "broken"}
	builder := &fakeBuilder{snap: emptySnapshot()}
	engine, err := NewEngine(DefaultConfig(), provider, builder)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	// First tenant trains fine, then the builder starts failing.
	if err := engine.Train(context.Background(), "ok", nil); err != nil {
		t.Fatalf("Train ok: %v", err)
	}
	builder.err = errors.New("boom")
	err = engine.TrainAll(context.Background())
	if err == nil {
		t.Fatal("expected aggregate error from TrainAll")
	}
	// The healthy tenant's snapshot survives.
	if engine.Status("ok").ModelVersion != 1 {
		t.Error("healthy tenant lost its snapshot")
	}
}

func TestEngineSingleSignalQueries(t *testing.T) {
	provider := newFakeProvider()
	provider.products["t1"] = []Product{
		{ProductID: "a", Name: "A", Category: "X"},
		{ProductID: "b", Name: "B", Category: "X"},
	}
	snap := &ModelSnapshot{
		Collaborative: &stubCollab{scores: map[string]float64{"a": 0.7, "b": 0.3}},
		Content:       &stubContent{similar: map[string]float64{"b": 0.9}},
		Affinity:      &stubAffinity{out: []ScoredProduct{{ProductID: "b", Score: 1.2}}},
	}
	builder := &fakeBuilder{snap: snap}
	engine, err := NewEngine(DefaultConfig(), provider, builder)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := engine.Train(context.Background(), "t1", nil); err != nil {
		t.Fatalf("Train: %v", err)
	}
	ctx := context.Background()

	t.Run("collaborative", func(t *testing.T) {
		got, err := engine.CollaborativeFor(ctx, "t1", "shopper", 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 || got[0].ProductID != "a" {
			t.Errorf("collaborative = %v, want a first", got)
		}
	})

	t.Run("similar products", func(t *testing.T) {
		got, err := engine.SimilarProducts(ctx, "t1", "a", 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].ProductID != "b" {
			t.Errorf("similar = %v, want [b]", got)
		}
	})

	t.Run("cart affinity", func(t *testing.T) {
		got, err := engine.CartAffinity(ctx, "t1", []string{"a"}, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].ProductID != "b" {
			t.Errorf("affinity = %v, want [b]", got)
		}
	})

	t.Run("untrained tenant yields empty", func(t *testing.T) {
		got, err := engine.CartAffinity(ctx, "ghost", []string{"a"}, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("affinity for untrained = %v, want empty", got)
		}
	})
}

func TestEngineTrainOverridesValidated(t *testing.T) {
	engine, err := NewEngine(DefaultConfig(), newFakeProvider(), &fakeBuilder{snap: emptySnapshot()})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	bad := DefaultConfig()
	bad.MinSupport = -1
	if err := engine.Train(context.Background(), "t1", bad); err == nil {
		t.Fatal("expected validation error for bad overrides")
	}
}
