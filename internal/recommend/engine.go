// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rameshwar8767/shopfusion/internal/logging"
	"github.com/rameshwar8767/shopfusion/internal/metrics"
)

// ErrTrainingInProgress is returned when a tenant's training is requested
// while a previous run is still active.
var ErrTrainingInProgress = errors.New("training already in progress for tenant")

// tenantState holds one tenant's model lifecycle. The snapshot pointer is
// swapped atomically so readers never see a half-trained model; trainMu is
// acquired with TryLock so concurrent train requests fail fast instead of
// queueing.
type tenantState struct {
	trainMu  sync.Mutex
	snapshot atomic.Pointer[ModelSnapshot]

	statusMu sync.RWMutex
	status   TrainingStatus
}

// Engine coordinates training and serving for all tenants. Safe for
// concurrent use.
type Engine struct {
	cfg     *Config
	data    DataProvider
	builder ModelBuilder
	logger  zerolog.Logger

	rerankMu  sync.RWMutex
	rerankers []Reranker

	mu      sync.RWMutex
	tenants map[string]*tenantState
}

// NewEngine constructs an engine. The config is validated; the data
// provider and builder are required.
func NewEngine(cfg *Config, data DataProvider, builder ModelBuilder) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recommendation config: %w", err)
	}
	if data == nil {
		return nil, errors.New("data provider is required")
	}
	if builder == nil {
		return nil, errors.New("model builder is required")
	}
	return &Engine{
		cfg:     cfg,
		data:    data,
		builder: builder,
		logger:  logging.With().Str("component", "recommend-engine").Logger(),
		tenants: make(map[string]*tenantState),
	}, nil
}

// RegisterReranker appends a reranker to the individual-candidate
// pipeline. Rerankers run in registration order.
func (e *Engine) RegisterReranker(r Reranker) {
	e.rerankMu.Lock()
	defer e.rerankMu.Unlock()
	e.rerankers = append(e.rerankers, r)
	e.logger.Info().Str("reranker", r.Name()).Msg("Reranker registered")
}

func (e *Engine) currentRerankers() []Reranker {
	e.rerankMu.RLock()
	defer e.rerankMu.RUnlock()
	out := make([]Reranker, len(e.rerankers))
	copy(out, e.rerankers)
	return out
}

func (e *Engine) tenant(tenantID string) *tenantState {
	e.mu.RLock()
	ts, ok := e.tenants[tenantID]
	e.mu.RUnlock()
	if ok {
		return ts
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if ts, ok = e.tenants[tenantID]; ok {
		return ts
	}
	ts = &tenantState{}
	e.tenants[tenantID] = ts
	return ts
}

// Train rebuilds one tenant's models from stored transactions and
// products, persists the mined rule set, and swaps the new snapshot in.
// Overrides, when non-nil, replace the engine config for this run only.
// Returns ErrTrainingInProgress when the tenant is already training.
func (e *Engine) Train(ctx context.Context, tenantID string, overrides *Config) error {
	cfg := e.cfg
	if overrides != nil {
		if err := overrides.Validate(); err != nil {
			return fmt.Errorf("invalid training overrides: %w", err)
		}
		cfg = overrides
	}

	ts := e.tenant(tenantID)
	if !ts.trainMu.TryLock() {
		return fmt.Errorf("%w: %s", ErrTrainingInProgress, tenantID)
	}
	defer ts.trainMu.Unlock()

	ts.setTraining(true)
	defer ts.setTraining(false)

	start := time.Now()
	logger := e.logger.With().Str("tenant", tenantID).Logger()
	logger.Info().Msg("Training started")

	ctx, cancel := context.WithTimeout(ctx, cfg.TrainingTimeout)
	defer cancel()

	err := e.train(ctx, ts, tenantID, cfg, start)
	duration := time.Since(start)
	metrics.RecordTraining(tenantID, duration, err == nil)
	if err != nil {
		ts.recordError(err, duration)
		logger.Error().Err(err).Dur("duration", duration).Msg("Training failed")
		return err
	}
	logger.Info().Dur("duration", duration).Msg("Training completed")
	return nil
}

func (e *Engine) train(ctx context.Context, ts *tenantState, tenantID string, cfg *Config, start time.Time) error {
	txns, err := e.data.Transactions(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	products, err := e.data.Products(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	snap, err := e.builder.Build(ctx, txns, products, cfg)
	if err != nil {
		return fmt.Errorf("build models: %w", err)
	}

	if err := e.data.ReplaceRules(ctx, tenantID, snap.Rules); err != nil {
		return fmt.Errorf("persist rules: %w", err)
	}

	prev := ts.snapshot.Load()
	snap.Version = 1
	if prev != nil {
		snap.Version = prev.Version + 1
	}
	snap.TrainedAt = time.Now().UTC()
	ts.snapshot.Store(snap)

	ts.statusMu.Lock()
	ts.status.ModelVersion = snap.Version
	ts.status.LastTrainedAt = snap.TrainedAt
	ts.status.LastTrainingDurationMS = time.Since(start).Milliseconds()
	ts.status.LastError = ""
	ts.status.TransactionCount = len(txns)
	ts.status.ProductCount = len(products)
	ts.status.RuleCount = len(snap.Rules)
	ts.statusMu.Unlock()
	return nil
}

// TrainAll trains every tenant the data provider knows about. Failures
// are logged and collected; one tenant's failure never blocks the rest.
func (e *Engine) TrainAll(ctx context.Context) error {
	tenants, err := e.data.Tenants(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	var errs []error
	for _, id := range tenants {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Train(ctx, id, nil); err != nil && !errors.Is(err, ErrTrainingInProgress) {
			errs = append(errs, fmt.Errorf("tenant %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// snapshotFor returns the current snapshot for a tenant, or nil when the
// tenant has never been trained.
func (e *Engine) snapshotFor(tenantID string) *ModelSnapshot {
	e.mu.RLock()
	ts, ok := e.tenants[tenantID]
	e.mu.RUnlock()
	if !ok {
		return nil
	}
	return ts.snapshot.Load()
}

// Recommend generates the fused feed for one shopper. Expiry weights are
// computed against the live catalog on every call so urgency tracks
// wall-clock time between trainings; products found expired are flagged
// in storage on a best-effort basis. An untrained tenant yields an empty
// feed, not an error.
func (e *Engine) Recommend(ctx context.Context, tenantID, shopperID string, maxRecs int) (Feed, error) {
	now := time.Now().UTC()
	if maxRecs <= 0 || maxRecs > e.cfg.MaxRecommendations {
		maxRecs = e.cfg.MaxRecommendations
	}

	snap := e.snapshotFor(tenantID)
	if snap == nil {
		return Feed{Entries: []FeedEntry{}, NearExpiry: []ProductSummary{}, GeneratedAt: now}, nil
	}

	products, err := e.data.Products(ctx, tenantID)
	if err != nil {
		return Feed{}, fmt.Errorf("load products: %w", err)
	}
	resolver := NewProductResolver(products)
	weights := ComputeExpiryWeights(products, now, e.cfg.NearExpiryDays, e.cfg.MaxExpiryBoost)

	if len(weights.Expired) > 0 {
		ids := make([]string, 0, len(weights.Expired))
		for i := range weights.Expired {
			ids = append(ids, weights.Expired[i].EffectiveID())
		}
		if err := e.data.MarkExpired(ctx, tenantID, ids); err != nil {
			e.logger.Warn().Err(err).Str("tenant", tenantID).Int("count", len(ids)).
				Msg("Failed to mark expired products")
		}
	}

	feed := buildFeed(ctx, shopperID, snap, resolver, weights, e.currentRerankers(), e.cfg, maxRecs, now)
	metrics.RecordFeed(tenantID, len(feed.Entries))
	return feed, nil
}

// SimilarProducts returns content-based neighbors of one product, with
// business boosts applied. Unknown products and untrained tenants yield
// empty results.
func (e *Engine) SimilarProducts(ctx context.Context, tenantID, productID string, topN int) ([]ScoredProduct, error) {
	if topN <= 0 {
		topN = e.cfg.TopN
	}
	snap := e.snapshotFor(tenantID)
	if snap == nil {
		return []ScoredProduct{}, nil
	}
	products, err := e.data.Products(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	resolver := NewProductResolver(products)
	weights := ComputeExpiryWeights(products, time.Now(), e.cfg.NearExpiryDays, e.cfg.MaxExpiryBoost)
	scores := snap.Content.SimilarTo(productID, 0)
	return ApplyBusinessBoosts(scores, weights, resolver, topN), nil
}

// CollaborativeFor returns pure collaborative scores for one shopper.
func (e *Engine) CollaborativeFor(_ context.Context, tenantID, shopperID string, topN int) ([]ScoredProduct, error) {
	if topN <= 0 {
		topN = e.cfg.TopN
	}
	snap := e.snapshotFor(tenantID)
	if snap == nil {
		return []ScoredProduct{}, nil
	}
	return topNScores(snap.Collaborative.Recommend(shopperID, topN), topN), nil
}

// CartAffinity answers a real-time "what goes with this cart" query from
// the mined rule index.
func (e *Engine) CartAffinity(_ context.Context, tenantID string, cartIDs []string, topN int) ([]ScoredProduct, error) {
	if topN <= 0 {
		topN = e.cfg.TopN
	}
	snap := e.snapshotFor(tenantID)
	if snap == nil {
		return []ScoredProduct{}, nil
	}
	return snap.Affinity.PredictAffinity(cartIDs, topN), nil
}

// Status reports the training state for one tenant.
func (e *Engine) Status(tenantID string) TrainingStatus {
	e.mu.RLock()
	ts, ok := e.tenants[tenantID]
	e.mu.RUnlock()
	if !ok {
		return TrainingStatus{}
	}
	ts.statusMu.RLock()
	defer ts.statusMu.RUnlock()
	return ts.status
}

func (ts *tenantState) setTraining(v bool) {
	ts.statusMu.Lock()
	ts.status.IsTraining = v
	ts.statusMu.Unlock()
}

func (ts *tenantState) recordError(err error, duration time.Duration) {
	ts.statusMu.Lock()
	ts.status.LastError = err.Error()
	ts.status.LastTrainingDurationMS = duration.Milliseconds()
	ts.statusMu.Unlock()
}
