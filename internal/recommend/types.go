// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package recommend

import (
	"context"
	"time"
)

// ProductStatus is the catalog lifecycle state of a product.
type ProductStatus string

const (
	// ProductActive means the product is visible and purchasable.
	ProductActive ProductStatus = "ACTIVE"
	// ProductExpired means the product passed its expiry date and is hidden.
	ProductExpired ProductStatus = "EXPIRED"
)

// Product is a catalog entry owned by one tenant (retailer).
// Products are read-only within the engine; status changes are applied by
// the storage layer via DataProvider.MarkExpired.
type Product struct {
	// ID is the internal storage identifier.
	ID string `json:"id"`

	// ProductID is the retailer-provided SKU. Unique per tenant.
	ProductID string `json:"productId"`

	// TenantID is the owning retailer.
	TenantID string `json:"-"`

	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`

	// Discount is a percentage in [0, 100].
	Discount float64 `json:"discount,omitempty"`

	// ExpiryDate is nil for non-perishable products.
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`

	Status ProductStatus `json:"status"`
}

// EffectiveID returns the identifier used throughout the engine: the
// retailer SKU when present, the internal id otherwise, "" when neither
// exists (such products are skipped everywhere).
func (p *Product) EffectiveID() string {
	if p.ProductID != "" {
		return p.ProductID
	}
	return p.ID
}

// TransactionItem is one purchased line item.
type TransactionItem struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName,omitempty"`
	Quantity    int     `json:"quantity,omitempty"`
	Price       float64 `json:"price,omitempty"`
}

// Transaction is a single checkout by one shopper at one tenant.
// Immutable once loaded; the source of truth for baskets and the
// collaborative signal.
type Transaction struct {
	// ID is the storage identifier.
	ID string `json:"id"`

	// TenantID is the retailer the transaction belongs to.
	TenantID string `json:"-"`

	// ShopperID identifies the purchasing customer.
	ShopperID string `json:"shopperId"`

	Items     []TransactionItem `json:"items"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Basket is the deduplicated sequence of item identifiers from one
// transaction, in first-seen order.
type Basket []string

// AssociationRule is one mined rule (antecedents -> consequents).
// Rule sets are replaced wholesale per training cycle, never patched.
type AssociationRule struct {
	Antecedents []string `json:"antecedents"`
	Consequents []string `json:"consequents"`

	// Support is the fraction of baskets containing the full itemset.
	Support float64 `json:"support"`

	// Confidence is support(itemset) / support(antecedents).
	Confidence float64 `json:"confidence"`

	// Lift is confidence / support(consequents).
	Lift float64 `json:"lift"`
}

// ScoredProduct pairs a product identifier with a relevance score.
type ScoredProduct struct {
	ProductID string  `json:"productId"`
	Score     float64 `json:"score"`

	// Relevance is the pre-boost base score, when boosts were applied.
	Relevance float64 `json:"relevance,omitempty"`

	// ExpiryBoost and DiscountBoost record applied multipliers.
	ExpiryBoost   float64 `json:"expiryBoost,omitempty"`
	DiscountBoost float64 `json:"discountBoost,omitempty"`
}

// ProductSummary is the display form of a product in a feed.
type ProductSummary struct {
	ProductID  string        `json:"productId"`
	Name       string        `json:"name"`
	Category   string        `json:"category"`
	Price      float64       `json:"price"`
	Stock      int           `json:"stock"`
	ExpiryDate *time.Time    `json:"expiryDate,omitempty"`
	Status     ProductStatus `json:"status"`
}

// FeedEntryType distinguishes bundle entries from single-product entries.
type FeedEntryType string

const (
	// EntryBundle is a multi-product "frequently bought together" entry.
	EntryBundle FeedEntryType = "bundle"
	// EntryIndividual is a single product scored by the hybrid signal.
	EntryIndividual FeedEntryType = "individual"
)

// RuleMetadata carries the mining metrics behind a bundle entry.
type RuleMetadata struct {
	Support    float64 `json:"support"`
	Confidence float64 `json:"confidence"`
	Lift       float64 `json:"lift"`
}

// FeedEntry is one ranked element of the hybrid feed.
type FeedEntry struct {
	Type  FeedEntryType `json:"type"`
	Score float64       `json:"score"`

	// Products holds the bundle members (>= 2) for bundle entries, or a
	// single element for individual entries.
	Products []ProductSummary `json:"products"`

	Reason string `json:"reason,omitempty"`

	// IsUrgent marks entries boosted by a near-expiry member.
	IsUrgent bool `json:"isUrgent,omitempty"`

	// Rule is set for bundle entries only.
	Rule *RuleMetadata `json:"rule,omitempty"`

	// Signals breaks the hybrid score down per source for individual
	// entries (keys: "collaborative", "content", "expiry").
	Signals map[string]float64 `json:"signals,omitempty"`
}

// Feed is the fused recommendation response for one shopper.
type Feed struct {
	Entries []FeedEntry `json:"entries"`

	// NearExpiry lists products inside the urgency window, kept separate
	// from the ranked feed for dedicated rendering.
	NearExpiry []ProductSummary `json:"nearExpiry"`

	GeneratedAt time.Time `json:"generatedAt"`
}

// TrainingStatus reports the training state of one tenant's models.
type TrainingStatus struct {
	IsTraining             bool      `json:"is_training"`
	ModelVersion           int       `json:"model_version"`
	LastTrainedAt          time.Time `json:"last_trained_at"`
	LastTrainingDurationMS int64     `json:"last_training_duration_ms"`
	LastError              string    `json:"last_error,omitempty"`
	TransactionCount       int       `json:"transaction_count"`
	ProductCount           int       `json:"product_count"`
	RuleCount              int       `json:"rule_count"`
}

// CollaborativeModel scores unseen items for a shopper using the
// similarity-weighted interactions of other shoppers.
type CollaborativeModel interface {
	// Recommend returns up to topN positive scores for items the shopper
	// has not purchased, rounded to 4 decimals. Unknown shoppers yield an
	// empty map.
	Recommend(shopperID string, topN int) map[string]float64

	// History returns the item ids the shopper has interacted with.
	History(shopperID string) []string
}

// ContentModel scores items by text similarity in TF-IDF space.
type ContentModel interface {
	// SimilarTo returns products similar to the given one, excluding it,
	// keeping similarities above 0.1. Unknown ids yield an empty map.
	SimilarTo(productID string, topN int) map[string]float64

	// PredictForUser scores products against the centroid of the given
	// purchase history, excluding the history itself.
	PredictForUser(historyIDs []string, topN int) map[string]float64
}

// AffinityIndex answers real-time "what goes with this cart" queries from
// the mined rule set.
type AffinityIndex interface {
	// PredictAffinity returns up to topN consequents triggered by the cart
	// items, highest score first, never echoing a cart item back.
	PredictAffinity(cartIDs []string, topN int) []ScoredProduct
}

// ModelSnapshot is one complete, immutable set of trained models for a
// tenant. Snapshots are swapped atomically; fields are never mutated after
// construction.
type ModelSnapshot struct {
	Collaborative CollaborativeModel
	Content       ContentModel
	Affinity      AffinityIndex
	Rules         []AssociationRule

	Version   int
	TrainedAt time.Time
}

// ModelBuilder constructs a full snapshot from raw data. Implemented by
// the algorithms package and injected into the engine to keep this package
// free of algorithm imports.
type ModelBuilder interface {
	Build(ctx context.Context, transactions []Transaction, products []Product, cfg *Config) (*ModelSnapshot, error)
}

// Reranker reorders or filters individual feed candidates before they are
// merged with bundles (e.g. category diversification).
type Reranker interface {
	// Name returns the reranker identifier.
	Name() string

	// Rerank receives candidates sorted by descending score and returns
	// the admitted subset, order preserved.
	Rerank(ctx context.Context, entries []FeedEntry, k int) []FeedEntry
}

// DataProvider is the storage surface the engine consumes. Implemented by
// internal/store; injected at construction (no global connection state).
type DataProvider interface {
	// Tenants lists tenant ids that have data to train on.
	Tenants(ctx context.Context) ([]string, error)

	// Transactions returns all transactions for a tenant.
	Transactions(ctx context.Context, tenantID string) ([]Transaction, error)

	// Products returns all products for a tenant.
	Products(ctx context.Context, tenantID string) ([]Product, error)

	// ProductMap returns products keyed by effective product id.
	ProductMap(ctx context.Context, tenantID string) (map[string]Product, error)

	// ReplaceRules atomically deletes a tenant's prior rule set and writes
	// the new one.
	ReplaceRules(ctx context.Context, tenantID string, rules []AssociationRule) error

	// MarkExpired flags the given products as EXPIRED and hides them.
	MarkExpired(ctx context.Context, tenantID string, productIDs []string) error
}
