// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package recommend

import (
	"fmt"
	"time"
)

// Config holds all tunables of the recommendation engine. One Config is
// shared by every tenant; per-training overrides are applied on a clone.
type Config struct {
	// Association rule mining.
	MinSupport     float64 `koanf:"min_support" json:"min_support"`
	MinConfidence  float64 `koanf:"min_confidence" json:"min_confidence"`
	MinLift        float64 `koanf:"min_lift" json:"min_lift"`
	MaxItemsetSize int     `koanf:"max_itemset_size" json:"max_itemset_size"`
	MinBasketSize  int     `koanf:"min_basket_size" json:"min_basket_size"`

	// Content model.
	VocabularySize      int     `koanf:"vocabulary_size" json:"vocabulary_size"`
	SimilarityThreshold float64 `koanf:"similarity_threshold" json:"similarity_threshold"`
	ProfileThreshold    float64 `koanf:"profile_threshold" json:"profile_threshold"`

	// Expiry urgency.
	NearExpiryDays int     `koanf:"near_expiry_days" json:"near_expiry_days"`
	MaxExpiryBoost float64 `koanf:"max_expiry_boost" json:"max_expiry_boost"`

	// Hybrid fusion.
	CollabWeight       float64 `koanf:"collab_weight" json:"collab_weight"`
	ContentWeight      float64 `koanf:"content_weight" json:"content_weight"`
	MinHybridScore     float64 `koanf:"min_hybrid_score" json:"min_hybrid_score"`
	MaxPerCategory     int     `koanf:"max_per_category" json:"max_per_category"`
	MaxRecommendations int     `koanf:"max_recommendations" json:"max_recommendations"`

	// TopN is the default result count for single-signal queries.
	TopN int `koanf:"top_n" json:"top_n"`

	// TrainingTimeout bounds one tenant's training run.
	TrainingTimeout time.Duration `koanf:"training_timeout" json:"training_timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		MinSupport:     0.01,
		MinConfidence:  0.2,
		MinLift:        1.0,
		MaxItemsetSize: 3,
		MinBasketSize:  1,

		VocabularySize:      5000,
		SimilarityThreshold: 0.1,
		ProfileThreshold:    0.05,

		NearExpiryDays: 7,
		MaxExpiryBoost: 2.0,

		CollabWeight:       0.6,
		ContentWeight:      0.4,
		MinHybridScore:     0.01,
		MaxPerCategory:     3,
		MaxRecommendations: 20,

		TopN: 10,

		TrainingTimeout: 5 * time.Minute,
	}
}

// Clone returns a copy safe to mutate with per-request overrides.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Validate checks all ranges and cross-field constraints.
func (c *Config) Validate() error {
	if c.MinSupport <= 0 || c.MinSupport > 1 {
		return fmt.Errorf("min_support must be in (0, 1], got %v", c.MinSupport)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be in [0, 1], got %v", c.MinConfidence)
	}
	if c.MinLift < 0 {
		return fmt.Errorf("min_lift must be >= 0, got %v", c.MinLift)
	}
	if c.MaxItemsetSize < 2 {
		return fmt.Errorf("max_itemset_size must be >= 2, got %d", c.MaxItemsetSize)
	}
	if c.MinBasketSize < 1 {
		return fmt.Errorf("min_basket_size must be >= 1, got %d", c.MinBasketSize)
	}
	if c.VocabularySize < 1 {
		return fmt.Errorf("vocabulary_size must be >= 1, got %d", c.VocabularySize)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0, 1], got %v", c.SimilarityThreshold)
	}
	if c.ProfileThreshold < 0 || c.ProfileThreshold > 1 {
		return fmt.Errorf("profile_threshold must be in [0, 1], got %v", c.ProfileThreshold)
	}
	if c.NearExpiryDays < 1 {
		return fmt.Errorf("near_expiry_days must be >= 1, got %d", c.NearExpiryDays)
	}
	if c.MaxExpiryBoost < 1 {
		return fmt.Errorf("max_expiry_boost must be >= 1, got %v", c.MaxExpiryBoost)
	}
	if c.CollabWeight < 0 || c.ContentWeight < 0 {
		return fmt.Errorf("signal weights must be >= 0, got collab=%v content=%v", c.CollabWeight, c.ContentWeight)
	}
	if c.CollabWeight+c.ContentWeight <= 0 {
		return fmt.Errorf("signal weights must not both be zero")
	}
	if c.MinHybridScore < 0 {
		return fmt.Errorf("min_hybrid_score must be >= 0, got %v", c.MinHybridScore)
	}
	if c.MaxPerCategory < 1 {
		return fmt.Errorf("max_per_category must be >= 1, got %d", c.MaxPerCategory)
	}
	if c.MaxRecommendations < 1 {
		return fmt.Errorf("max_recommendations must be >= 1, got %d", c.MaxRecommendations)
	}
	if c.TopN < 1 {
		return fmt.Errorf("top_n must be >= 1, got %d", c.TopN)
	}
	if c.TrainingTimeout <= 0 {
		return fmt.Errorf("training_timeout must be > 0, got %v", c.TrainingTimeout)
	}
	return nil
}
