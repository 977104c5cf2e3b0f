// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

// Package algorithms implements the recommendation models behind the
// hybrid engine.
//
// # Model Categories
//
//   - Collaborative Filtering: user-user cosine similarity over purchase
//     vectors
//   - Content-Based: TF-IDF text similarity over product name, category
//     and description
//   - Association Rules: Apriori frequent itemset mining with a rule
//     index for real-time cart affinity
//
// # Thread Safety
//
// Models are built once by Builder and never mutated afterwards, so all
// query methods are safe for concurrent use without locking. The engine
// swaps whole model snapshots atomically on retrain.
package algorithms
