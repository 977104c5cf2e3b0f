// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

// Package recommend implements the hybrid recommendation engine.
//
// The engine fuses three independently trained signal sources per tenant:
//
//   - collaborative filtering (user x item interaction matrix, cosine
//     user-user similarity)
//   - content similarity (TF-IDF over product name/category/description)
//   - market-basket association rules (Apriori) with an indexed lookup
//     for real-time cart affinity
//
// plus a business-weighting layer that boosts products approaching their
// expiry date and sidelines expired ones.
//
// # Model Lifecycle
//
// Training is a batch rebuild: a complete model snapshot is constructed
// off the serving path and swapped in atomically behind a per-tenant
// pointer. Readers always observe either the previous snapshot or the new
// one, never a partially updated model. A per-tenant mutex rejects
// concurrent self-training; distinct tenants train in parallel.
//
// Expiry weights are a function of the current time and are recomputed on
// every request rather than cached.
//
// # Data Access
//
// The engine depends only on the DataProvider interface. The concrete
// SQLite implementation lives in internal/store; this package has no
// dependency on it, keeping the import graph acyclic.
package recommend
