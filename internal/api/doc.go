// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

// Package api exposes the HTTP surface of the recommendation service
// using the Chi router.
//
// Route groups:
//
//   - /healthz/live, /healthz/ready: unauthenticated probes
//   - /metrics: Prometheus scrape endpoint
//   - /api/v1/auth: register and login, strict per-IP rate limits
//   - /api/v1: catalog ingestion, training control and recommendation
//     queries, all behind Bearer token authentication
//
// Every response uses the APIResponse envelope. Request bodies are
// validated with go-playground/validator before any work happens, and
// errors carry a machine-readable code so clients can branch without
// parsing messages.
//
// The authenticated account is the tenant: all reads and writes are
// scoped to the user ID carried in the token claims.
package api
