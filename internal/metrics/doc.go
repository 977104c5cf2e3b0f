// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

/*
Package metrics provides Prometheus metrics collection and export for observability.

This package instruments the recommendation service using the Prometheus client
library, exposing metrics for monitoring performance, errors, and system health.

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

HTTP Metrics:
  - api_requests_total: Total API requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: Active requests (gauge)
  - api_rate_limit_hits_total: Rate limit rejections (counter)
    Labels: endpoint

Training Metrics:
  - training_duration_seconds: Per-tenant model training duration (histogram)
    Labels: tenant
  - training_runs_total: Training runs (counter)
    Labels: tenant, success
  - training_last_success_timestamp: Unix timestamp of last successful training (gauge)
    Labels: tenant

Feed Metrics:
  - feed_requests_total: Recommendation feed requests (counter)
    Labels: tenant
  - feed_entries: Entries per generated feed (histogram)

Database Metrics:
  - db_query_duration_seconds: Query execution time (histogram)
    Labels: operation, table
  - db_query_errors_total: Failed queries (counter)
    Labels: operation, table

Auth Metrics:
  - auth_attempts_total: Login and registration attempts (counter)
    Labels: operation, success

All metrics use promauto registration against the default registry, so a
standard promhttp.Handler serves them with no extra wiring.
*/
package metrics
