// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package metrics

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordAPIRequest verifies request counters and labels.
func TestRecordAPIRequest(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		endpoint   string
		statusCode int
		duration   time.Duration
	}{
		{
			name:       "successful feed request",
			method:     "GET",
			endpoint:   "/api/v1/recommendations",
			statusCode: 200,
			duration:   25 * time.Millisecond,
		},
		{
			name:       "failed train request",
			method:     "POST",
			endpoint:   "/api/v1/train",
			statusCode: 409,
			duration:   1 * time.Millisecond,
		},
		{
			name:       "repeated endpoint accumulates",
			method:     "GET",
			endpoint:   "/api/v1/recommendations",
			statusCode: 200,
			duration:   30 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := strconv.Itoa(tt.statusCode)
			before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, code))
			RecordAPIRequest(tt.method, tt.endpoint, tt.statusCode, tt.duration)
			after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues(tt.method, tt.endpoint, code))
			if after != before+1 {
				t.Errorf("counter = %v, want %v", after, before+1)
			}
		})
	}
}

// TestRecordTraining verifies success and failure paths increment the
// right label combinations.
func TestRecordTraining(t *testing.T) {
	tenant := "tenant-metrics-test"

	successBefore := testutil.ToFloat64(TrainingRuns.WithLabelValues(tenant, "true"))
	failBefore := testutil.ToFloat64(TrainingRuns.WithLabelValues(tenant, "false"))

	RecordTraining(tenant, 2*time.Second, true)
	RecordTraining(tenant, 500*time.Millisecond, false)

	if got := testutil.ToFloat64(TrainingRuns.WithLabelValues(tenant, "true")); got != successBefore+1 {
		t.Errorf("success runs = %v, want %v", got, successBefore+1)
	}
	if got := testutil.ToFloat64(TrainingRuns.WithLabelValues(tenant, "false")); got != failBefore+1 {
		t.Errorf("failed runs = %v, want %v", got, failBefore+1)
	}
	if got := testutil.ToFloat64(TrainingLastSuccess.WithLabelValues(tenant)); got == 0 {
		t.Error("last success timestamp not set after successful run")
	}
}

// TestRecordFeed verifies feed request counting.
func TestRecordFeed(t *testing.T) {
	tenant := "tenant-feed-test"
	before := testutil.ToFloat64(FeedRequestsTotal.WithLabelValues(tenant))
	RecordFeed(tenant, 12)
	RecordFeed(tenant, 0)
	if got := testutil.ToFloat64(FeedRequestsTotal.WithLabelValues(tenant)); got != before+2 {
		t.Errorf("feed requests = %v, want %v", got, before+2)
	}
}

// TestRecordDBQuery verifies error counting only happens on failure.
func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		table     string
		err       error
		wantErrs  float64
	}{
		{name: "successful select", operation: "select", table: "products", err: nil, wantErrs: 0},
		{name: "failed insert", operation: "insert", table: "association_rules", err: errors.New("constraint violation"), wantErrs: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(DBQueryErrors.WithLabelValues(tt.operation, tt.table))
			RecordDBQuery(tt.operation, tt.table, 3*time.Millisecond, tt.err)
			after := testutil.ToFloat64(DBQueryErrors.WithLabelValues(tt.operation, tt.table))
			if after-before != tt.wantErrs {
				t.Errorf("error delta = %v, want %v", after-before, tt.wantErrs)
			}
		})
	}
}

// TestRecordAuthAttempt verifies label routing for auth outcomes.
func TestRecordAuthAttempt(t *testing.T) {
	before := testutil.ToFloat64(AuthAttempts.WithLabelValues("login", "false"))
	RecordAuthAttempt("login", false)
	if got := testutil.ToFloat64(AuthAttempts.WithLabelValues("login", "false")); got != before+1 {
		t.Errorf("auth attempts = %v, want %v", got, before+1)
	}
}
