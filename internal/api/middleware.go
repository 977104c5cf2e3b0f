// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/rameshwar8767/shopfusion/internal/auth"
	"github.com/rameshwar8767/shopfusion/internal/logging"
	"github.com/rameshwar8767/shopfusion/internal/metrics"
)

type contextKey string

// claimsContextKey stores the authenticated token claims in the request context.
const claimsContextKey contextKey = "auth_claims"

// MiddlewareConfig holds configuration for the middleware factories.
type MiddlewareConfig struct {
	// CORS origins. Empty by default so deployments must opt in explicitly.
	CORSAllowedOrigins []string

	// Rate limiting for data endpoints.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// DefaultMiddlewareConfig returns a secure default configuration.
func DefaultMiddlewareConfig() *MiddlewareConfig {
	return &MiddlewareConfig{
		CORSAllowedOrigins: []string{},
		RateLimitRequests:  100,
		RateLimitWindow:    time.Minute,
	}
}

// Middleware provides Chi-compatible middleware factories backed by the
// go-chi ecosystem (cors, httprate) plus JWT authentication.
type Middleware struct {
	config *MiddlewareConfig
	auth   *auth.Service
	cors   func(http.Handler) http.Handler
}

// NewMiddleware creates the middleware factory for the router.
func NewMiddleware(config *MiddlewareConfig, authSvc *auth.Service) *Middleware {
	if config == nil {
		config = DefaultMiddlewareConfig()
	}
	if config.RateLimitRequests <= 0 {
		config.RateLimitRequests = 100
	}
	if config.RateLimitWindow <= 0 {
		config.RateLimitWindow = time.Minute
	}

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: config.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	})

	return &Middleware{
		config: config,
		auth:   authSvc,
		cors:   corsHandler,
	}
}

// CORS returns the configured CORS middleware. It must run globally so
// OPTIONS preflight requests reach it before auth checks.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns per-IP rate limiting for data endpoints.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	return httprate.Limit(
		m.config.RateLimitRequests,
		m.config.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

// RateLimitAuth returns stricter rate limiting for credential endpoints
// to slow brute-force attempts.
func (m *Middleware) RateLimitAuth() func(http.Handler) http.Handler {
	return httprate.Limit(
		10,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	metrics.RecordRateLimitHit(r.URL.Path)
	respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many requests", nil)
}

// RequestID adds an X-Request-ID header and propagates it for log correlation.
// Client-supplied IDs are kept so upstream proxies can trace calls end to end.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// Prometheus records request counts, latency and in-flight gauge per route.
// The route pattern comes from chi so path parameters do not explode the
// label cardinality.
func Prometheus() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			metrics.APIActiveRequests.Inc()
			defer metrics.APIActiveRequests.Dec()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			endpoint := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				endpoint = rctx.RoutePattern()
			}
			metrics.RecordAPIRequest(r.Method, endpoint, rec.status, time.Since(start))
		})
	}
}

// Authenticate validates the Bearer token and stores the claims in the
// request context. Every data endpoint sits behind this middleware.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Missing Authorization header", nil)
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Authorization header must be a Bearer token", nil)
			return
		}

		claims, err := m.auth.Validate(token)
		if err != nil {
			logging.Debug().Err(err).Msg("Token validation failed")
			respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Invalid or expired token", nil)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsFrom extracts the authenticated claims placed by Authenticate.
func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims, ok
}
