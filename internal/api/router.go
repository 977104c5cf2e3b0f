// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires handlers and middleware into the HTTP route tree.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter creates a router from the handler set and middleware factory.
func NewRouter(handler *Handler, mw *Middleware) *Router {
	return &Router{handler: handler, middleware: mw}
}

// Setup builds the full route tree.
//
// Public:    /healthz/*, /metrics, /api/v1/auth/*
// Protected: everything else under /api/v1, behind Bearer auth.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())

	r.Route("/healthz", func(r chi.Router) {
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(router.middleware.RateLimitAuth())
		r.Use(Prometheus())
		r.Post("/register", router.handler.Register)
		r.Post("/login", router.handler.Login)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(Prometheus())
		r.Use(router.middleware.Authenticate)

		r.Post("/products", router.handler.UpsertProducts)
		r.Get("/products", router.handler.ListProducts)
		r.Post("/transactions", router.handler.IngestTransactions)

		r.Post("/train", router.handler.Train)
		r.Get("/train/status", router.handler.TrainStatus)

		r.Get("/recommendations", router.handler.Recommendations)
		r.Get("/recommendations/collaborative/{shopperID}", router.handler.Collaborative)
		r.Get("/recommendations/similar/{productID}", router.handler.Similar)
		r.Post("/recommendations/affinity", router.handler.Affinity)

		r.Get("/rules", router.handler.Rules)
	})

	return r
}
