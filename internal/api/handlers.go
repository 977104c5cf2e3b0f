// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rameshwar8767/shopfusion/internal/auth"
	"github.com/rameshwar8767/shopfusion/internal/logging"
	"github.com/rameshwar8767/shopfusion/internal/recommend"
	"github.com/rameshwar8767/shopfusion/internal/store"
	"github.com/rameshwar8767/shopfusion/internal/validation"
)

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	engine    *recommend.Engine
	auth      *auth.Service
	store     *store.Store
	engineCfg *recommend.Config
	startedAt time.Time
}

// NewHandler creates the handler set. engineCfg is the baseline used when
// a train request supplies per-run overrides.
func NewHandler(engine *recommend.Engine, authSvc *auth.Service, st *store.Store, engineCfg *recommend.Config) *Handler {
	return &Handler{
		engine:    engine,
		auth:      authSvc,
		store:     st,
		engineCfg: engineCfg,
		startedAt: time.Now(),
	}
}

// tenantID resolves the tenant for an authenticated request. Each account
// owns its own catalog, transactions and models.
func (h *Handler) tenantID(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := claimsFrom(r.Context())
	if !ok || claims.UserID == "" {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Missing authentication context", nil)
		return "", false
	}
	return claims.UserID, true
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be valid JSON", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}

	account, token, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			respondError(w, http.StatusConflict, "CONFLICT", "Email already registered", nil)
			return
		}
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), err)
		return
	}

	respondData(w, http.StatusCreated, authResponse{
		UserID: account.ID,
		Email:  account.Email,
		Name:   account.Name,
		Token:  token,
	})
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be valid JSON", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}

	account, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		// Uniform error for unknown email and wrong password.
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "Invalid email or password", nil)
		return
	}

	respondData(w, http.StatusOK, authResponse{
		UserID: account.ID,
		Email:  account.Email,
		Name:   account.Name,
		Token:  token,
	})
}

// UpsertProducts handles POST /api/v1/products. The body is an array of
// products, each inserted or updated by (tenant, productId).
func (h *Handler) UpsertProducts(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	var payloads []productPayload
	if err := decodeJSON(r, &payloads); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be a JSON array of products", err)
		return
	}
	if len(payloads) == 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "At least one product is required", nil)
		return
	}

	for i := range payloads {
		if verr := validation.ValidateStruct(&payloads[i]); verr != nil {
			respondValidationError(w, verr)
			return
		}
	}

	stored := 0
	for i := range payloads {
		product, err := payloads[i].toProduct(tenant)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		if err := h.store.UpsertProduct(r.Context(), product); err != nil {
			respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to store product", err)
			return
		}
		stored++
	}

	respondData(w, http.StatusCreated, map[string]interface{}{"stored": stored})
}

// ListProducts handles GET /api/v1/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	products, err := h.store.Products(r.Context(), tenant)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load products", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"total":    len(products),
		"products": products,
	})
}

// IngestTransactions handles POST /api/v1/transactions. The body is an
// array of transactions appended to the tenant's purchase history.
func (h *Handler) IngestTransactions(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	var payloads []transactionPayload
	if err := decodeJSON(r, &payloads); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be a JSON array of transactions", err)
		return
	}
	if len(payloads) == 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "At least one transaction is required", nil)
		return
	}

	for i := range payloads {
		if verr := validation.ValidateStruct(&payloads[i]); verr != nil {
			respondValidationError(w, verr)
			return
		}
	}

	now := time.Now()
	stored := 0
	for i := range payloads {
		txn, err := payloads[i].toTransaction(tenant, now)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		if err := h.store.InsertTransaction(r.Context(), txn); err != nil {
			respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to store transaction", err)
			return
		}
		stored++
	}

	respondData(w, http.StatusCreated, map[string]interface{}{"stored": stored})
}

// Train handles POST /api/v1/train. Training runs in the background and
// the endpoint answers 202 immediately; 409 when a run is already active.
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	var overrides *recommend.Config
	if r.ContentLength > 0 {
		var req trainRequest
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be valid JSON", err)
			return
		}
		if verr := validation.ValidateStruct(&req); verr != nil {
			respondValidationError(w, verr)
			return
		}
		overrides = h.engineCfg.Clone()
		if req.MinSupport > 0 {
			overrides.MinSupport = req.MinSupport
		}
		if req.MinConfidence > 0 {
			overrides.MinConfidence = req.MinConfidence
		}
		if req.MinLift > 0 {
			overrides.MinLift = req.MinLift
		}
	}

	if h.engine.Status(tenant).IsTraining {
		respondError(w, http.StatusConflict, "TRAINING_IN_PROGRESS", "Training already running for this tenant", nil)
		return
	}

	go func() {
		// Detached from the request context so training survives the
		// client disconnecting after the 202.
		if err := h.engine.Train(context.Background(), tenant, overrides); err != nil {
			if errors.Is(err, recommend.ErrTrainingInProgress) {
				return
			}
			logging.Error().Err(err).Str("tenant", tenant).Msg("Background training failed")
		}
	}()

	respondData(w, http.StatusAccepted, map[string]interface{}{
		"message": "Training started",
	})
}

// TrainStatus handles GET /api/v1/train/status.
func (h *Handler) TrainStatus(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantID(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, h.engine.Status(tenant))
}

// Recommendations handles GET /api/v1/recommendations. The shopperId
// query parameter selects the shopper; limit caps the feed length.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	shopperID := r.URL.Query().Get("shopperId")
	if shopperID == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "shopperId query parameter is required", nil)
		return
	}
	limit := getIntParam(r, "limit", 0)
	if limit < 0 || limit > 100 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 100", nil)
		return
	}

	start := time.Now()
	feed, err := h.engine.Recommend(r.Context(), tenant, shopperID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to build recommendation feed", err)
		return
	}

	respondJSON(w, http.StatusOK, &APIResponse{
		Status: "success",
		Data:   feed,
		Metadata: Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// Collaborative handles GET /api/v1/recommendations/collaborative/{shopperID}.
func (h *Handler) Collaborative(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	shopperID := chi.URLParam(r, "shopperID")
	topN := getIntParam(r, "topN", 0)

	scored, err := h.engine.CollaborativeFor(r.Context(), tenant, shopperID, topN)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to score shopper", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"shopperId":       shopperID,
		"recommendations": scored,
	})
}

// Similar handles GET /api/v1/recommendations/similar/{productID}.
// Scores come from description similarity weighted by expiry and discount.
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	productID := chi.URLParam(r, "productID")
	topN := getIntParam(r, "topN", 0)

	scored, err := h.engine.SimilarProducts(r.Context(), tenant, productID, topN)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to find similar products", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"productId": productID,
		"similar":   scored,
	})
}

// Affinity handles POST /api/v1/recommendations/affinity. The body lists
// the current cart contents; the response suggests likely additions.
func (h *Handler) Affinity(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	var req affinityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be valid JSON", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}

	scored, err := h.engine.CartAffinity(r.Context(), tenant, req.Cart, req.TopN)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to score cart", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"cart":        req.Cart,
		"suggestions": scored,
	})
}

// Rules handles GET /api/v1/rules with sort and offset paging over the
// persisted association rules.
func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	req := rulesRequest{
		Sort:   r.URL.Query().Get("sort"),
		Limit:  getIntParam(r, "limit", 50),
		Offset: getIntParam(r, "offset", 0),
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}

	sortBy := store.RuleSortLift
	switch req.Sort {
	case "confidence":
		sortBy = store.RuleSortConfidence
	case "support":
		sortBy = store.RuleSortSupport
	}

	rules, err := h.store.Rules(r.Context(), tenant, sortBy, req.Limit, req.Offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load rules", err)
		return
	}
	total, err := h.store.CountRules(r.Context(), tenant)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count rules", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"total":  total,
		"limit":  req.Limit,
		"offset": req.Offset,
		"rules":  rules,
	})
}

// HealthLive handles GET /healthz/live. Always succeeds while the
// process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"status": "alive",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// HealthReady handles GET /healthz/ready. Fails when the database is
// unreachable so load balancers stop routing traffic.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "DATABASE_ERROR", "Database not reachable", err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"status": "ready"})
}
