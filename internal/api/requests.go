// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package api

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/rameshwar8767/shopfusion/internal/recommend"
)

// registerRequest is the body for POST /api/v1/auth/register.
type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"omitempty,max=120"`
}

// loginRequest is the body for POST /api/v1/auth/login.
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// authResponse carries the account and token returned by both auth endpoints.
type authResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Token  string `json:"token"`
}

// productPayload is one product in a POST /api/v1/products batch. Expiry
// accepts RFC3339, bare dates, Mongo-style $date objects and epoch millis,
// so exports from existing retail systems load without reformatting.
type productPayload struct {
	ProductID   string          `json:"productId" validate:"required,max=128"`
	Name        string          `json:"name" validate:"required,max=256"`
	Category    string          `json:"category" validate:"omitempty,max=128"`
	Description string          `json:"description" validate:"omitempty,max=2048"`
	Price       float64         `json:"price" validate:"gte=0"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Discount    float64         `json:"discount" validate:"gte=0,lte=100"`
	ExpiryDate  json.RawMessage `json:"expiryDate,omitempty"`
}

// toProduct converts the payload into the domain product for a tenant.
func (p *productPayload) toProduct(tenantID string) (recommend.Product, error) {
	product := recommend.Product{
		ProductID:   p.ProductID,
		TenantID:    tenantID,
		Name:        p.Name,
		Category:    p.Category,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Discount:    p.Discount,
		Status:      recommend.ProductActive,
	}
	if len(p.ExpiryDate) > 0 && string(p.ExpiryDate) != "null" {
		expiry, err := recommend.ParseFlexibleTime(p.ExpiryDate)
		if err != nil {
			return recommend.Product{}, fmt.Errorf("product %s: %w", p.ProductID, err)
		}
		product.ExpiryDate = &expiry
	}
	return product, nil
}

// transactionItemPayload is one line item in a transaction.
type transactionItemPayload struct {
	ProductID string  `json:"productId" validate:"required,max=128"`
	Quantity  int     `json:"quantity" validate:"omitempty,gte=1"`
	Price     float64 `json:"price" validate:"gte=0"`
}

// transactionPayload is one transaction in a POST /api/v1/transactions batch.
type transactionPayload struct {
	ShopperID string                   `json:"shopperId" validate:"required,max=128"`
	Items     []transactionItemPayload `json:"items" validate:"required,min=1,dive"`
	CreatedAt json.RawMessage          `json:"createdAt,omitempty"`
}

// toTransaction converts the payload into the domain transaction.
// A missing timestamp defaults to the ingestion time.
func (p *transactionPayload) toTransaction(tenantID string, now time.Time) (recommend.Transaction, error) {
	txn := recommend.Transaction{
		TenantID:  tenantID,
		ShopperID: p.ShopperID,
		CreatedAt: now.UTC(),
	}
	if len(p.CreatedAt) > 0 && string(p.CreatedAt) != "null" {
		ts, err := recommend.ParseFlexibleTime(p.CreatedAt)
		if err != nil {
			return recommend.Transaction{}, fmt.Errorf("transaction for shopper %s: %w", p.ShopperID, err)
		}
		txn.CreatedAt = ts
	}
	for _, item := range p.Items {
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		txn.Items = append(txn.Items, recommend.TransactionItem{
			ProductID: item.ProductID,
			Quantity:  qty,
			Price:     item.Price,
		})
	}
	return txn, nil
}

// affinityRequest is the body for POST /api/v1/recommendations/affinity.
type affinityRequest struct {
	Cart []string `json:"cart" validate:"required,min=1,max=100,dive,required"`
	TopN int      `json:"topN" validate:"omitempty,gte=1,lte=100"`
}

// rulesRequest validates the query parameters of GET /api/v1/rules.
type rulesRequest struct {
	Sort   string `validate:"omitempty,oneof=lift confidence support"`
	Limit  int    `validate:"gte=1,lte=200"`
	Offset int    `validate:"gte=0"`
}

// trainRequest is the optional body for POST /api/v1/train. Zero values
// leave the engine defaults untouched.
type trainRequest struct {
	MinSupport    float64 `json:"minSupport" validate:"gte=0,lte=1"`
	MinConfidence float64 `json:"minConfidence" validate:"gte=0,lte=1"`
	MinLift       float64 `json:"minLift" validate:"gte=0"`
}
