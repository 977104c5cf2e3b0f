// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package algorithms

import (
	"sort"

	"github.com/rameshwar8767/shopfusion/internal/recommend"
)

// Collaborative implements user-based collaborative filtering over
// purchase counts.
//
// Each shopper becomes a row vector of per-product purchase counts. For
// a target shopper u and candidate product i:
//
//	score(u, i) = sum_v sim(u, v) * count(v, i)
//
// where sim is cosine similarity between purchase vectors. Products the
// shopper already bought are excluded and only positive scores are kept.
type Collaborative struct {
	shopperIDs   []string
	shopperIndex map[string]int
	productIDs   []string
	productIndex map[string]int

	// matrix is shoppers x products purchase counts.
	matrix [][]float64

	// sim is the precomputed shopper-shopper cosine similarity matrix.
	sim [][]float64
}

// NewCollaborative builds the model from raw transactions. Every line
// item contributes one unit to its (shopper, product) cell, so buying a
// product across multiple trips strengthens the signal. Items without a
// product id and transactions without a shopper id are skipped.
func NewCollaborative(transactions []recommend.Transaction) *Collaborative {
	c := &Collaborative{
		shopperIndex: make(map[string]int),
		productIndex: make(map[string]int),
	}

	cells := make(map[int]map[int]float64)
	for i := range transactions {
		txn := &transactions[i]
		if txn.ShopperID == "" {
			continue
		}
		u, ok := c.shopperIndex[txn.ShopperID]
		if !ok {
			u = len(c.shopperIDs)
			c.shopperIndex[txn.ShopperID] = u
			c.shopperIDs = append(c.shopperIDs, txn.ShopperID)
			cells[u] = make(map[int]float64)
		}
		for _, item := range txn.Items {
			if item.ProductID == "" {
				continue
			}
			p, ok := c.productIndex[item.ProductID]
			if !ok {
				p = len(c.productIDs)
				c.productIndex[item.ProductID] = p
				c.productIDs = append(c.productIDs, item.ProductID)
			}
			cells[u][p]++
		}
	}

	c.matrix = make([][]float64, len(c.shopperIDs))
	for u := range c.matrix {
		row := make([]float64, len(c.productIDs))
		for p, v := range cells[u] {
			row[p] = v
		}
		c.matrix[u] = row
	}

	c.sim = make([][]float64, len(c.matrix))
	for u := range c.matrix {
		c.sim[u] = make([]float64, len(c.matrix))
		c.sim[u][u] = 1
		for v := 0; v < u; v++ {
			s := cosineDense(c.matrix[u], c.matrix[v])
			c.sim[u][v] = s
			c.sim[v][u] = s
		}
	}
	return c
}

// Recommend returns up to topN positive scores for products the shopper
// has not bought, rounded to 4 decimals. topN <= 0 means all. Unknown
// shoppers get an empty map.
func (c *Collaborative) Recommend(shopperID string, topN int) map[string]float64 {
	u, ok := c.shopperIndex[shopperID]
	if !ok {
		return map[string]float64{}
	}

	// Self similarity is 1, so the shopper's own purchases contribute to
	// raw scores; they are excluded below rather than zeroed out, matching
	// a similarity-weighted sum over all neighbors.
	raw := make([]float64, len(c.productIDs))
	for v, s := range c.sim[u] {
		if s == 0 {
			continue
		}
		row := c.matrix[v]
		for p, count := range row {
			if count != 0 {
				raw[p] += s * count
			}
		}
	}

	owned := c.matrix[u]
	scores := make(map[string]float64)
	for p, score := range raw {
		if owned[p] > 0 || score <= 0 {
			continue
		}
		scores[c.productIDs[p]] = round4(score)
	}
	return topNFromMap(scores, topN)
}

// History returns the product ids the shopper has purchased, ordered by
// first appearance in the training data.
func (c *Collaborative) History(shopperID string) []string {
	u, ok := c.shopperIndex[shopperID]
	if !ok {
		return nil
	}
	var out []string
	for p, count := range c.matrix[u] {
		if count > 0 {
			out = append(out, c.productIDs[p])
		}
	}
	return out
}

// Shoppers returns the known shopper ids, sorted.
func (c *Collaborative) Shoppers() []string {
	out := make([]string, len(c.shopperIDs))
	copy(out, c.shopperIDs)
	sort.Strings(out)
	return out
}
