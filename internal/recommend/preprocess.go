// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package recommend

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/goccy/go-json"
)

// ToBaskets converts transactions into order-preserving, deduplicated
// baskets. Items with an empty product id are skipped. Baskets shorter
// than minBasketSize are dropped. Output order follows input order.
func ToBaskets(transactions []Transaction, minBasketSize int) []Basket {
	if minBasketSize < 1 {
		minBasketSize = 1
	}
	baskets := make([]Basket, 0, len(transactions))
	for _, txn := range transactions {
		seen := make(map[string]struct{}, len(txn.Items))
		basket := make(Basket, 0, len(txn.Items))
		for _, item := range txn.Items {
			id := item.ProductID
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			basket = append(basket, id)
		}
		if len(basket) >= minBasketSize {
			baskets = append(baskets, basket)
		}
	}
	return baskets
}

// ToNameBaskets is the name-keyed variant of ToBaskets for datasets
// where line items carry product names but no stable ids. Names are
// lowercased and trimmed before deduplication.
func ToNameBaskets(transactions []Transaction, minBasketSize int) []Basket {
	if minBasketSize < 1 {
		minBasketSize = 1
	}
	baskets := make([]Basket, 0, len(transactions))
	for _, txn := range transactions {
		seen := make(map[string]struct{}, len(txn.Items))
		basket := make(Basket, 0, len(txn.Items))
		for _, item := range txn.Items {
			name := strings.TrimSpace(strings.ToLower(item.ProductName))
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			basket = append(basket, name)
		}
		if len(basket) >= minBasketSize {
			baskets = append(baskets, basket)
		}
	}
	return baskets
}

// CorpusDoc is one product's text document for TF-IDF training.
type CorpusDoc struct {
	ProductID string
	Text      string
}

// ToContentCorpus builds the text corpus for content-based training.
// Each document repeats the product name and category twice, then adds
// the description, all lowercased with punctuation stripped. The
// repetition weights name and category above the description without a
// separate field weighting scheme. Products with no effective id are
// skipped.
func ToContentCorpus(products []Product) []CorpusDoc {
	docs := make([]CorpusDoc, 0, len(products))
	for i := range products {
		p := &products[i]
		id := p.EffectiveID()
		if id == "" {
			continue
		}
		text := normalizeText(p.Name + " " + p.Name + " " + p.Category + " " + p.Category + " " + p.Description)
		docs = append(docs, CorpusDoc{ProductID: id, Text: text})
	}
	return docs
}

// normalizeText lowercases and replaces every non-alphanumeric rune with a
// space, collapsing runs of whitespace.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokenize splits normalized text into terms, dropping single-character
// tokens the way the vectorizer's default token pattern does.
func Tokenize(text string) []string {
	fields := strings.Fields(normalizeText(text))
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// ProductResolver looks products up tolerantly: by retailer SKU first,
// falling back to internal storage id. Both keys point at the same
// Product value so either identifier resolves.
type ProductResolver struct {
	byEffective map[string]*Product
	byInternal  map[string]*Product
}

// NewProductResolver indexes the given products. The slice must outlive
// the resolver; values are not copied.
func NewProductResolver(products []Product) *ProductResolver {
	r := &ProductResolver{
		byEffective: make(map[string]*Product, len(products)),
		byInternal:  make(map[string]*Product, len(products)),
	}
	for i := range products {
		p := &products[i]
		if id := p.EffectiveID(); id != "" {
			r.byEffective[id] = p
		}
		if p.ID != "" {
			r.byInternal[p.ID] = p
		}
	}
	return r
}

// Resolve returns the product for either identifier form, or nil.
func (r *ProductResolver) Resolve(id string) *Product {
	if p, ok := r.byEffective[id]; ok {
		return p
	}
	if p, ok := r.byInternal[id]; ok {
		return p
	}
	return nil
}

// Summary resolves an id into a display summary, reporting whether the
// product is known.
func (r *ProductResolver) Summary(id string) (ProductSummary, bool) {
	p := r.Resolve(id)
	if p == nil {
		return ProductSummary{}, false
	}
	return ProductSummary{
		ProductID:  p.EffectiveID(),
		Name:       p.Name,
		Category:   p.Category,
		Price:      p.Price,
		Stock:      p.Stock,
		ExpiryDate: p.ExpiryDate,
		Status:     p.Status,
	}, true
}

// ParseFlexibleTime parses timestamps as they appear in exported retail
// data: RFC 3339, bare "2006-01-02 15:04:05" (taken as UTC), bare dates,
// and Mongo extended JSON wrappers like {"$date":"..."} or
// {"$date":{"$numberLong":"1700000000000"}}.
func ParseFlexibleTime(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseTimeString(s)
	}

	var wrapped struct {
		Date json.RawMessage `json:"$date"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Date) > 0 {
		if err := json.Unmarshal(wrapped.Date, &s); err == nil {
			return parseTimeString(s)
		}
		var long struct {
			NumberLong string `json:"$numberLong"`
		}
		if err := json.Unmarshal(wrapped.Date, &long); err == nil && long.NumberLong != "" {
			var ms int64
			if _, err := fmt.Sscanf(long.NumberLong, "%d", &ms); err == nil {
				return time.UnixMilli(ms).UTC(), nil
			}
		}
	}

	var ms int64
	if err := json.Unmarshal(raw, &ms); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %s", string(raw))
}

func parseTimeString(s string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z0700",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
