// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package recommend

import (
	"reflect"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestToBaskets(t *testing.T) {
	tests := []struct {
		name          string
		transactions  []Transaction
		minBasketSize int
		want          []Basket
	}{
		{
			name: "duplicates removed in first-seen order",
			transactions: []Transaction{
				{Items: []TransactionItem{
					{ProductID: "milk"},
					{ProductID: "bread"},
					{ProductID: "milk"},
					{ProductID: "eggs"},
				}},
			},
			minBasketSize: 1,
			want:          []Basket{{"milk", "bread", "eggs"}},
		},
		{
			name: "empty product ids skipped",
			transactions: []Transaction{
				{Items: []TransactionItem{
					{ProductID: ""},
					{ProductID: "tea"},
				}},
			},
			minBasketSize: 1,
			want:          []Basket{{"tea"}},
		},
		{
			name: "short baskets dropped",
			transactions: []Transaction{
				{Items: []TransactionItem{{ProductID: "solo"}}},
				{Items: []TransactionItem{{ProductID: "a"}, {ProductID: "b"}}},
			},
			minBasketSize: 2,
			want:          []Basket{{"a", "b"}},
		},
		{
			name:          "no transactions",
			transactions:  nil,
			minBasketSize: 1,
			want:          []Basket{},
		},
		{
			name: "transaction with only empty ids yields nothing",
			transactions: []Transaction{
				{Items: []TransactionItem{{ProductID: ""}}},
			},
			minBasketSize: 1,
			want:          []Basket{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToBaskets(tt.transactions, tt.minBasketSize)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ToBaskets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToNameBaskets(t *testing.T) {
	tests := []struct {
		name          string
		transactions  []Transaction
		minBasketSize int
		want          []Basket
	}{
		{
			name: "names lowercased and trimmed",
			transactions: []Transaction{
				{Items: []TransactionItem{
					{ProductName: "  Whole Milk "},
					{ProductName: "BREAD"},
				}},
			},
			minBasketSize: 1,
			want:          []Basket{{"whole milk", "bread"}},
		},
		{
			name: "case-insensitive dedup",
			transactions: []Transaction{
				{Items: []TransactionItem{
					{ProductName: "Milk"},
					{ProductName: "milk"},
					{ProductName: "Eggs"},
				}},
			},
			minBasketSize: 1,
			want:          []Basket{{"milk", "eggs"}},
		},
		{
			name: "blank names skipped",
			transactions: []Transaction{
				{Items: []TransactionItem{
					{ProductName: "   "},
					{ProductName: "tea"},
				}},
			},
			minBasketSize: 1,
			want:          []Basket{{"tea"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToNameBaskets(tt.transactions, tt.minBasketSize)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ToNameBaskets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToContentCorpus(t *testing.T) {
	products := []Product{
		{ProductID: "p1", Name: "Organic Milk!", Category: "Dairy", Description: "Fresh & creamy."},
		{ID: "internal-2", Name: "Bread", Category: "Bakery"},
		{Name: "no identifier at all"},
	}

	docs := ToContentCorpus(products)
	if len(docs) != 2 {
		t.Fatalf("corpus size = %d, want 2", len(docs))
	}
	if docs[0].ProductID != "p1" {
		t.Errorf("doc id = %q, want p1", docs[0].ProductID)
	}
	// Name and category appear twice, then the description, normalized.
	want := "organic milk organic milk dairy dairy fresh creamy"
	if docs[0].Text != want {
		t.Errorf("doc text = %q, want %q", docs[0].Text, want)
	}
	if docs[1].ProductID != "internal-2" {
		t.Errorf("fallback id = %q, want internal-2", docs[1].ProductID)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "punctuation stripped", input: "Milk, 2% (Fresh)!", want: "milk 2 fresh"},
		{name: "whitespace collapsed", input: "  a \t b\n c ", want: "a b c"},
		{name: "already clean", input: "plain words", want: "plain words"},
		{name: "empty", input: "", want: ""},
		{name: "only punctuation", input: "!!!---", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeText(tt.input); got != tt.want {
				t.Errorf("normalizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("A fresh loaf of bread, 2x!")
	want := []string{"fresh", "loaf", "of", "bread", "2x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize() = %v, want %v", got, want)
	}
}

func TestProductResolver(t *testing.T) {
	products := []Product{
		{ID: "db-1", ProductID: "SKU-1", Name: "Milk", Category: "Dairy"},
		{ID: "db-2", Name: "Bulk Rice", Category: "Grains"},
	}
	r := NewProductResolver(products)

	tests := []struct {
		name     string
		id       string
		wantName string
		wantOK   bool
	}{
		{name: "resolve by sku", id: "SKU-1", wantName: "Milk", wantOK: true},
		{name: "resolve by internal id", id: "db-1", wantName: "Milk", wantOK: true},
		{name: "fallback effective id", id: "db-2", wantName: "Bulk Rice", wantOK: true},
		{name: "unknown id", id: "nope", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := r.Resolve(tt.id)
			if tt.wantOK != (p != nil) {
				t.Fatalf("Resolve(%q) found = %v, want %v", tt.id, p != nil, tt.wantOK)
			}
			if p != nil && p.Name != tt.wantName {
				t.Errorf("Resolve(%q).Name = %q, want %q", tt.id, p.Name, tt.wantName)
			}
		})
	}

	t.Run("summary uses effective id", func(t *testing.T) {
		s, ok := r.Summary("db-1")
		if !ok {
			t.Fatal("Summary(db-1) not found")
		}
		if s.ProductID != "SKU-1" {
			t.Errorf("summary id = %q, want SKU-1", s.ProductID)
		}
	})
}

func TestParseFlexibleTime(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Time
		wantErr bool
	}{
		{
			name: "rfc3339",
			raw:  `"2026-03-01T10:30:00Z"`,
			want: time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "naive datetime taken as utc",
			raw:  `"2026-03-01 10:30:00"`,
			want: time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "bare date",
			raw:  `"2026-03-01"`,
			want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "mongo date wrapper with string",
			raw:  `{"$date":"2026-03-01T10:30:00Z"}`,
			want: time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "mongo date wrapper with number long",
			raw:  `{"$date":{"$numberLong":"1767225600000"}}`,
			want: time.UnixMilli(1767225600000).UTC(),
		},
		{
			name: "epoch milliseconds",
			raw:  `1767225600000`,
			want: time.UnixMilli(1767225600000).UTC(),
		},
		{name: "garbage", raw: `"not a date"`, wantErr: true},
		{name: "empty", raw: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFlexibleTime(json.RawMessage(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFlexibleTime(%s) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseFlexibleTime(%s) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
