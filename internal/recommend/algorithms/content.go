// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package algorithms

import (
	"math"
	"sort"

	"github.com/rameshwar8767/shopfusion/internal/recommend"
)

// TFIDF implements content-based similarity over product text.
//
// Each product document is vectorized with smoothed TF-IDF:
//
//	idf(t) = ln((1 + N) / (1 + df(t))) + 1
//
// and L2-normalized, so cosine similarity reduces to a sparse dot
// product. The vocabulary keeps the most frequent terms up to the
// configured budget, after stopword removal.
type TFIDF struct {
	vocab map[string]int

	productIDs   []string
	productIndex map[string]int

	// vectors holds L2-normalized sparse TF-IDF vectors, parallel to
	// productIDs.
	vectors []map[int]float64

	similarityThreshold float64
	profileThreshold    float64
}

// NewTFIDF builds the content model from a prepared corpus.
func NewTFIDF(corpus []recommend.CorpusDoc, cfg *recommend.Config) *TFIDF {
	m := &TFIDF{
		vocab:               make(map[string]int),
		productIndex:        make(map[string]int, len(corpus)),
		similarityThreshold: cfg.SimilarityThreshold,
		profileThreshold:    cfg.ProfileThreshold,
	}

	docs := make([][]string, 0, len(corpus))
	termTotals := make(map[string]int)
	for _, doc := range corpus {
		if _, dup := m.productIndex[doc.ProductID]; dup {
			continue
		}
		tokens := recommend.Tokenize(doc.Text)
		kept := tokens[:0]
		for _, tok := range tokens {
			if isStopword(tok) {
				continue
			}
			kept = append(kept, tok)
			termTotals[tok]++
		}
		m.productIndex[doc.ProductID] = len(m.productIDs)
		m.productIDs = append(m.productIDs, doc.ProductID)
		docs = append(docs, kept)
	}

	m.buildVocabulary(termTotals, cfg.VocabularySize)
	m.vectorize(docs)
	return m
}

// buildVocabulary keeps the maxTerms most frequent terms, ties broken
// alphabetically so the mapping is deterministic.
func (m *TFIDF) buildVocabulary(termTotals map[string]int, maxTerms int) {
	terms := make([]string, 0, len(termTotals))
	for t := range termTotals {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if termTotals[terms[i]] != termTotals[terms[j]] {
			return termTotals[terms[i]] > termTotals[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if maxTerms > 0 && len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	// Index alphabetically within the selected set.
	sort.Strings(terms)
	for i, t := range terms {
		m.vocab[t] = i
	}
}

func (m *TFIDF) vectorize(docs [][]string) {
	n := len(docs)
	df := make([]int, len(m.vocab))
	counts := make([]map[int]float64, n)
	for d, tokens := range docs {
		vec := make(map[int]float64)
		for _, tok := range tokens {
			if idx, ok := m.vocab[tok]; ok {
				vec[idx]++
			}
		}
		for idx := range vec {
			df[idx]++
		}
		counts[d] = vec
	}

	idf := make([]float64, len(m.vocab))
	for i := range idf {
		idf[i] = math.Log(float64(1+n)/float64(1+df[i])) + 1
	}

	m.vectors = make([]map[int]float64, n)
	for d, vec := range counts {
		for idx, tf := range vec {
			vec[idx] = tf * idf[idx]
		}
		l2Normalize(vec)
		m.vectors[d] = vec
	}
}

// SimilarTo returns products whose cosine similarity with the given one
// exceeds the similarity threshold, excluding the product itself. topN
// <= 0 means all. Unknown products get an empty map.
func (m *TFIDF) SimilarTo(productID string, topN int) map[string]float64 {
	d, ok := m.productIndex[productID]
	if !ok {
		return map[string]float64{}
	}
	target := m.vectors[d]
	scores := make(map[string]float64)
	for other, vec := range m.vectors {
		if other == d {
			continue
		}
		if sim := sparseDot(target, vec); sim > m.similarityThreshold {
			scores[m.productIDs[other]] = round4(sim)
		}
	}
	return topNFromMap(scores, topN)
}

// PredictForUser scores products against the normalized centroid of the
// given purchase history, excluding the history itself. Scores at or
// below the profile threshold are dropped. An empty or unknown history
// yields an empty map.
func (m *TFIDF) PredictForUser(historyIDs []string, topN int) map[string]float64 {
	centroid := make(map[int]float64)
	known := make(map[int]struct{}, len(historyIDs))
	for _, id := range historyIDs {
		d, ok := m.productIndex[id]
		if !ok {
			continue
		}
		known[d] = struct{}{}
		for idx, v := range m.vectors[d] {
			centroid[idx] += v
		}
	}
	if len(known) == 0 {
		return map[string]float64{}
	}
	l2Normalize(centroid)

	scores := make(map[string]float64)
	for d, vec := range m.vectors {
		if _, owned := known[d]; owned {
			continue
		}
		if sim := sparseDot(centroid, vec); sim > m.profileThreshold {
			scores[m.productIDs[d]] = round4(sim)
		}
	}
	return topNFromMap(scores, topN)
}

// VocabularySize returns the number of indexed terms.
func (m *TFIDF) VocabularySize() int {
	return len(m.vocab)
}
