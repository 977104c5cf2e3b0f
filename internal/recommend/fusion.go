// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// buildFeed fuses the collaborative, content, association and expiry
// signals for one shopper into a ranked feed.
//
// Bundles come from mined rules whose full itemset resolves to at least
// two distinct known products; each scores confidence * lift * the
// highest expiry weight among its members. Individuals blend normalized
// collaborative and content scores (weighted per config), multiplied by
// the product's expiry weight, admitted above MinHybridScore, then run
// through the registered rerankers. Bundles and individuals are merged,
// sorted by score descending, and truncated to maxRecs.
func buildFeed(
	ctx context.Context,
	shopperID string,
	snap *ModelSnapshot,
	resolver *ProductResolver,
	weights *ExpiryWeights,
	rerankers []Reranker,
	cfg *Config,
	maxRecs int,
	now time.Time,
) Feed {
	feed := Feed{
		Entries:     []FeedEntry{},
		NearExpiry:  []ProductSummary{},
		GeneratedAt: now.UTC(),
	}

	for i := range weights.NearExpiry {
		if s, ok := resolver.Summary(weights.NearExpiry[i].EffectiveID()); ok {
			feed.NearExpiry = append(feed.NearExpiry, s)
		}
	}

	bundles := buildBundles(snap.Rules, resolver, weights)

	history := snap.Collaborative.History(shopperID)
	collab := NormalizeScores(snap.Collaborative.Recommend(shopperID, 0))
	content := NormalizeScores(snap.Content.PredictForUser(history, 0))

	owned := make(map[string]struct{}, len(history))
	for _, id := range history {
		owned[id] = struct{}{}
	}

	hybrid := make(map[string]float64, len(collab)+len(content))
	for id := range collab {
		hybrid[id] = 0
	}
	for id := range content {
		hybrid[id] = 0
	}

	individuals := make([]FeedEntry, 0, len(hybrid))
	for id := range hybrid {
		if _, ok := owned[id]; ok {
			continue
		}
		summary, ok := resolver.Summary(id)
		if !ok || summary.Status == ProductExpired {
			continue
		}
		cScore := collab[id]
		tScore := content[id]
		base := cfg.CollabWeight*cScore + cfg.ContentWeight*tScore
		score := Round4(base * weights.Weight(id))
		if score <= cfg.MinHybridScore {
			continue
		}
		individuals = append(individuals, FeedEntry{
			Type:     EntryIndividual,
			Score:    score,
			Products: []ProductSummary{summary},
			Reason:   individualReason(cScore, tScore),
			IsUrgent: weights.Weight(id) > 1.0,
			Signals: map[string]float64{
				"collaborative": Round4(cScore),
				"content":       Round4(tScore),
				"expiry":        weights.Weight(id),
			},
		})
	}

	sortEntries(individuals)
	for _, rr := range rerankers {
		individuals = rr.Rerank(ctx, individuals, maxRecs)
	}

	feed.Entries = append(feed.Entries, bundles...)
	feed.Entries = append(feed.Entries, individuals...)
	sortEntries(feed.Entries)
	if maxRecs > 0 && len(feed.Entries) > maxRecs {
		feed.Entries = feed.Entries[:maxRecs]
	}
	return feed
}

// buildBundles converts mined rules into bundle entries. The itemset is
// the antecedents followed by the consequents, deduplicated in order.
// Rules with fewer than two resolvable members are dropped, as are rules
// containing any expired product.
func buildBundles(rules []AssociationRule, resolver *ProductResolver, weights *ExpiryWeights) []FeedEntry {
	entries := make([]FeedEntry, 0, len(rules))
	for i := range rules {
		rule := &rules[i]
		ids := dedupeOrdered(rule.Antecedents, rule.Consequents)

		summaries := make([]ProductSummary, 0, len(ids))
		maxWeight := 1.0
		expired := false
		for _, id := range ids {
			s, ok := resolver.Summary(id)
			if !ok {
				continue
			}
			if s.Status == ProductExpired || weights.Weight(id) == 0 {
				expired = true
				break
			}
			summaries = append(summaries, s)
			if w := weights.Weight(id); w > maxWeight {
				maxWeight = w
			}
		}
		if expired || len(summaries) < 2 {
			continue
		}

		entries = append(entries, FeedEntry{
			Type:     EntryBundle,
			Score:    Round4(rule.Confidence * rule.Lift * maxWeight),
			Products: summaries,
			Reason:   bundleReason(summaries),
			IsUrgent: maxWeight > 1.0,
			Rule: &RuleMetadata{
				Support:    rule.Support,
				Confidence: rule.Confidence,
				Lift:       rule.Lift,
			},
		})
	}
	return entries
}

func dedupeOrdered(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// sortEntries orders by score descending, bundles before individuals on
// ties, then by first product id for determinism.
func sortEntries(entries []FeedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].Type != entries[j].Type {
			return entries[i].Type == EntryBundle
		}
		return firstProductID(entries[i]) < firstProductID(entries[j])
	})
}

func firstProductID(e FeedEntry) string {
	if len(e.Products) == 0 {
		return ""
	}
	return e.Products[0].ProductID
}

func bundleReason(products []ProductSummary) string {
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}
	return fmt.Sprintf("Frequently bought together: %s", strings.Join(names, " + "))
}

func individualReason(collab, content float64) string {
	switch {
	case collab > 0 && content > 0:
		return "Popular with similar shoppers and matches your purchases"
	case collab > 0:
		return "Popular with similar shoppers"
	default:
		return "Matches your purchase history"
	}
}
