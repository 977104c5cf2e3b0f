// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

package algorithms

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/rameshwar8767/shopfusion/internal/recommend"
)

// itemsetKey joins sorted items into a canonical map key. The separator
// is a control character that never survives text normalization.
const itemsetSep = "\x1f"

// RuleMiner mines association rules from baskets with the Apriori
// algorithm. Itemset size is capped by MaxItemsetSize, which keeps the
// candidate space tractable on wide catalogs.
type RuleMiner struct {
	minSupport    float64
	minConfidence float64
	minLift       float64
	maxItemset    int
}

// NewRuleMiner creates a miner from engine config.
func NewRuleMiner(cfg *recommend.Config) *RuleMiner {
	return &RuleMiner{
		minSupport:    cfg.MinSupport,
		minConfidence: cfg.MinConfidence,
		minLift:       cfg.MinLift,
		maxItemset:    cfg.MaxItemsetSize,
	}
}

// Mine returns rules sorted by lift descending. Cancellation is checked
// between candidate generations and during counting; a cancelled run
// returns the context error and no partial rules.
func (r *RuleMiner) Mine(ctx context.Context, baskets []recommend.Basket) ([]recommend.AssociationRule, error) {
	if len(baskets) == 0 {
		return []recommend.AssociationRule{}, nil
	}

	sets := make([]map[string]struct{}, len(baskets))
	for i, b := range baskets {
		set := make(map[string]struct{}, len(b))
		for _, item := range b {
			set[item] = struct{}{}
		}
		sets[i] = set
	}
	total := float64(len(sets))

	// support holds the relative support of every frequent itemset across
	// all sizes, keyed canonically.
	support := make(map[string]float64)

	// L1: frequent single items.
	counts := make(map[string]int)
	for _, set := range sets {
		for item := range set {
			counts[item]++
		}
	}
	var frequent [][]string
	for item, c := range counts {
		if s := float64(c) / total; s >= r.minSupport {
			support[item] = s
			frequent = append(frequent, []string{item})
		}
	}
	sortItemsets(frequent)

	var allFrequent [][]string
	allFrequent = append(allFrequent, frequent...)

	for k := 2; k <= r.maxItemset && len(frequent) > 0; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		candidates := r.generateCandidates(frequent, support)
		frequent = frequent[:0]
		for i, cand := range candidates {
			if i%256 == 0 && ContextCancelled(ctx) {
				return nil, ctx.Err()
			}
			c := 0
			for _, set := range sets {
				if containsAll(set, cand) {
					c++
				}
			}
			if s := float64(c) / total; s >= r.minSupport {
				support[strings.Join(cand, itemsetSep)] = s
				frequent = append(frequent, cand)
			}
		}
		allFrequent = append(allFrequent, frequent...)
	}

	rules := r.deriveRules(allFrequent, support)
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Lift != rules[j].Lift {
			return rules[i].Lift > rules[j].Lift
		}
		if rules[i].Confidence != rules[j].Confidence {
			return rules[i].Confidence > rules[j].Confidence
		}
		return rules[i].Support > rules[j].Support
	})
	return rules, nil
}

// generateCandidates joins frequent (k-1)-itemsets sharing a common
// prefix, then prunes candidates with an infrequent subset. Itemsets are
// kept sorted so the join is a prefix comparison.
func (r *RuleMiner) generateCandidates(frequent [][]string, support map[string]float64) [][]string {
	var candidates [][]string
	for i := 0; i < len(frequent); i++ {
		for j := i + 1; j < len(frequent); j++ {
			a, b := frequent[i], frequent[j]
			if !samePrefix(a, b) {
				// Frequent sets are sorted, so once prefixes diverge no
				// later j can match either.
				break
			}
			cand := make([]string, len(a)+1)
			copy(cand, a)
			cand[len(a)] = b[len(b)-1]
			if cand[len(a)-1] > cand[len(a)] {
				cand[len(a)-1], cand[len(a)] = cand[len(a)], cand[len(a)-1]
			}
			if r.allSubsetsFrequent(cand, support) {
				candidates = append(candidates, cand)
			}
		}
	}
	return candidates
}

// allSubsetsFrequent applies the antimonotone property: every (k-1)
// subset of a frequent k-itemset must itself be frequent.
func (r *RuleMiner) allSubsetsFrequent(cand []string, support map[string]float64) bool {
	sub := make([]string, len(cand)-1)
	for skip := range cand {
		copy(sub, cand[:skip])
		copy(sub[skip:], cand[skip+1:])
		if _, ok := support[strings.Join(sub, itemsetSep)]; !ok {
			return false
		}
	}
	return true
}

// deriveRules emits one rule per non-empty proper subset used as
// antecedent of each frequent itemset of size >= 2. Metrics with broken
// denominators sanitize to 0 and fall to the threshold filter.
func (r *RuleMiner) deriveRules(frequent [][]string, support map[string]float64) []recommend.AssociationRule {
	rules := []recommend.AssociationRule{}
	for _, itemset := range frequent {
		if len(itemset) < 2 {
			continue
		}
		itemsetSupport := support[strings.Join(itemset, itemsetSep)]
		for mask := 1; mask < (1<<len(itemset))-1; mask++ {
			var ante, cons []string
			for bit, item := range itemset {
				if mask&(1<<bit) != 0 {
					ante = append(ante, item)
				} else {
					cons = append(cons, item)
				}
			}
			anteSupport := support[strings.Join(ante, itemsetSep)]
			consSupport := support[strings.Join(cons, itemsetSep)]

			confidence := sanitizeMetric(itemsetSupport / anteSupport)
			lift := sanitizeMetric(confidence / consSupport)
			if confidence < r.minConfidence || lift < r.minLift {
				continue
			}
			rules = append(rules, recommend.AssociationRule{
				Antecedents: ante,
				Consequents: cons,
				Support:     round4(itemsetSupport),
				Confidence:  round4(confidence),
				Lift:        round4(lift),
			})
		}
	}
	return rules
}

func sanitizeMetric(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func containsAll(set map[string]struct{}, items []string) bool {
	for _, item := range items {
		if _, ok := set[item]; !ok {
			return false
		}
	}
	return true
}

func samePrefix(a, b []string) bool {
	for i := 0; i < len(a)-1; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortItemsets(sets [][]string) {
	sort.Slice(sets, func(i, j int) bool {
		a, b := sets[i], sets[j]
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
}

// RuleIndex answers cart affinity queries by indexing rules on each
// antecedent member.
type RuleIndex struct {
	rules  []recommend.AssociationRule
	byItem map[string][]int
}

// NewRuleIndex indexes the given rules. The slice is retained.
func NewRuleIndex(rules []recommend.AssociationRule) *RuleIndex {
	idx := &RuleIndex{
		rules:  rules,
		byItem: make(map[string][]int),
	}
	for i := range rules {
		for _, item := range rules[i].Antecedents {
			idx.byItem[item] = append(idx.byItem[item], i)
		}
	}
	return idx
}

// PredictAffinity returns up to topN products implied by the cart
// contents, highest score first. A rule fires when any of its
// antecedents is in the cart, so a single item triggers multi-item
// rules it participates in; each fired consequent scores
// confidence * lift, and a product keeps its best score across rules.
// Cart items are never echoed back.
func (idx *RuleIndex) PredictAffinity(cartIDs []string, topN int) []recommend.ScoredProduct {
	if len(cartIDs) == 0 {
		return []recommend.ScoredProduct{}
	}
	cart := make(map[string]struct{}, len(cartIDs))
	for _, id := range cartIDs {
		cart[id] = struct{}{}
	}

	best := make(map[string]float64)
	seen := make(map[int]struct{})
	for _, id := range cartIDs {
		for _, ri := range idx.byItem[id] {
			if _, done := seen[ri]; done {
				continue
			}
			seen[ri] = struct{}{}
			rule := &idx.rules[ri]
			score := round4(rule.Confidence * rule.Lift)
			for _, cons := range rule.Consequents {
				if _, inCart := cart[cons]; inCart {
					continue
				}
				if score > best[cons] {
					best[cons] = score
				}
			}
		}
	}

	out := make([]recommend.ScoredProduct, 0, len(best))
	for id, score := range best {
		out = append(out, recommend.ScoredProduct{ProductID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ProductID < out[j].ProductID
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
