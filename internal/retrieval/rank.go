package retrieval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/potatoman03/shopmcp/internal/model"
)

// Budget clamps v2's budget_min_cents/budget_max_cents arguments.
type Budget struct {
	MinCents *int64
	MaxCents *int64
}

// ExcludeReason names why a candidate never reached scoring.
type ExcludeReason string

const (
	ExcludeNone         ExcludeReason = ""
	ExcludeUnavailable  ExcludeReason = "unavailable"
	ExcludeOverBudget   ExcludeReason = "over_budget"
	ExcludeLowRelevance ExcludeReason = "low_relevance"
)

// ScoredResult is a single v2 candidate after scoring, ready for sort
// and enrichment.
type ScoredResult struct {
	Product    model.Product
	Relevance  float64
	BudgetFit  float64
	AvailFit   float64
	ToneFitVal float64
	ToneMatch  bool
	Score      float64
	Rank       int
	WhyMatch   string
	FitSignals []string
}

// Classify decides whether a candidate is excluded outright, matching
// spec's excluded_counts accounting: availability first, then budget,
// then relevance.
func Classify(p model.Product, relevance float64, availableOnly bool, budget Budget) ExcludeReason {
	if availableOnly && !p.Available {
		return ExcludeUnavailable
	}
	if budget.MaxCents != nil && p.PriceMin != nil && *p.PriceMin > *budget.MaxCents {
		return ExcludeOverBudget
	}
	if budget.MinCents != nil && p.PriceMax != nil && *p.PriceMax < *budget.MinCents {
		return ExcludeOverBudget
	}
	if relevance <= 0 {
		return ExcludeLowRelevance
	}
	return ExcludeNone
}

// BudgetFit scores price fit against the requested budget window.
func BudgetFit(p model.Product, budget Budget) float64 {
	if budget.MinCents == nil && budget.MaxCents == nil {
		return 1.0
	}
	if p.PriceMin == nil && p.PriceMax == nil {
		return 0.5
	}
	if budget.MaxCents != nil && p.PriceMin != nil && *p.PriceMin > *budget.MaxCents {
		return 0
	}
	if budget.MinCents != nil && p.PriceMax != nil && *p.PriceMax < *budget.MinCents {
		return 0
	}
	if budget.MaxCents == nil || p.PriceMin == nil {
		return 0.5
	}
	denom := *budget.MaxCents
	if denom < 1 {
		denom = 1
	}
	fit := 1 - (float64(*p.PriceMin)/float64(denom))*0.5
	if fit < 0.1 {
		fit = 0.1
	}
	return fit
}

// Score combines relevance, budget fit, availability fit, and tone fit
// into the weighted v2 score and builds the why_match/fit_signals
// enrichments.
func Score(p model.Product, relevance float64, availableOnly bool, budget Budget, tone string) ScoredResult {
	budgetFit := BudgetFit(p, budget)

	availFit := 0.0
	if p.Available {
		availFit = 1.0
	}

	toneFit, toneMatch := ToneFit(tone, CollectTokens(p))

	score := 0.50*relevance + 0.20*budgetFit + 0.15*availFit + 0.10*toneFit + 0.05

	r := ScoredResult{
		Product:    p,
		Relevance:  relevance,
		BudgetFit:  budgetFit,
		AvailFit:   availFit,
		ToneFitVal: toneFit,
		ToneMatch:  toneMatch,
		Score:      score,
	}
	r.WhyMatch, r.FitSignals = enrich(p, relevance, budgetFit, availFit, tone, toneMatch)
	return r
}

func enrich(p model.Product, relevance, budgetFit, availFit float64, tone string, toneMatch bool) (string, []string) {
	var clauses []string
	var signals []string

	if relevance > 0 {
		clauses = append(clauses, "Matches query intent")
		signals = append(signals, "intent_match")
	}
	if budgetFit > 0 && budgetFit < 1.0 {
		clauses = append(clauses, "within budget")
		signals = append(signals, "under_budget")
	}
	if availFit == 1.0 {
		signals = append(signals, "in_stock")
	}
	if toneMatch {
		clauses = append(clauses, "shade fit signal detected")
		if tone == "dark" {
			signals = append(signals, "deeper_shade_signal")
		} else {
			signals = append(signals, "skin_tone_signal")
		}

		aligned := ToneAlignedOptionValues(p, tone)
		if len(aligned) > 0 {
			preview := CapOptionPreview(aligned, 5, "more")
			clauses = append(clauses, fmt.Sprintf("tone-aligned options: %s", strings.Join(preview, ", ")))
			signals = append(signals, "recommended_option")
		}
	}

	return strings.Join(clauses, "; "), signals
}

// CollectTokens gathers lowercase word tokens from every text surface
// the tone-matching and intent signals consider: title, product type,
// handle, tags, option tokens, and variant titles/option values.
func CollectTokens(p model.Product) []string {
	var tokens []string
	tokens = append(tokens, splitWords(p.Title)...)
	tokens = append(tokens, splitWords(p.ProductType)...)
	tokens = append(tokens, splitWords(p.Handle)...)
	tokens = append(tokens, p.Tags...)
	tokens = append(tokens, p.OptionTokens...)
	for _, v := range p.Variants {
		tokens = append(tokens, splitWords(v.Title)...)
		for _, val := range v.Options {
			tokens = append(tokens, splitWords(val)...)
		}
	}
	return tokens
}

func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

// ToneAlignedOptionValues returns the distinct variant option values
// that matched the tone's synonym set, for the why_match sentence.
func ToneAlignedOptionValues(p model.Product, tone string) []string {
	synonyms, ok := toneSynonyms[tone]
	if !ok {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	for _, v := range p.Variants {
		for _, val := range v.Options {
			for _, word := range splitWords(val) {
				if _, hit := synonyms[word]; hit {
					if _, dup := seen[val]; !dup {
						seen[val] = struct{}{}
						out = append(out, val)
					}
				}
			}
		}
	}
	sort.Strings(out)
	return out
}

// CapOptionPreview truncates values to max entries, appending a
// "+N <tail>" marker summarizing the rest.
func CapOptionPreview(values []string, max int, tail string) []string {
	if len(values) <= max {
		return values
	}
	extra := len(values) - max
	out := make([]string, 0, max+1)
	out = append(out, values[:max]...)
	out = append(out, fmt.Sprintf("+%d %s", extra, tail))
	return out
}

// SortResults orders results per v2's sort argument: best_match (score
// desc, title asc), price_low_to_high, price_high_to_low.
func SortResults(results []ScoredResult, sortMode string) {
	switch sortMode {
	case "price_low_to_high":
		sort.SliceStable(results, func(i, j int) bool {
			pi, pj := priceOrInf(results[i].Product.PriceMin, true), priceOrInf(results[j].Product.PriceMin, true)
			if pi != pj {
				return pi < pj
			}
			return results[i].Score > results[j].Score
		})
	case "price_high_to_low":
		sort.SliceStable(results, func(i, j int) bool {
			pi, pj := priceOrInf(results[i].Product.PriceMax, false), priceOrInf(results[j].Product.PriceMax, false)
			if pi != pj {
				return pi > pj
			}
			return results[i].Score > results[j].Score
		})
	default: // best_match
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Score != results[j].Score {
				return results[i].Score > results[j].Score
			}
			return results[i].Product.Title < results[j].Product.Title
		})
	}
}

func priceOrInf(p *int64, positiveInf bool) float64 {
	if p == nil {
		if positiveInf {
			return 1e18
		}
		return -1
	}
	return float64(*p)
}
