// Package retrieval implements hybrid lexical+vector product search: the
// legacy search_products path and the richer search_products_v2 path,
// both built on internal/catalog's candidate queries and fused with
// Reciprocal Rank Fusion.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/potatoman03/shopmcp/internal/cache"
	"github.com/potatoman03/shopmcp/internal/catalog"
	"github.com/potatoman03/shopmcp/internal/embedding"
	"github.com/potatoman03/shopmcp/internal/model"
	"github.com/potatoman03/shopmcp/internal/payload"
	"github.com/potatoman03/shopmcp/internal/tenant"
)

// Service orchestrates both search paths against a single catalog
// repository, slug resolver, and embedder.
type Service struct {
	Repo      *catalog.Repository
	Resolver  *tenant.Resolver
	Embedder  embedding.Embedder
	V2Cache   *cache.TTLCache[string, map[string]any]
	V2Enabled bool
	ShadowRate float64
	Logger    *slog.Logger
}

// LegacyParams are search_products' bounded arguments.
type LegacyParams struct {
	Query         string
	Limit         int
	AvailableOnly bool
	SlugArg       string
}

// Search implements the legacy search_products tool.
func (s *Service) Search(ctx context.Context, p LegacyParams) (any, error) {
	query := strings.TrimSpace(p.Query)
	if query == "" {
		return []any{}, nil
	}

	limit := clampInt(p.Limit, 1, 50)
	candidateLimit := maxInt(120, limit*10)

	storeSlug, err := s.Resolver.Resolve(ctx, p.SlugArg, query)
	if err != nil {
		return nil, err
	}

	fusedScores, err := s.fuseCandidates(ctx, storeSlug, query, candidateLimit)
	if err != nil {
		return nil, err
	}
	fused := Fuse(fusedScores, maxInt(limit*5, limit))

	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ProductID
	}
	products, err := s.Repo.FetchProducts(ctx, storeSlug, ids)
	if err != nil {
		return nil, err
	}

	results := make([]any, 0, limit)
	for _, f := range fused {
		product, ok := products[f.ProductID]
		if !ok {
			continue
		}
		if p.AvailableOnly && !product.Available {
			continue
		}
		summary := summarize(product, f.Score)
		summary["store_slug"] = storeSlug
		results = append(results, summary)
		if len(results) >= limit {
			break
		}
	}

	s.maybeShadowSample(ctx, p, storeSlug, len(results))

	return payload.Format(results, "tags"), nil
}

// fuseCandidates runs the lexical and (if enabled) vector candidate
// queries concurrently and returns both rankings for RRF fusion.
func (s *Service) fuseCandidates(ctx context.Context, storeSlug, query string, candidateLimit int) ([][]catalog.RankedCandidate, error) {
	var lexical, vector []catalog.RankedCandidate

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lexical, err = s.Repo.LexicalCandidates(gctx, storeSlug, query, candidateLimit)
		return err
	})
	g.Go(func() error {
		if s.Embedder == nil || !s.Embedder.Enabled() {
			return nil
		}
		vec, err := s.Embedder.Embed(gctx, query)
		if err != nil {
			// Embedding errors degrade to lexical-only, not a hard failure.
			return nil
		}
		rows, err := s.Repo.VectorCandidates(gctx, storeSlug, vec, candidateLimit)
		if err != nil {
			return nil
		}
		vector = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("retrieval: candidate fetch: %w", err)
	}

	return [][]catalog.RankedCandidate{vector, lexical}, nil
}

func summarize(p model.Product, score float64) map[string]any {
	priceMin, priceMax := p.PriceMin, p.PriceMax
	available := p.Available
	if len(p.Variants) > 0 {
		available = false
		for _, v := range p.Variants {
			if v.PriceCent != nil {
				if priceMin == nil || *v.PriceCent < *priceMin {
					priceMin = v.PriceCent
				}
				if priceMax == nil || *v.PriceCent > *priceMax {
					priceMax = v.PriceCent
				}
			}
			if v.Available {
				available = true
			}
		}
	}

	return map[string]any{
		"title":         p.Title,
		"handle":        p.Handle,
		"price_min":     derefOrNil(priceMin),
		"price_max":     derefOrNil(priceMax),
		"available":     available,
		"variant_count": len(p.Variants),
		"url":           p.URL,
		"product_url":   p.URL,
		"score":         roundTo(score, 6),
	}
}

func derefOrNil(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func roundTo(f float64, decimals int) float64 {
	mult := 1.0
	for i := 0; i < decimals; i++ {
		mult *= 10
	}
	return float64(int64(f*mult+0.5*sign(f))) / mult
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

// maybeShadowSample invokes the v2 path for the same query at
// s.ShadowRate probability and logs a comparison record. All failures
// here are swallowed; shadow sampling must never affect the legacy
// response.
func (s *Service) maybeShadowSample(ctx context.Context, p LegacyParams, storeSlug string, legacyCount int) {
	if !s.V2Enabled || s.ShadowRate <= 0 || s.Logger == nil {
		return
	}
	if rand.Float64() >= s.ShadowRate {
		return
	}

	defer func() {
		_ = recover() // shadow sampling must never surface a panic to the caller
	}()

	v2Result, err := s.SearchV2(ctx, V2Params{
		Query:         p.Query,
		Limit:         minInt(legacyCountOrDefault(legacyCount), 8),
		AvailableOnly: p.AvailableOnly,
		SlugArg:       storeSlug,
	})
	if err != nil {
		s.Logger.Debug("shadow sample v2 failed", "error", err, "store_slug", storeSlug)
		return
	}

	v2Count := 0
	if envelope, ok := v2Result.(map[string]any); ok {
		if results, ok := envelope["results"].([]any); ok {
			v2Count = len(results)
		}
	}
	s.Logger.Info("search shadow sample",
		"store_slug", storeSlug,
		"query", p.Query,
		"legacy_count", legacyCount,
		"v2_count", v2Count,
	)
}

func legacyCountOrDefault(n int) int {
	if n <= 0 {
		return 5
	}
	return n
}

// V2Params are search_products_v2's bounded arguments.
type V2Params struct {
	Query          string
	Limit          int
	AvailableOnly  bool
	BudgetMinCents *int64
	BudgetMaxCents *int64
	SkinTone       string
	Sort           string
	SlugArg        string
}

// SearchV2 implements search_products_v2: budget/availability/tone
// scoring, deterministic sort, a 12 KiB output cap, and a TTL cache
// keyed on the full call signature.
func (s *Service) SearchV2(ctx context.Context, p V2Params) (any, error) {
	if !s.V2Enabled {
		return nil, model.NewV2DisabledError()
	}

	totalStart := time.Now()
	query := strings.TrimSpace(p.Query)
	limit := clampInt(p.Limit, 1, 8)
	if p.Limit == 0 {
		limit = 5
	}
	tone := strings.ToLower(strings.TrimSpace(p.SkinTone))
	if tone == "" {
		if inferred, ok := InferTone(query); ok {
			tone = inferred
		}
	}
	sortMode := normalizeSort(p.Sort)

	storeSlug, err := s.Resolver.Resolve(ctx, p.SlugArg, query)
	if err != nil {
		return nil, err
	}

	cacheKey := v2CacheKey(storeSlug, query, limit, p.AvailableOnly, p.BudgetMinCents, p.BudgetMaxCents, tone, sortMode)
	if s.V2Cache != nil {
		if cached, ok := s.V2Cache.Get(cacheKey); ok {
			clone := deepCopyMap(cached)
			clone["cache_hit"] = true
			return clone, nil
		}
	}

	embedStart := time.Now()
	candidateLimit := maxInt(100, limit*20)
	rankings, err := s.fuseCandidates(ctx, storeSlug, query, candidateLimit)
	if err != nil {
		return nil, err
	}
	embedMs := time.Since(embedStart).Milliseconds()

	dbStart := time.Now()
	fused := Fuse(rankings, candidateLimit)
	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ProductID
	}
	products, err := s.Repo.FetchProducts(ctx, storeSlug, ids)
	dbMs := time.Since(dbStart).Milliseconds()
	if err != nil {
		return nil, err
	}

	rankStart := time.Now()
	budget := Budget{MinCents: p.BudgetMinCents, MaxCents: p.BudgetMaxCents}
	excluded := map[ExcludeReason]int{}
	var scored []ScoredResult

	for _, f := range fused {
		product, ok := products[f.ProductID]
		if !ok {
			continue
		}
		reason := Classify(product, f.Score, p.AvailableOnly, budget)
		if reason != ExcludeNone {
			excluded[reason]++
			continue
		}
		scored = append(scored, Score(product, f.Score, p.AvailableOnly, budget, tone))
	}

	SortResults(scored, sortMode)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}
	rankMs := time.Since(rankStart).Milliseconds()

	serializeStart := time.Now()
	resultList := make([]any, len(scored))
	for i, r := range scored {
		resultList[i] = map[string]any{
			"title":       r.Product.Title,
			"handle":      r.Product.Handle,
			"price_min":   derefOrNil(r.Product.PriceMin),
			"price_max":   derefOrNil(r.Product.PriceMax),
			"available":   r.Product.Available,
			"url":         r.Product.URL,
			"product_url": r.Product.URL,
			"rank":        r.Rank,
			"score":       roundTo(r.Score, 6),
			"why_match":   r.WhyMatch,
			"fit_signals": toAnySlice(r.FitSignals),
			"tone_match":  r.ToneMatch,
		}
	}

	envelope := map[string]any{
		"store_slug":      storeSlug,
		"excluded_counts": excludedCountsMap(excluded),
		"cache_hit":       false,
	}
	cappedResults, truncated := CapResults(envelope, resultList)
	envelope["results"] = cappedResults
	envelope["truncated"] = truncated
	serializeMs := time.Since(serializeStart).Milliseconds()
	totalMs := time.Since(totalStart).Milliseconds()

	if s.Logger != nil {
		s.Logger.Info("search_products_v2 timing",
			"store_slug", storeSlug,
			"embed_ms", embedMs,
			"db_ms", dbMs,
			"rank_ms", rankMs,
			"serialize_ms", serializeMs,
			"total_ms", totalMs,
		)
	}

	formatted := payload.Format(envelope, "results").(map[string]any)
	// excluded_counts is a plain {reason: count} map; run it outside
	// Format because the "unavailable" key would otherwise trip the
	// availability-to-bool coercion meant for product fields.
	formatted["excluded_counts"] = excludedCountsMap(excluded)
	if s.V2Cache != nil && !truncated {
		s.V2Cache.Set(cacheKey, deepCopyMap(formatted))
	}
	return formatted, nil
}

func normalizeSort(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "price_low_to_high", "price_high_to_low":
		return strings.ToLower(strings.TrimSpace(s))
	default:
		return "best_match"
	}
}

func excludedCountsMap(excluded map[ExcludeReason]int) map[string]any {
	out := map[string]any{
		"unavailable":   0,
		"over_budget":   0,
		"low_relevance": 0,
	}
	for reason, count := range excluded {
		out[string(reason)] = count
	}
	return out
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// v2CacheKey builds the cache key tuple: version tag, resolved slug,
// lowercased query, limit, available_only, budget_max, budget_min,
// lowercased tone, normalized sort.
func v2CacheKey(slug, query string, limit int, availableOnly bool, budgetMin, budgetMax *int64, tone, sortMode string) string {
	parts := []string{
		"v2",
		slug,
		strings.ToLower(strings.TrimSpace(query)),
		strconv.Itoa(limit),
		strconv.FormatBool(availableOnly),
		centsOrEmpty(budgetMax),
		centsOrEmpty(budgetMin),
		strings.ToLower(tone),
		sortMode,
	}
	return strings.Join(parts, "|")
}

func centsOrEmpty(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}

// deepCopyMap guards the cache against callers mutating a shared
// response: round-trip through JSON rather than a shallow copy, since
// cached values are arbitrarily nested maps/slices.
func deepCopyMap(in map[string]any) map[string]any {
	b, err := json.Marshal(in)
	if err != nil {
		return in
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return in
	}
	return out
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
