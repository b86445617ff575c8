// Package catalog implements the Postgres-backed product catalog:
// lexical/vector candidate retrieval, product lookup, filtering, and the
// store-slug auto-selection probes consumed by internal/tenant.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/shopspring/decimal"

	"github.com/potatoman03/shopmcp/internal/dbx"
	"github.com/potatoman03/shopmcp/internal/model"
)

// Repository is the sole owner of catalog SQL. It is constructed once
// per process against the live pool and trivially constructed again in
// tests against a pgxmock pool, since both satisfy dbx.DBTX.
type Repository struct {
	db dbx.DBTX
}

func NewRepository(db dbx.DBTX) *Repository {
	return &Repository{db: db}
}

// RankedCandidate is a single lexical or vector search hit, carrying its
// 1-indexed rank within that ranking so the caller can RRF-fuse multiple
// rankings without re-querying for scores.
type RankedCandidate struct {
	ProductID string
	Rank      int
}

const productOnlyClause = productOnlyPredicate

// ListStores returns indexed stores ordered by product count, richest
// first, for the list_stores tool.
func (r *Repository) ListStores(ctx context.Context, limit int) ([]model.Store, error) {
	limit = clamp(limit, 1, 200)

	rows, err := r.db.Query(ctx, `
		select slug, store_name, url, platform, product_count, indexed_at, last_error
		from stores
		order by product_count desc, indexed_at desc nulls last, slug asc
		limit $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: list stores: %w", err)
	}
	defer rows.Close()

	var stores []model.Store
	for rows.Next() {
		var s model.Store
		if err := rows.Scan(&s.Slug, &s.StoreName, &s.URL, &s.Platform, &s.ProductCount, &s.IndexedAt, &s.LastError); err != nil {
			return nil, fmt.Errorf("catalog: scan store: %w", err)
		}
		stores = append(stores, s)
	}
	return stores, rows.Err()
}

// GetStore loads a single store row, used by basket checkout to resolve
// the platform tag and base URL for permalink synthesis.
func (r *Repository) GetStore(ctx context.Context, slug string) (model.Store, bool, error) {
	row := r.db.QueryRow(ctx, `
		select slug, store_name, url, platform, product_count, indexed_at, last_error
		from stores
		where slug = $1`, slug)

	var s model.Store
	if err := row.Scan(&s.Slug, &s.StoreName, &s.URL, &s.Platform, &s.ProductCount, &s.IndexedAt, &s.LastError); err != nil {
		if err == pgx.ErrNoRows {
			return model.Store{}, false, nil
		}
		return model.Store{}, false, fmt.Errorf("catalog: get store: %w", err)
	}
	return s, true, nil
}

// SearchHintStore finds the store with the most full-text matches for
// hint, used as the first auto-selection tier.
func (r *Repository) SearchHintStore(ctx context.Context, hint string) (string, bool, error) {
	row := r.db.QueryRow(ctx, `
		select store_slug
		from products
		where search_tsv @@ websearch_to_tsquery('simple', $1)
		  and `+productOnlyClause+`
		group by store_slug
		order by count(*) desc, store_slug asc
		limit 1`, hint)
	return scanOptionalSlug(row)
}

// FuzzyHintStore is the second auto-selection tier: ILIKE substring
// match across title/handle/product_type/tags when full-text found
// nothing (short or misspelled hints).
func (r *Repository) FuzzyHintStore(ctx context.Context, hint string) (string, bool, error) {
	row := r.db.QueryRow(ctx, `
		select store_slug
		from products
		where (
			title ilike '%' || $1 || '%'
			or handle ilike '%' || $1 || '%'
			or coalesce(product_type, '') ilike '%' || $1 || '%'
			or exists (select 1 from unnest(tags) as t(tag) where t.tag ilike '%' || $1 || '%')
		)
		  and `+productOnlyClause+`
		group by store_slug
		order by count(*) desc, store_slug asc
		limit 1`, hint)
	return scanOptionalSlug(row)
}

// PreferredStore is the third tier: the richest indexed store overall.
func (r *Repository) PreferredStore(ctx context.Context) (string, bool, error) {
	row := r.db.QueryRow(ctx, `
		select slug from stores
		where product_count > 0
		order by product_count desc, indexed_at desc nulls last, slug asc
		limit 1`)
	return scanOptionalSlug(row)
}

// FallbackStore is the last tier: whatever store was indexed most
// recently, regardless of product count.
func (r *Repository) FallbackStore(ctx context.Context) (string, bool, error) {
	row := r.db.QueryRow(ctx, `
		select slug from stores
		order by indexed_at desc nulls last, slug asc
		limit 1`)
	return scanOptionalSlug(row)
}

func scanOptionalSlug(row pgx.Row) (string, bool, error) {
	var slug string
	if err := row.Scan(&slug); err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("catalog: scan slug: %w", err)
	}
	return slug, slug != "", nil
}

// LexicalCandidates ranks products by tsvector rank for a store-scoped
// full-text query, returning up to limit candidates.
func (r *Repository) LexicalCandidates(ctx context.Context, storeSlug, query string, limit int) ([]RankedCandidate, error) {
	rows, err := r.db.Query(ctx, `
		select product_id, row_number() over (
			order by ts_rank_cd(search_tsv, websearch_to_tsquery('simple', $2)) desc, product_id
		) as rank
		from products
		where store_slug = $1
		  and search_tsv @@ websearch_to_tsquery('simple', $2)
		  and `+productOnlyClause+`
		limit $3`, storeSlug, query, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: lexical candidates: %w", err)
	}
	defer rows.Close()
	return scanRankedCandidates(rows)
}

// VectorCandidates ranks products by cosine distance between their
// stored embedding and queryVec.
func (r *Repository) VectorCandidates(ctx context.Context, storeSlug string, queryVec []float32, limit int) ([]RankedCandidate, error) {
	rows, err := r.db.Query(ctx, `
		select product_id, row_number() over (
			order by embedding <=> $2, product_id
		) as rank
		from products
		where store_slug = $1 and embedding is not null
		  and `+productOnlyClause+`
		order by embedding <=> $2, product_id
		limit $3`, storeSlug, pgvector.NewVector(queryVec), limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: vector candidates: %w", err)
	}
	defer rows.Close()
	return scanRankedCandidates(rows)
}

func scanRankedCandidates(rows pgx.Rows) ([]RankedCandidate, error) {
	var out []RankedCandidate
	for rows.Next() {
		var c RankedCandidate
		if err := rows.Scan(&c.ProductID, &c.Rank); err != nil {
			return nil, fmt.Errorf("catalog: scan ranked candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// productColumns is shared by every query that hydrates a full product
// row, so the scan targets in scanProduct always line up.
const productColumns = `
	product_id, handle, title, product_type, vendor, tags,
	price_min, price_max, available, url, is_catalog_product,
	option_tokens, summary_short, summary_llm, data`

// FetchProducts loads a set of products by ID, keyed by product ID, in
// one round trip.
func (r *Repository) FetchProducts(ctx context.Context, storeSlug string, productIDs []string) (map[string]model.Product, error) {
	out := make(map[string]model.Product, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, `
		select `+productColumns+`
		from products
		where store_slug = $1 and product_id = any($2)
		  and `+productOnlyClause, storeSlug, productIDs)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows, storeSlug)
		if err != nil {
			return nil, err
		}
		out[p.ProductID] = p
	}
	return out, rows.Err()
}

// FindByHandle looks up a single product by its storefront handle.
func (r *Repository) FindByHandle(ctx context.Context, storeSlug, handle string) (*model.Product, error) {
	rows, err := r.db.Query(ctx, `
		select `+productColumns+`
		from products
		where store_slug = $1 and handle = $2
		  and `+productOnlyClause+`
		limit 1`, storeSlug, handle)
	if err != nil {
		return nil, fmt.Errorf("catalog: find by handle: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	p, err := scanProduct(rows, storeSlug)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ProductFilter is the structured predicate for filter_products.
type ProductFilter struct {
	ProductType   string
	Tags          []string
	MinPriceCents *int64
	MaxPriceCents *int64
	AvailableOnly bool
	Options       map[string]string
	Limit         int
}

// FilterProducts applies a structured predicate, then (if Options is
// set) drops products with no variant matching every required option.
func (r *Repository) FilterProducts(ctx context.Context, storeSlug string, f ProductFilter) ([]model.Product, error) {
	limit := clamp(f.Limit, 1, 100)

	args := []any{storeSlug}
	clauses := []string{"store_slug = $1", productOnlyClause}

	if f.ProductType != "" {
		args = append(args, f.ProductType)
		clauses = append(clauses, fmt.Sprintf("lower(coalesce(product_type, '')) = lower($%d)", len(args)))
	}
	if tags := nonEmpty(f.Tags); len(tags) > 0 {
		args = append(args, tags)
		clauses = append(clauses, fmt.Sprintf("tags @> $%d", len(args)))
	}
	if f.MinPriceCents != nil {
		args = append(args, *f.MinPriceCents)
		clauses = append(clauses, fmt.Sprintf("coalesce(price_max, price_min, 0) >= $%d", len(args)))
	}
	if f.MaxPriceCents != nil {
		args = append(args, *f.MaxPriceCents)
		clauses = append(clauses, fmt.Sprintf("coalesce(price_min, price_max, 0) <= $%d", len(args)))
	}
	if f.AvailableOnly {
		clauses = append(clauses, "available = true")
	}

	// Pull a wider candidate window than limit because option-matching
	// happens in Go after the row is loaded.
	args = append(args, max(limit*15, 200))
	sql := fmt.Sprintf(`
		select %s
		from products
		where %s
		order by product_id
		limit $%d`, productColumns, strings.Join(clauses, " and "), len(args))

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog: filter products: %w", err)
	}
	defer rows.Close()

	required := normalizeOptions(f.Options)
	var matched []model.Product
	for rows.Next() {
		p, err := scanProduct(rows, storeSlug)
		if err != nil {
			return nil, err
		}
		if len(required) > 0 && !anyVariantMatches(p.Variants, required) {
			continue
		}
		matched = append(matched, p)
		if len(matched) >= limit {
			break
		}
	}
	return matched, rows.Err()
}

func anyVariantMatches(variants []model.Variant, required map[string]string) bool {
	for _, v := range variants {
		if variantMatchesOptions(v.Options, required) {
			return true
		}
	}
	return false
}

// Categories summarizes a store's product_type/tag vocabulary for the
// list_categories tool.
type Categories struct {
	ProductTypes  []string
	TopTags       []TagCount
	TotalProducts int
}

type TagCount struct {
	Tag   string
	Count int
}

func (r *Repository) ListCategories(ctx context.Context, storeSlug string) (Categories, error) {
	var cats Categories

	typeRows, err := r.db.Query(ctx, `
		select product_type, count(*)
		from products
		where store_slug = $1 and product_type is not null and product_type <> ''
		  and `+productOnlyClause+`
		group by product_type
		order by count(*) desc, product_type asc`, storeSlug)
	if err != nil {
		return cats, fmt.Errorf("catalog: list product types: %w", err)
	}
	for typeRows.Next() {
		var pt string
		var count int
		if err := typeRows.Scan(&pt, &count); err != nil {
			typeRows.Close()
			return cats, fmt.Errorf("catalog: scan product type: %w", err)
		}
		cats.ProductTypes = append(cats.ProductTypes, pt)
	}
	typeRows.Close()
	if err := typeRows.Err(); err != nil {
		return cats, err
	}

	tagRows, err := r.db.Query(ctx, `
		select tag, count(*)
		from (
			select unnest(tags) as tag
			from products
			where store_slug = $1 and `+productOnlyClause+`
		) t
		where tag is not null and tag <> ''
		group by tag
		order by count(*) desc, tag asc
		limit 25`, storeSlug)
	if err != nil {
		return cats, fmt.Errorf("catalog: list top tags: %w", err)
	}
	for tagRows.Next() {
		var tc TagCount
		if err := tagRows.Scan(&tc.Tag, &tc.Count); err != nil {
			tagRows.Close()
			return cats, fmt.Errorf("catalog: scan tag count: %w", err)
		}
		cats.TopTags = append(cats.TopTags, tc)
	}
	tagRows.Close()
	if err := tagRows.Err(); err != nil {
		return cats, err
	}

	row := r.db.QueryRow(ctx, `
		select count(*) from products where store_slug = $1 and `+productOnlyClause, storeSlug)
	if err := row.Scan(&cats.TotalProducts); err != nil {
		return cats, fmt.Errorf("catalog: count total products: %w", err)
	}

	return cats, nil
}

// scanProduct reads one product row and decodes its JSONB data payload,
// merging the typed variants array into model.Product.Variants so
// retrieval/basket code never needs to touch raw JSON.
func scanProduct(rows pgx.Rows, storeSlug string) (model.Product, error) {
	var p model.Product
	var rawData []byte

	if err := rows.Scan(
		&p.ProductID, &p.Handle, &p.Title, &p.ProductType, &p.Vendor, &p.Tags,
		&p.PriceMin, &p.PriceMax, &p.Available, &p.URL, &p.IsCatalogProduct,
		&p.OptionTokens, &p.SummaryShort, &p.SummaryLLM, &rawData,
	); err != nil {
		return model.Product{}, fmt.Errorf("catalog: scan product: %w", err)
	}
	p.StoreSlug = storeSlug

	var data map[string]any
	if len(rawData) > 0 {
		if err := json.Unmarshal(rawData, &data); err != nil {
			return model.Product{}, fmt.Errorf("catalog: decode product data: %w", err)
		}
	}
	if data == nil {
		data = map[string]any{}
	}
	p.Data = data
	p.Variants = decodeVariants(data["variants"])

	return p, nil
}

// decodeVariants extracts the wire-shaped variants array (as decoded
// from JSONB) into typed model.Variant values, tolerant of the
// option1/option2/option3 legacy shape alongside a structured "options"
// map.
func decodeVariants(raw any) []model.Variant {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	out := make([]model.Variant, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, model.Variant{
			ID:        variantID(obj),
			Options:   variantOptions(obj),
			Available: variantAvailable(obj),
			PriceCent: variantPriceCents(obj),
			Title:     stringField(obj, "title"),
		})
	}
	return out
}

func variantID(obj map[string]any) string {
	if v := stringField(obj, "id"); v != "" {
		return v
	}
	return stringField(obj, "variant_id")
}

func variantOptions(obj map[string]any) map[string]string {
	if raw, ok := obj["options"].(map[string]any); ok && len(raw) > 0 {
		out := make(map[string]string, len(raw))
		for k, v := range raw {
			key := strings.TrimSpace(k)
			val := strings.TrimSpace(fmt.Sprint(v))
			if key != "" && val != "" {
				out[key] = val
			}
		}
		if len(out) > 0 {
			return out
		}
	}

	out := map[string]string{}
	for i, key := range []string{"option1", "option2", "option3"} {
		val := strings.TrimSpace(stringField(obj, key))
		if val != "" {
			out[fmt.Sprintf("Option %d", i+1)] = val
		}
	}
	return out
}

func variantAvailable(obj map[string]any) bool {
	if v, ok := obj["available"]; ok {
		return toBoolAny(v)
	}
	if v, ok := obj["availability"]; ok {
		return toBoolAny(v)
	}
	return false
}

func variantPriceCents(obj map[string]any) *int64 {
	if v, ok := obj["price_cents"]; ok {
		if cents, ok := toCentsAny(v, true); ok {
			return &cents
		}
	}
	if v, ok := obj["price"]; ok {
		if cents, ok := toCentsAny(v, false); ok {
			return &cents
		}
	}
	return nil
}

func stringField(obj map[string]any, key string) string {
	v, ok := obj[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func toBoolAny(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "t", "1", "yes", "y", "in stock", "available", "instock":
			return true
		default:
			return false
		}
	default:
		return false
	}
}

// toCentsAny coerces a wire-shaped price value to cents: integers are
// assumed to already be cents unless assumeCentsForInt is false, floats
// are dollars multiplied by 100, and decimal strings are parsed via
// model.ParseCents / model.ParseMinorUnits, the same shopspring/decimal
// -backed helpers internal/payload uses for the identical concern.
func toCentsAny(v any, assumeCentsForInt bool) (int64, bool) {
	switch val := v.(type) {
	case float64:
		d := decimal.NewFromFloat(val)
		if val == float64(int64(val)) && assumeCentsForInt {
			return d.IntPart(), true
		}
		return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), true
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return 0, false
		}
		if assumeCentsForInt {
			return model.ParseMinorUnits(trimmed), true
		}
		return model.ParseCents(trimmed), true
	default:
		return 0, false
	}
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
