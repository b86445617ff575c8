// Package basket implements the durable basket state machine:
// ensure/add/update/remove/clear/get, variant resolution against a
// product's option set, and checkout-intent synthesis (continued in
// checkout.go).
package basket

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/potatoman03/shopmcp/internal/catalog"
	"github.com/potatoman03/shopmcp/internal/dbx"
	"github.com/potatoman03/shopmcp/internal/model"
)

const (
	minQuantity = 1
	maxQuantity = 99
)

// Manager owns baskets/basket_items SQL and the variant-resolution
// logic that add_to_basket depends on. It reads products through
// catalog.Repository rather than duplicating product SQL.
type Manager struct {
	db      dbx.DBTX
	catalog *catalog.Repository
}

func NewManager(db dbx.DBTX, catalogRepo *catalog.Repository) *Manager {
	return &Manager{db: db, catalog: catalogRepo}
}

// View is a basket header plus its lines and the derived totals every
// read must return: item count, quantity total, and subtotal.
type View struct {
	Basket        model.Basket
	Items         []model.BasketItem
	ItemCount     int
	QuantityTotal int
	Subtotal      int64
}

// newBasketID generates an opaque "basket_" + 24 hex char id via
// crypto/rand + hex.EncodeToString.
func newBasketID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return "basket_" + hex.EncodeToString(b)
}

// Ensure fetches an existing active basket scoped to storeSlug, or
// creates a new one when basketID is empty.
func (m *Manager) Ensure(ctx context.Context, basketID, storeSlug string) (*model.Basket, error) {
	if strings.TrimSpace(basketID) == "" {
		return m.create(ctx, storeSlug)
	}
	b, err := m.fetch(ctx, basketID)
	if err != nil {
		return nil, err
	}
	if b.StoreSlug != storeSlug {
		return nil, model.NewBasketScopeError()
	}
	if b.Status != model.BasketStatusActive {
		return nil, model.NewBasketScopeError()
	}
	return b, nil
}

func (m *Manager) create(ctx context.Context, storeSlug string) (*model.Basket, error) {
	id := newBasketID()
	row := m.db.QueryRow(ctx, `
		insert into baskets (basket_id, store_slug, status, created_at, updated_at)
		values ($1, $2, 'active', now(), now())
		returning basket_id, store_slug, status, checkout_url, checked_out_at, created_at, updated_at`,
		id, storeSlug)
	b, err := scanBasket(row)
	if err != nil {
		return nil, model.NewBasketCreateFailedError(err)
	}
	return b, nil
}

func (m *Manager) fetch(ctx context.Context, basketID string) (*model.Basket, error) {
	row := m.db.QueryRow(ctx, `
		select basket_id, store_slug, status, checkout_url, checked_out_at, created_at, updated_at
		from baskets where basket_id = $1`, basketID)
	b, err := scanBasket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, model.NewBasketNotFoundError(basketID)
		}
		return nil, fmt.Errorf("basket: fetch: %w", err)
	}
	return b, nil
}

func scanBasket(row pgx.Row) (*model.Basket, error) {
	var b model.Basket
	var status string
	if err := row.Scan(&b.BasketID, &b.StoreSlug, &status, &b.CheckoutURL, &b.CheckedOutAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Status = model.BasketStatus(status)
	return &b, nil
}

// AddLineParams are add_to_basket's bounded arguments.
type AddLineParams struct {
	BasketID  string
	StoreSlug string
	Handle    string
	VariantID string
	Options   map[string]string
	Quantity  int
}

// AddLine resolves the product and variant, upserts the line, and
// returns the refreshed basket view.
func (m *Manager) AddLine(ctx context.Context, p AddLineParams) (*View, error) {
	if strings.TrimSpace(p.Handle) == "" {
		return nil, model.NewInvalidHandleError("handle is required")
	}
	quantity := p.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < minQuantity {
		return nil, model.NewInvalidQuantityError("quantity must be at least 1 when adding a line")
	}
	if quantity > maxQuantity {
		quantity = maxQuantity
	}

	basket, err := m.Ensure(ctx, p.BasketID, p.StoreSlug)
	if err != nil {
		return nil, err
	}
	if basket.Status != model.BasketStatusActive {
		return nil, model.NewBasketScopeError()
	}

	product, err := m.catalog.FindByHandle(ctx, p.StoreSlug, p.Handle)
	if err != nil {
		return nil, fmt.Errorf("basket: find product: %w", err)
	}
	if product == nil {
		return nil, model.NewProductNotFoundError(p.Handle)
	}

	variant, err := resolveVariant(*product, p.VariantID, p.Options)
	if err != nil {
		return nil, err
	}
	if !variant.Available {
		return nil, model.NewVariantUnavailableError()
	}

	store, found, err := m.catalog.GetStore(ctx, p.StoreSlug)
	if err != nil {
		return nil, fmt.Errorf("basket: get store: %w", err)
	}
	storeURL := ""
	if found {
		storeURL = store.URL
	}

	unitPrice := int64(0)
	if variant.PriceCent != nil {
		unitPrice = *variant.PriceCent
	} else if product.PriceMin != nil {
		unitPrice = *product.PriceMin
	}

	optionsJSON, err := json.Marshal(catalog.NormalizeOptions(variant.Options))
	if err != nil {
		return nil, fmt.Errorf("basket: encode options: %w", err)
	}

	_, err = m.db.Exec(ctx, `
		insert into basket_items
			(basket_id, variant_id, handle, title, product_url, options, unit_price, quantity, available, added_at, updated_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		on conflict (basket_id, variant_id) do update set
			quantity = least(basket_items.quantity + excluded.quantity, $10),
			handle = excluded.handle,
			title = excluded.title,
			product_url = excluded.product_url,
			options = excluded.options,
			unit_price = excluded.unit_price,
			available = excluded.available,
			updated_at = now()`,
		basket.BasketID, variant.ID, product.Handle, product.Title,
		resolveURL(storeURL, product.URL), optionsJSON,
		unitPrice, quantity, variant.Available, maxQuantity)
	if err != nil {
		return nil, fmt.Errorf("basket: upsert line: %w", err)
	}

	return m.Get(ctx, basket.BasketID, p.StoreSlug)
}

// resolveVariant implements the variant-resolution cascade: exact id,
// then options-superset match, then sole-variant fallbacks.
func resolveVariant(p model.Product, variantID string, options map[string]string) (model.Variant, error) {
	if len(p.Variants) == 0 {
		return model.Variant{}, model.NewNoVariantsError()
	}

	if variantID != "" {
		for _, v := range p.Variants {
			if v.ID == variantID {
				return v, nil
			}
		}
		return model.Variant{}, model.NewVariantNotFoundError()
	}

	if len(options) > 0 {
		required := catalog.NormalizeOptions(options)
		for _, v := range p.Variants {
			if catalog.VariantMatchesOptions(v.Options, required) {
				return v, nil
			}
		}
		return model.Variant{}, model.NewOptionsNotFoundError()
	}

	var available []model.Variant
	for _, v := range p.Variants {
		if v.Available {
			available = append(available, v)
		}
	}
	if len(available) == 1 {
		return available[0], nil
	}
	if len(p.Variants) == 1 {
		return p.Variants[0], nil
	}
	return model.Variant{}, model.NewVariantSelectionRequiredError()
}

// resolveURL resolves ref against base: absolute and protocol-relative
// URLs pass through, relative ones resolve against base, empty input
// yields empty string.
func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if refURL.IsAbs() || strings.HasPrefix(ref, "//") {
		return ref
	}
	base = strings.TrimSpace(base)
	if base == "" {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// UpdateQuantity sets a line's quantity, deleting it when quantity <= 0.
func (m *Manager) UpdateQuantity(ctx context.Context, basketID, storeSlug, variantID string, quantity int) (*View, error) {
	basket, err := m.Ensure(ctx, basketID, storeSlug)
	if err != nil {
		return nil, err
	}
	if basket.Status != model.BasketStatusActive {
		return nil, model.NewBasketScopeError()
	}

	if quantity <= 0 {
		return m.Remove(ctx, basketID, storeSlug, variantID)
	}
	if quantity > maxQuantity {
		quantity = maxQuantity
	}

	tag, err := m.db.Exec(ctx, `
		update basket_items set quantity = $3, updated_at = now()
		where basket_id = $1 and variant_id = $2`, basketID, variantID, quantity)
	if err != nil {
		return nil, fmt.Errorf("basket: update quantity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, model.NewBasketLineNotFoundError()
	}
	return m.Get(ctx, basketID, storeSlug)
}

// Remove deletes a line item.
func (m *Manager) Remove(ctx context.Context, basketID, storeSlug, variantID string) (*View, error) {
	basket, err := m.Ensure(ctx, basketID, storeSlug)
	if err != nil {
		return nil, err
	}
	if basket.Status != model.BasketStatusActive {
		return nil, model.NewBasketScopeError()
	}

	tag, err := m.db.Exec(ctx, `delete from basket_items where basket_id = $1 and variant_id = $2`, basketID, variantID)
	if err != nil {
		return nil, fmt.Errorf("basket: remove line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, model.NewBasketLineNotFoundError()
	}
	return m.Get(ctx, basketID, storeSlug)
}

// Clear deletes every line item on the basket.
func (m *Manager) Clear(ctx context.Context, basketID, storeSlug string) (*View, error) {
	basket, err := m.Ensure(ctx, basketID, storeSlug)
	if err != nil {
		return nil, err
	}
	if basket.Status != model.BasketStatusActive {
		return nil, model.NewBasketScopeError()
	}

	if _, err := m.db.Exec(ctx, `delete from basket_items where basket_id = $1`, basketID); err != nil {
		return nil, fmt.Errorf("basket: clear: %w", err)
	}
	return m.Get(ctx, basketID, storeSlug)
}

// Get returns the basket header plus its lines, ordered by added_at
// then variant_id, with item_count/quantity_total/subtotal derived.
func (m *Manager) Get(ctx context.Context, basketID, storeSlug string) (*View, error) {
	basket, err := m.fetch(ctx, basketID)
	if err != nil {
		return nil, err
	}
	if basket.StoreSlug != storeSlug {
		return nil, model.NewBasketScopeError()
	}

	rows, err := m.db.Query(ctx, `
		select basket_id, variant_id, handle, title, product_url, options, unit_price, quantity, available, added_at, updated_at
		from basket_items
		where basket_id = $1
		order by added_at asc, variant_id asc`, basketID)
	if err != nil {
		return nil, fmt.Errorf("basket: list items: %w", err)
	}
	defer rows.Close()

	view := &View{Basket: *basket}
	for rows.Next() {
		var item model.BasketItem
		var rawOptions []byte
		if err := rows.Scan(
			&item.BasketID, &item.VariantID, &item.Handle, &item.Title, &item.ProductURL,
			&rawOptions, &item.UnitPrice, &item.Quantity, &item.Available, &item.AddedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("basket: scan item: %w", err)
		}
		if len(rawOptions) > 0 {
			if err := json.Unmarshal(rawOptions, &item.Options); err != nil {
				return nil, fmt.Errorf("basket: decode item options: %w", err)
			}
		}
		view.Items = append(view.Items, item)
		view.ItemCount++
		view.QuantityTotal += item.Quantity
		view.Subtotal += item.UnitPrice * int64(item.Quantity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return view, nil
}
