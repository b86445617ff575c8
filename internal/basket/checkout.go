package basket

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/potatoman03/shopmcp/internal/model"
)

// permalinkBuilder synthesizes a platform-specific checkout URL from a
// store and its basket lines, or reports that the platform isn't
// supported for prefilled checkout.
type permalinkBuilder func(store model.Store, items []model.BasketItem) (string, error)

// permalinkBuilders is the platform -> strategy registry: adding a
// platform is a table entry, not a new branch.
var permalinkBuilders = map[string]permalinkBuilder{
	"shopify": shopifyPermalink,
}

// shopifyPermalink builds https://{store}/cart/{variant_id}:{qty},...,
// percent-encoding every variant id with url.QueryEscape so reserved
// characters (":", "/") round-trip.
func shopifyPermalink(store model.Store, items []model.BasketItem) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(store.URL), "/")
	if base == "" {
		return "", fmt.Errorf("basket: store %q has no base url", store.Slug)
	}

	segments := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.VariantID) == "" {
			return "", missingVariantIDsSentinel
		}
		segments = append(segments, fmt.Sprintf("%s:%d", url.QueryEscape(item.VariantID), item.Quantity))
	}
	return base + "/cart/" + strings.Join(segments, ","), nil
}

var missingVariantIDsSentinel = fmt.Errorf("missing variant ids")

// CheckoutResult is create_checkout_intent's return shape.
type CheckoutResult struct {
	Supported      bool
	Reason         string
	ManualCheckout bool
	ProductURLs    []string
	CheckoutURL    string
	Basket         model.Basket
}

// CreateCheckoutIntent synthesizes a checkout URL for a non-empty
// basket, or reports a manual-fallback result for unsupported
// platforms.
func (m *Manager) CreateCheckoutIntent(ctx context.Context, basketID, storeSlug string, markCheckedOut bool) (*CheckoutResult, error) {
	view, err := m.Get(ctx, basketID, storeSlug)
	if err != nil {
		return nil, err
	}
	if len(view.Items) == 0 {
		return nil, model.NewEmptyBasketError()
	}

	store, found, err := m.catalog.GetStore(ctx, storeSlug)
	if err != nil {
		return nil, fmt.Errorf("basket: get store: %w", err)
	}
	if !found {
		return nil, model.NewInternalError(fmt.Errorf("store %q vanished between basket scoping and checkout", storeSlug))
	}

	builder, supported := permalinkBuilders[store.Platform]
	if !supported {
		return &CheckoutResult{
			Supported:      false,
			Reason:         "unsupported_platform",
			ManualCheckout: true,
			ProductURLs:    productURLs(view.Items),
			Basket:         view.Basket,
		}, nil
	}

	checkoutURL, err := builder(store, view.Items)
	if err == missingVariantIDsSentinel {
		return &CheckoutResult{
			Supported:      false,
			Reason:         "missing_variant_ids",
			ManualCheckout: true,
			ProductURLs:    productURLs(view.Items),
			Basket:         view.Basket,
		}, nil
	}
	if err != nil {
		return nil, model.NewCheckoutURLBuildFailedError(err)
	}

	updated, err := m.persistCheckoutURL(ctx, basketID, checkoutURL, markCheckedOut)
	if err != nil {
		return nil, err
	}

	return &CheckoutResult{
		Supported:   true,
		CheckoutURL: checkoutURL,
		Basket:      *updated,
	}, nil
}

func (m *Manager) persistCheckoutURL(ctx context.Context, basketID, checkoutURL string, markCheckedOut bool) (*model.Basket, error) {
	if markCheckedOut {
		row := m.db.QueryRow(ctx, `
			update baskets set checkout_url = $2, status = 'checked_out', checked_out_at = now(), updated_at = now()
			where basket_id = $1
			returning basket_id, store_slug, status, checkout_url, checked_out_at, created_at, updated_at`,
			basketID, checkoutURL)
		return scanBasket(row)
	}
	row := m.db.QueryRow(ctx, `
		update baskets set checkout_url = $2, updated_at = now()
		where basket_id = $1
		returning basket_id, store_slug, status, checkout_url, checked_out_at, created_at, updated_at`,
		basketID, checkoutURL)
	return scanBasket(row)
}

func productURLs(items []model.BasketItem) []string {
	urls := make([]string, 0, len(items))
	for _, item := range items {
		if item.ProductURL != "" {
			urls = append(urls, item.ProductURL)
		}
	}
	return urls
}

// CheckoutItemRequest is one entry of the checkout_items composite
// tool's item list.
type CheckoutItemRequest struct {
	Handle    string
	VariantID string
	Options   map[string]string
	Quantity  int
}

// ItemsError annotates a checkout_items failure with how far the
// composite operation got before failing.
type ItemsError struct {
	Err        error
	LineIndex  int
	AddedCount int
}

func (e *ItemsError) Error() string {
	return fmt.Sprintf("basket: checkout_items failed at line %d after adding %d: %v", e.LineIndex, e.AddedCount, e.Err)
}

func (e *ItemsError) Unwrap() error { return e.Err }

// CheckoutItemsResult is checkout_items' success return shape.
type CheckoutItemsResult struct {
	Checkout    CheckoutResult
	AddedItems  int
	LineCount   int
}

// CheckoutItems adds each requested line to a (possibly new) basket,
// stopping at the first failure, then synthesizes the checkout intent.
func (m *Manager) CheckoutItems(ctx context.Context, basketID, storeSlug string, items []CheckoutItemRequest, markCheckedOut bool) (*CheckoutItemsResult, error) {
	currentBasketID := basketID
	added := 0

	for i, item := range items {
		view, err := m.AddLine(ctx, AddLineParams{
			BasketID:  currentBasketID,
			StoreSlug: storeSlug,
			Handle:    item.Handle,
			VariantID: item.VariantID,
			Options:   item.Options,
			Quantity:  item.Quantity,
		})
		if err != nil {
			return nil, &ItemsError{Err: err, LineIndex: i, AddedCount: added}
		}
		currentBasketID = view.Basket.BasketID
		added++
	}

	checkout, err := m.CreateCheckoutIntent(ctx, currentBasketID, storeSlug, markCheckedOut)
	if err != nil {
		return nil, err
	}

	return &CheckoutItemsResult{
		Checkout:   *checkout,
		AddedItems: added,
		LineCount:  len(items),
	}, nil
}
