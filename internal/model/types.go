package model

import "time"

// Store is a tenant record. Immutable from the core's perspective; the
// indexer owns writes.
type Store struct {
	Slug         string
	StoreName    string
	URL          string
	Platform     string
	ProductCount int
	IndexedAt    *time.Time
	LastError    string
}

// Product is a catalog row keyed by (store_slug, product_id).
type Product struct {
	StoreSlug        string
	ProductID        string
	Handle           string
	Title            string
	ProductType      string
	Vendor           string
	Tags             []string
	PriceMin         *int64
	PriceMax         *int64
	Available        bool
	URL              string
	SummaryShort     string
	SummaryLLM       string
	OptionTokens     []string
	IsCatalogProduct *bool
	Data             map[string]any
	Variants         []Variant
}

// Variant is a purchasable option-tuple of a product, nested in
// Product.Data["variants"] on the wire but decoded into a typed slice
// for Go-side logic.
type Variant struct {
	ID        string
	Options   map[string]string
	Available bool
	PriceCent *int64
	Title     string
}

// BasketStatus is the basket state-machine value.
type BasketStatus string

const (
	BasketStatusActive      BasketStatus = "active"
	BasketStatusCheckedOut  BasketStatus = "checked_out"
)

// Basket is keyed by an opaque BasketID, pinned to exactly one store for
// its entire lifetime.
type Basket struct {
	BasketID      string
	StoreSlug     string
	Status        BasketStatus
	CheckoutURL   string
	CheckedOutAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BasketItem is unique on (basket_id, variant_id).
type BasketItem struct {
	BasketID    string
	VariantID   string
	Handle      string
	Title       string
	ProductURL  string
	Options     map[string]string
	UnitPrice   int64
	Quantity    int
	Available   bool
	AddedAt     time.Time
	UpdatedAt   time.Time
}
