package mcpserver

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/potatoman03/shopmcp/internal/basket"
	"github.com/potatoman03/shopmcp/internal/catalog"
	"github.com/potatoman03/shopmcp/internal/model"
	"github.com/potatoman03/shopmcp/internal/payload"
	"github.com/potatoman03/shopmcp/internal/retrieval"
)

// toolTable is the plain-HTTP dispatch path: tool name to a function
// taking raw JSON arguments. The MCP SDK path
// (newMCPServer below) reuses the same runX core functions with typed
// input structs instead of decodeArgs, since the SDK does its own
// schema-driven decoding.
var toolTable = map[string]func(ctx context.Context, s *Server, args map[string]any) (any, error){
	"list_stores": func(ctx context.Context, s *Server, args map[string]any) (any, error) {
		var in listStoresInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.runListStores(ctx, in)
	},
	"search_products": func(ctx context.Context, s *Server, args map[string]any) (any, error) {
		var in searchProductsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.runSearchProducts(ctx, in)
	},
	"search_products_v2": func(ctx context.Context, s *Server, args map[string]any) (any, error) {
		var in searchProductsV2Input
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.runSearchProductsV2(ctx, in)
	},
	"filter_products": func(ctx context.Context, s *Server, args map[string]any) (any, error) {
		var in filterProductsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.runFilterProducts(ctx, in)
	},
	"get_product": func(ctx context.Context, s *Server, args map[string]any) (any, error) {
		var in getProductInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.runGetProduct(ctx, in)
	},
	"check_variant_availability": func(ctx context.Context, s *Server, args map[string]any) (any, error) {
		var in checkVariantAvailabilityInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.runCheckVariantAvailability(ctx, in)
	},
	"list_categories": func(ctx context.Context, s *Server, args map[string]any) (any, error) {
		var in listCategoriesInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.runListCategories(ctx, in)
	},
	"add_to_basket": func(ctx context.Context, s *Server, args map[string]any) (any, error) {
		var in addToBasketInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.runAddToBasket(ctx, in)
	},
	"update_basket_item": func(ctx context.Context, s *Server, args map[string]any) (any, error) {
		var in updateBasketItemInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.runUpdateBasketItem(ctx, in)
	},
	"remove_basket_item": func(ctx context.Context, s *Server, args map[string]any) (any, error) {
		var in removeBasketItemInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.runRemoveBasketItem(ctx, in)
	},
	"clear_basket": func(ctx context.Context, s *Server, args map[string]any) (any, error) {
		var in clearBasketInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.runClearBasket(ctx, in)
	},
	"get_basket": func(ctx context.Context, s *Server, args map[string]any) (any, error) {
		var in getBasketInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.runGetBasket(ctx, in)
	},
	"create_checkout_intent": func(ctx context.Context, s *Server, args map[string]any) (any, error) {
		var in createCheckoutIntentInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.runCreateCheckoutIntent(ctx, in)
	},
	"checkout_items": func(ctx context.Context, s *Server, args map[string]any) (any, error) {
		var in checkoutItemsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.runCheckoutItems(ctx, in)
	},
}

// newMCPServer builds the MCP SDK server: same mcp.NewServer/mcp.AddTool
// shape as the proxy handler, one AddTool call per tool table entry
// above.
func (s *Server) newMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{Name: serviceName, Version: "1.0.0"},
		&mcp.ServerOptions{
			Instructions: "Storefront catalog and basket tools: search, filter, and inspect products, " +
				"manage a basket, and synthesize checkout links.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{Name: "list_stores", Description: "List indexed stores and their slugs for routing."}, s.mcpListStores)
	mcp.AddTool(server, &mcp.Tool{Name: "search_products", Description: "Semantic + keyword product search. Optional: slug."}, s.mcpSearchProducts)
	mcp.AddTool(server, &mcp.Tool{Name: "search_products_v2", Description: "Ranked product search with budget/tone scoring and a bounded payload."}, s.mcpSearchProductsV2)
	mcp.AddTool(server, &mcp.Tool{Name: "filter_products", Description: "Structured product filtering. Optional: slug."}, s.mcpFilterProducts)
	mcp.AddTool(server, &mcp.Tool{Name: "get_product", Description: "Get complete product details by handle. Optional: slug."}, s.mcpGetProduct)
	mcp.AddTool(server, &mcp.Tool{Name: "check_variant_availability", Description: "Check stock for exact variant options."}, s.mcpCheckVariantAvailability)
	mcp.AddTool(server, &mcp.Tool{Name: "list_categories", Description: "List product types and popular tags. Optional: slug."}, s.mcpListCategories)
	mcp.AddTool(server, &mcp.Tool{Name: "add_to_basket", Description: "Add a line item to a basket, creating one if basket_id is omitted."}, s.mcpAddToBasket)
	mcp.AddTool(server, &mcp.Tool{Name: "update_basket_item", Description: "Set a basket line's quantity; quantity 0 removes the line."}, s.mcpUpdateBasketItem)
	mcp.AddTool(server, &mcp.Tool{Name: "remove_basket_item", Description: "Remove a line item from a basket."}, s.mcpRemoveBasketItem)
	mcp.AddTool(server, &mcp.Tool{Name: "clear_basket", Description: "Remove every line item from a basket."}, s.mcpClearBasket)
	mcp.AddTool(server, &mcp.Tool{Name: "get_basket", Description: "Read a basket and its line items."}, s.mcpGetBasket)
	mcp.AddTool(server, &mcp.Tool{Name: "create_checkout_intent", Description: "Synthesize a checkout URL for a basket's current line items."}, s.mcpCreateCheckoutIntent)
	mcp.AddTool(server, &mcp.Tool{Name: "checkout_items", Description: "Add a batch of line items to a basket, then synthesize a checkout intent."}, s.mcpCheckoutItems)

	return server
}

// === Input shapes for the catalog and basket tools. ===

type listStoresInput struct {
	Limit int `json:"limit,omitempty"`
}

type searchProductsInput struct {
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results,omitempty"`
	AvailableOnly *bool  `json:"available_only,omitempty"`
	Slug          string `json:"slug,omitempty"`
}

type searchProductsV2Input struct {
	Query          string `json:"query"`
	Limit          int    `json:"limit,omitempty"`
	AvailableOnly  *bool  `json:"available_only,omitempty"`
	BudgetMinCents *int64 `json:"budget_min_cents,omitempty"`
	BudgetMaxCents *int64 `json:"budget_max_cents,omitempty"`
	SkinTone       string `json:"skin_tone,omitempty"`
	Sort           string `json:"sort,omitempty"`
	Slug           string `json:"slug,omitempty"`
}

type filterProductsInput struct {
	ProductType   string            `json:"product_type,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	MinPrice      *int64            `json:"min_price,omitempty"`
	MaxPrice      *int64            `json:"max_price,omitempty"`
	AvailableOnly *bool             `json:"available_only,omitempty"`
	Options       map[string]string `json:"options,omitempty"`
	Limit         int               `json:"limit,omitempty"`
	Slug          string            `json:"slug,omitempty"`
}

type getProductInput struct {
	Handle string `json:"handle"`
	Slug   string `json:"slug,omitempty"`
}

type checkVariantAvailabilityInput struct {
	Handle  string            `json:"handle"`
	Options map[string]string `json:"options,omitempty"`
	Slug    string            `json:"slug,omitempty"`
}

type listCategoriesInput struct {
	Slug string `json:"slug,omitempty"`
}

type addToBasketInput struct {
	BasketID  string            `json:"basket_id,omitempty"`
	Slug      string            `json:"slug,omitempty"`
	Handle    string            `json:"handle"`
	VariantID string            `json:"variant_id,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
	Quantity  int               `json:"quantity,omitempty"`
}

type updateBasketItemInput struct {
	BasketID  string `json:"basket_id"`
	Slug      string `json:"slug,omitempty"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type removeBasketItemInput struct {
	BasketID  string `json:"basket_id"`
	Slug      string `json:"slug,omitempty"`
	VariantID string `json:"variant_id"`
}

type clearBasketInput struct {
	BasketID string `json:"basket_id"`
	Slug     string `json:"slug,omitempty"`
}

type getBasketInput struct {
	BasketID string `json:"basket_id"`
	Slug     string `json:"slug,omitempty"`
}

type createCheckoutIntentInput struct {
	BasketID       string `json:"basket_id"`
	Slug           string `json:"slug,omitempty"`
	MarkCheckedOut bool   `json:"mark_checked_out,omitempty"`
}

type checkoutItemInput struct {
	Handle    string            `json:"handle"`
	VariantID string            `json:"variant_id,omitempty"`
	Options   map[string]string `json:"options,omitempty"`
	Quantity  int               `json:"quantity,omitempty"`
}

type checkoutItemsInput struct {
	BasketID       string              `json:"basket_id,omitempty"`
	Slug           string              `json:"slug,omitempty"`
	Items          []checkoutItemInput `json:"items"`
	MarkCheckedOut bool                `json:"mark_checked_out,omitempty"`
}

// === Core implementations, shared by both dispatch paths. ===

func (s *Server) runListStores(ctx context.Context, in listStoresInput) (any, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = 25
	}
	stores, err := s.Repo.ListStores(ctx, limit)
	if err != nil {
		return nil, err
	}
	list := make([]any, len(stores))
	for i, st := range stores {
		list[i] = map[string]any{
			"slug":          st.Slug,
			"store_name":    st.StoreName,
			"url":           st.URL,
			"platform":      st.Platform,
			"product_count": st.ProductCount,
			"indexed_at":    indexedAtString(st.IndexedAt),
			"last_error":    st.LastError,
		}
	}
	return payload.Format(map[string]any{"stores": list, "count": len(list)}, "stores"), nil
}

func (s *Server) runSearchProducts(ctx context.Context, in searchProductsInput) (any, error) {
	return s.Search.Search(ctx, retrieval.LegacyParams{
		Query:         in.Query,
		Limit:         in.MaxResults,
		AvailableOnly: boolOrDefault(in.AvailableOnly, true),
		SlugArg:       in.Slug,
	})
}

func (s *Server) runSearchProductsV2(ctx context.Context, in searchProductsV2Input) (any, error) {
	return s.Search.SearchV2(ctx, retrieval.V2Params{
		Query:          in.Query,
		Limit:          in.Limit,
		AvailableOnly:  boolOrDefault(in.AvailableOnly, true),
		BudgetMinCents: in.BudgetMinCents,
		BudgetMaxCents: in.BudgetMaxCents,
		SkinTone:       in.SkinTone,
		Sort:           in.Sort,
		SlugArg:        in.Slug,
	})
}

func (s *Server) runFilterProducts(ctx context.Context, in filterProductsInput) (any, error) {
	hintParts := append([]string{in.ProductType}, in.Tags...)
	hint := strings.TrimSpace(strings.Join(hintParts, " "))
	storeSlug, err := s.Resolver.Resolve(ctx, in.Slug, hint)
	if err != nil {
		return nil, err
	}

	products, err := s.Repo.FilterProducts(ctx, storeSlug, catalog.ProductFilter{
		ProductType:   in.ProductType,
		Tags:          in.Tags,
		MinPriceCents: in.MinPrice,
		MaxPriceCents: in.MaxPrice,
		AvailableOnly: boolOrDefault(in.AvailableOnly, true),
		Options:       in.Options,
		Limit:         in.Limit,
	})
	if err != nil {
		return nil, err
	}

	results := make([]any, len(products))
	for i, p := range products {
		summary := productSummaryMap(p, nil)
		summary["store_slug"] = storeSlug
		results[i] = summary
	}
	return payload.Format(results, "tags"), nil
}

func (s *Server) runGetProduct(ctx context.Context, in getProductInput) (any, error) {
	storeSlug, err := s.Resolver.Resolve(ctx, in.Slug, in.Handle)
	if err != nil {
		return nil, err
	}
	product, err := s.Repo.FindByHandle(ctx, storeSlug, in.Handle)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return payload.Format(map[string]any{"store_slug": storeSlug, "handle": in.Handle, "found": false}), nil
	}

	availableOptions := availableOptionValues(product.Variants)
	variants := make([]any, len(product.Variants))
	for i, v := range product.Variants {
		variants[i] = map[string]any{
			"id":        v.ID,
			"title":     v.Title,
			"options":   v.Options,
			"available": v.Available,
			"price":     derefPrice(v.PriceCent),
		}
	}

	productMap := map[string]any{
		"handle":            product.Handle,
		"title":             product.Title,
		"product_type":      product.ProductType,
		"vendor":            product.Vendor,
		"tags":              product.Tags,
		"price_min":         derefPrice(product.PriceMin),
		"price_max":         derefPrice(product.PriceMax),
		"available":         product.Available,
		"url":               product.URL,
		"variants":          variants,
		"available_options": availableOptions,
	}
	return payload.Format(map[string]any{"store_slug": storeSlug, "found": true, "product": productMap}, "variants"), nil
}

func (s *Server) runCheckVariantAvailability(ctx context.Context, in checkVariantAvailabilityInput) (any, error) {
	storeSlug, err := s.Resolver.Resolve(ctx, in.Slug, in.Handle)
	if err != nil {
		return nil, err
	}
	product, err := s.Repo.FindByHandle(ctx, storeSlug, in.Handle)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return payload.Format(map[string]any{
			"store_slug": storeSlug, "available": false, "variant_id": "", "price": 0, "matched": false, "product_url": "",
		}), nil
	}

	required := catalog.NormalizeOptions(in.Options)
	for _, v := range product.Variants {
		if catalog.VariantMatchesOptions(v.Options, required) {
			return payload.Format(map[string]any{
				"store_slug": storeSlug, "product_url": product.URL, "available": v.Available,
				"variant_id": v.ID, "price": derefPrice(v.PriceCent), "matched": true,
			}), nil
		}
	}
	return payload.Format(map[string]any{
		"store_slug": storeSlug, "available": false, "variant_id": "", "price": 0, "matched": false, "product_url": product.URL,
	}), nil
}

func (s *Server) runListCategories(ctx context.Context, in listCategoriesInput) (any, error) {
	storeSlug, err := s.Resolver.Resolve(ctx, in.Slug, "")
	if err != nil {
		return nil, err
	}
	cats, err := s.Repo.ListCategories(ctx, storeSlug)
	if err != nil {
		return nil, err
	}
	topTags := make([]any, len(cats.TopTags))
	for i, t := range cats.TopTags {
		topTags[i] = map[string]any{"tag": t.Tag, "count": t.Count}
	}
	return payload.Format(map[string]any{
		"store_slug":     storeSlug,
		"product_types":  cats.ProductTypes,
		"top_tags":       topTags,
		"total_products": cats.TotalProducts,
	}, "product_types", "top_tags"), nil
}

func (s *Server) runAddToBasket(ctx context.Context, in addToBasketInput) (any, error) {
	storeSlug, err := s.Resolver.Resolve(ctx, in.Slug, in.Handle)
	if err != nil {
		return nil, err
	}
	view, err := s.Basket.AddLine(ctx, basket.AddLineParams{
		BasketID: in.BasketID, StoreSlug: storeSlug, Handle: in.Handle,
		VariantID: in.VariantID, Options: in.Options, Quantity: in.Quantity,
	})
	if err != nil {
		return nil, err
	}
	return payload.Format(basketViewMap(view), "items"), nil
}

func (s *Server) runUpdateBasketItem(ctx context.Context, in updateBasketItemInput) (any, error) {
	storeSlug, err := s.Resolver.Resolve(ctx, in.Slug, "")
	if err != nil {
		return nil, err
	}
	view, err := s.Basket.UpdateQuantity(ctx, in.BasketID, storeSlug, in.VariantID, in.Quantity)
	if err != nil {
		return nil, err
	}
	return payload.Format(basketViewMap(view), "items"), nil
}

func (s *Server) runRemoveBasketItem(ctx context.Context, in removeBasketItemInput) (any, error) {
	storeSlug, err := s.Resolver.Resolve(ctx, in.Slug, "")
	if err != nil {
		return nil, err
	}
	view, err := s.Basket.Remove(ctx, in.BasketID, storeSlug, in.VariantID)
	if err != nil {
		return nil, err
	}
	return payload.Format(basketViewMap(view), "items"), nil
}

func (s *Server) runClearBasket(ctx context.Context, in clearBasketInput) (any, error) {
	storeSlug, err := s.Resolver.Resolve(ctx, in.Slug, "")
	if err != nil {
		return nil, err
	}
	view, err := s.Basket.Clear(ctx, in.BasketID, storeSlug)
	if err != nil {
		return nil, err
	}
	return payload.Format(basketViewMap(view), "items"), nil
}

func (s *Server) runGetBasket(ctx context.Context, in getBasketInput) (any, error) {
	storeSlug, err := s.Resolver.Resolve(ctx, in.Slug, "")
	if err != nil {
		return nil, err
	}
	view, err := s.Basket.Get(ctx, in.BasketID, storeSlug)
	if err != nil {
		return nil, err
	}
	return payload.Format(basketViewMap(view), "items"), nil
}

func (s *Server) runCreateCheckoutIntent(ctx context.Context, in createCheckoutIntentInput) (any, error) {
	storeSlug, err := s.Resolver.Resolve(ctx, in.Slug, "")
	if err != nil {
		return nil, err
	}
	result, err := s.Basket.CreateCheckoutIntent(ctx, in.BasketID, storeSlug, in.MarkCheckedOut)
	if err != nil {
		return nil, err
	}
	return payload.Format(checkoutResultMap(result)), nil
}

func (s *Server) runCheckoutItems(ctx context.Context, in checkoutItemsInput) (any, error) {
	storeSlug, err := s.Resolver.Resolve(ctx, in.Slug, "")
	if err != nil {
		return nil, err
	}
	items := make([]basket.CheckoutItemRequest, len(in.Items))
	for i, it := range in.Items {
		items[i] = basket.CheckoutItemRequest{Handle: it.Handle, VariantID: it.VariantID, Options: it.Options, Quantity: it.Quantity}
	}
	result, err := s.Basket.CheckoutItems(ctx, in.BasketID, storeSlug, items, in.MarkCheckedOut)
	if err != nil {
		return nil, err
	}
	return payload.Format(checkoutItemsResultMap(result)), nil
}

// === MCP SDK handlers: typed input structs, SDK does the decoding. ===

func (s *Server) mcpListStores(ctx context.Context, _ *mcp.CallToolRequest, in listStoresInput) (*mcp.CallToolResult, any, error) {
	r, err := s.runListStores(ctx, in)
	if err != nil {
		return nil, nil, mcpError(err)
	}
	return nil, r, nil
}

func (s *Server) mcpSearchProducts(ctx context.Context, _ *mcp.CallToolRequest, in searchProductsInput) (*mcp.CallToolResult, any, error) {
	r, err := s.runSearchProducts(ctx, in)
	if err != nil {
		return nil, nil, mcpError(err)
	}
	return nil, r, nil
}

func (s *Server) mcpSearchProductsV2(ctx context.Context, _ *mcp.CallToolRequest, in searchProductsV2Input) (*mcp.CallToolResult, any, error) {
	r, err := s.runSearchProductsV2(ctx, in)
	if err != nil {
		return nil, nil, mcpError(err)
	}
	return nil, r, nil
}

func (s *Server) mcpFilterProducts(ctx context.Context, _ *mcp.CallToolRequest, in filterProductsInput) (*mcp.CallToolResult, any, error) {
	r, err := s.runFilterProducts(ctx, in)
	if err != nil {
		return nil, nil, mcpError(err)
	}
	return nil, r, nil
}

func (s *Server) mcpGetProduct(ctx context.Context, _ *mcp.CallToolRequest, in getProductInput) (*mcp.CallToolResult, any, error) {
	r, err := s.runGetProduct(ctx, in)
	if err != nil {
		return nil, nil, mcpError(err)
	}
	return nil, r, nil
}

func (s *Server) mcpCheckVariantAvailability(ctx context.Context, _ *mcp.CallToolRequest, in checkVariantAvailabilityInput) (*mcp.CallToolResult, any, error) {
	r, err := s.runCheckVariantAvailability(ctx, in)
	if err != nil {
		return nil, nil, mcpError(err)
	}
	return nil, r, nil
}

func (s *Server) mcpListCategories(ctx context.Context, _ *mcp.CallToolRequest, in listCategoriesInput) (*mcp.CallToolResult, any, error) {
	r, err := s.runListCategories(ctx, in)
	if err != nil {
		return nil, nil, mcpError(err)
	}
	return nil, r, nil
}

func (s *Server) mcpAddToBasket(ctx context.Context, _ *mcp.CallToolRequest, in addToBasketInput) (*mcp.CallToolResult, any, error) {
	r, err := s.runAddToBasket(ctx, in)
	if err != nil {
		return nil, nil, mcpError(err)
	}
	return nil, r, nil
}

func (s *Server) mcpUpdateBasketItem(ctx context.Context, _ *mcp.CallToolRequest, in updateBasketItemInput) (*mcp.CallToolResult, any, error) {
	r, err := s.runUpdateBasketItem(ctx, in)
	if err != nil {
		return nil, nil, mcpError(err)
	}
	return nil, r, nil
}

func (s *Server) mcpRemoveBasketItem(ctx context.Context, _ *mcp.CallToolRequest, in removeBasketItemInput) (*mcp.CallToolResult, any, error) {
	r, err := s.runRemoveBasketItem(ctx, in)
	if err != nil {
		return nil, nil, mcpError(err)
	}
	return nil, r, nil
}

func (s *Server) mcpClearBasket(ctx context.Context, _ *mcp.CallToolRequest, in clearBasketInput) (*mcp.CallToolResult, any, error) {
	r, err := s.runClearBasket(ctx, in)
	if err != nil {
		return nil, nil, mcpError(err)
	}
	return nil, r, nil
}

func (s *Server) mcpGetBasket(ctx context.Context, _ *mcp.CallToolRequest, in getBasketInput) (*mcp.CallToolResult, any, error) {
	r, err := s.runGetBasket(ctx, in)
	if err != nil {
		return nil, nil, mcpError(err)
	}
	return nil, r, nil
}

func (s *Server) mcpCreateCheckoutIntent(ctx context.Context, _ *mcp.CallToolRequest, in createCheckoutIntentInput) (*mcp.CallToolResult, any, error) {
	r, err := s.runCreateCheckoutIntent(ctx, in)
	if err != nil {
		return nil, nil, mcpError(err)
	}
	return nil, r, nil
}

func (s *Server) mcpCheckoutItems(ctx context.Context, _ *mcp.CallToolRequest, in checkoutItemsInput) (*mcp.CallToolResult, any, error) {
	r, err := s.runCheckoutItems(ctx, in)
	if err != nil {
		return nil, nil, mcpError(err)
	}
	return nil, r, nil
}

// === Shared JSON-shaping helpers. ===

func boolOrDefault(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func derefPrice(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func indexedAtString(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func productSummaryMap(p model.Product, score *float64) map[string]any {
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
	summary := map[string]any{
		"title":         p.Title,
		"handle":        p.Handle,
		"price_min":     derefPrice(priceMin),
		"price_max":     derefPrice(priceMax),
		"available":     available,
		"variant_count": len(p.Variants),
		"url":           p.URL,
		"product_url":   p.URL,
	}
	if score != nil {
		summary["score"] = *score
	}
	return summary
}

func availableOptionValues(variants []model.Variant) map[string][]string {
	seen := map[string]map[string]struct{}{}
	for _, v := range variants {
		if !v.Available {
			continue
		}
		for k, val := range v.Options {
			key := strings.ToLower(strings.TrimSpace(k))
			value := strings.ToLower(strings.TrimSpace(val))
			if key == "" || value == "" {
				continue
			}
			if seen[key] == nil {
				seen[key] = map[string]struct{}{}
			}
			seen[key][value] = struct{}{}
		}
	}
	out := make(map[string][]string, len(seen))
	for k, vals := range seen {
		list := make([]string, 0, len(vals))
		for v := range vals {
			list = append(list, v)
		}
		sort.Strings(list)
		out[k] = list
	}
	return out
}

func basketViewMap(v *basket.View) map[string]any {
	items := make([]any, len(v.Items))
	for i, it := range v.Items {
		items[i] = map[string]any{
			"variant_id":  it.VariantID,
			"handle":      it.Handle,
			"title":       it.Title,
			"product_url": it.ProductURL,
			"options":     it.Options,
			"unit_price":  it.UnitPrice,
			"quantity":    it.Quantity,
			"available":   it.Available,
			"added_at":    it.AddedAt.Format(time.RFC3339),
			"updated_at":  it.UpdatedAt.Format(time.RFC3339),
		}
	}
	out := basketSummaryMap(v.Basket)
	out["items"] = items
	out["item_count"] = v.ItemCount
	out["quantity_total"] = v.QuantityTotal
	out["subtotal"] = v.Subtotal
	return out
}

func basketSummaryMap(b model.Basket) map[string]any {
	return map[string]any{
		"basket_id":      b.BasketID,
		"store_slug":     b.StoreSlug,
		"status":         string(b.Status),
		"checkout_url":   b.CheckoutURL,
		"created_at":     b.CreatedAt.Format(time.RFC3339),
		"updated_at":     b.UpdatedAt.Format(time.RFC3339),
		"checked_out_at": indexedAtString(b.CheckedOutAt),
	}
}

func checkoutResultMap(r *basket.CheckoutResult) map[string]any {
	out := map[string]any{
		"supported": r.Supported,
		"basket":    basketSummaryMap(r.Basket),
	}
	if r.Supported {
		out["checkout_url"] = r.CheckoutURL
	} else {
		out["reason"] = r.Reason
		out["manual_checkout"] = r.ManualCheckout
		out["product_urls"] = r.ProductURLs
	}
	return out
}

func checkoutItemsResultMap(r *basket.CheckoutItemsResult) map[string]any {
	out := checkoutResultMap(&r.Checkout)
	out["added_items"] = r.AddedItems
	out["line_count"] = r.LineCount
	return out
}
