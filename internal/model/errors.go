package model

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases.
// Use errors.Is() to check against these.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrScopeMismatch   = errors.New("scope mismatch")
	ErrNoIndexedStores = errors.New("no indexed stores")
)

// APIError represents a structured error for tool responses.
// Implements error interface and supports unwrapping.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"` // Wrapped error, not serialized
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func newError(code, message string, err error) *APIError {
	return &APIError{Code: code, Message: message, Err: err}
}

// Caller-shape errors.

func NewInvalidHandleError(reason string) *APIError {
	return newError("invalid_handle", reason, ErrInvalidRequest)
}

func NewInvalidQuantityError(reason string) *APIError {
	return newError("invalid_quantity", reason, ErrInvalidRequest)
}

func NewInvalidVariantIDError(reason string) *APIError {
	return newError("invalid_variant_id", reason, ErrInvalidRequest)
}

func NewInvalidItemsError(reason string) *APIError {
	return newError("invalid_items", reason, ErrInvalidRequest)
}

func NewInvalidBasketIDError(reason string) *APIError {
	return newError("invalid_basket_id", reason, ErrInvalidRequest)
}

// Product/variant resolution failures.

func NewProductNotFoundError(handle string) *APIError {
	return newError("product_not_found", fmt.Sprintf("no product with handle %q", handle), ErrNotFound)
}

func NewVariantNotFoundError() *APIError {
	return newError("variant_not_found", "no variant matches the given variant_id", ErrNotFound)
}

func NewOptionsNotFoundError() *APIError {
	return newError("options_not_found", "no variant matches the given options", ErrNotFound)
}

func NewVariantSelectionRequiredError() *APIError {
	return newError("variant_selection_required", "product has multiple variants; specify variant_id or options", ErrInvalidRequest)
}

func NewVariantUnavailableError() *APIError {
	return newError("variant_unavailable", "the selected variant is not available", nil)
}

func NewMissingVariantIDError() *APIError {
	return newError("missing_variant_id", "a line item is missing a variant_id", ErrInvalidRequest)
}

func NewNoVariantsError() *APIError {
	return newError("no_variants", "product has no variants", ErrNotFound)
}

// Basket errors.

func NewBasketNotFoundError(basketID string) *APIError {
	return newError("basket_not_found", fmt.Sprintf("no basket with id %q", basketID), ErrNotFound)
}

func NewBasketScopeError() *APIError {
	return newError("basket_scope_error", "basket belongs to a different store", ErrScopeMismatch)
}

func NewBasketLineNotFoundError() *APIError {
	return newError("basket_line_not_found", "no line item matches the given variant_id", ErrNotFound)
}

func NewEmptyBasketError() *APIError {
	return newError("empty_basket", "basket has no line items", ErrInvalidRequest)
}

func NewBasketCreateFailedError(err error) *APIError {
	return newError("basket_create_failed", "failed to create basket", err)
}

// Checkout failures.

func NewCheckoutURLBuildFailedError(err error) *APIError {
	return newError("checkout_url_build_failed", "failed to build checkout url", err)
}

func NewUnsupportedPlatformError(platform string) *APIError {
	return newError("unsupported_platform", fmt.Sprintf("platform %q does not support prefilled checkout", platform), nil)
}

func NewMissingVariantIDsError() *APIError {
	return newError("missing_variant_ids", "one or more basket lines are missing a variant_id", nil)
}

// Feature-flag errors.

func NewV2DisabledError() *APIError {
	return newError("v2_disabled", "search_products_v2 is not enabled", nil)
}

// NewNoIndexedStoresError signals that the slug resolver exhausted every
// tier without finding a candidate store.
func NewNoIndexedStoresError() *APIError {
	return newError("no_indexed_stores", "no indexed stores available; index a store first or provide slug explicitly", ErrNoIndexedStores)
}

// NewInternalError wraps an unexpected failure that implies programmer
// error (spec section 7: "the process is in an inconsistent state").
func NewInternalError(err error) *APIError {
	return newError("internal_error", "an internal error occurred", err)
}
