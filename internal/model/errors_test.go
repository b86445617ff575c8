package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			name: "without wrapped error",
			err: &APIError{
				Code:    "test_error",
				Message: "something went wrong",
			},
			want: "test_error: something went wrong",
		},
		{
			name: "with wrapped error",
			err: &APIError{
				Code:    "test_error",
				Message: "something went wrong",
				Err:     errors.New("underlying cause"),
			},
			want: "test_error: something went wrong (underlying cause)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := &APIError{Code: "test", Message: "test", Err: underlying}

	if unwrapped := err.Unwrap(); unwrapped != underlying {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, underlying)
	}

	errNoWrap := &APIError{Code: "test", Message: "test"}
	if errNoWrap.Unwrap() != nil {
		t.Error("Unwrap() should return nil when no wrapped error")
	}
}

func TestNewProductNotFoundError(t *testing.T) {
	err := NewProductNotFoundError("red-tee")

	if err.Code != "product_not_found" {
		t.Errorf("Code = %q, want product_not_found", err.Code)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("error should wrap ErrNotFound sentinel")
	}
}

func TestNewBasketScopeError(t *testing.T) {
	err := NewBasketScopeError()

	if err.Code != "basket_scope_error" {
		t.Errorf("Code = %q, want basket_scope_error", err.Code)
	}
	if !errors.Is(err, ErrScopeMismatch) {
		t.Error("error should wrap ErrScopeMismatch sentinel")
	}
}

func TestNewUnsupportedPlatformError(t *testing.T) {
	err := NewUnsupportedPlatformError("woocommerce")

	if err.Code != "unsupported_platform" {
		t.Errorf("Code = %q, want unsupported_platform", err.Code)
	}
	if err.Message == "" {
		t.Error("message should describe the platform")
	}
}

func TestNewNoIndexedStoresError(t *testing.T) {
	err := NewNoIndexedStoresError()

	if !errors.Is(err, ErrNoIndexedStores) {
		t.Error("error should wrap ErrNoIndexedStores sentinel")
	}
}

func TestNewInternalError(t *testing.T) {
	underlying := errors.New("basket disappeared between upsert and re-read")
	err := NewInternalError(underlying)

	if err.Code != "internal_error" {
		t.Errorf("Code = %q, want internal_error", err.Code)
	}
	if err.Err != underlying {
		t.Error("wrapped error should be preserved")
	}
}

// TestStableErrorCodes asserts every taxonomy entry from spec section 7
// round-trips through errors.As as an *APIError with its documented code.
func TestStableErrorCodes(t *testing.T) {
	tests := []struct {
		code string
		err  *APIError
	}{
		{"invalid_handle", NewInvalidHandleError("x")},
		{"invalid_quantity", NewInvalidQuantityError("x")},
		{"invalid_variant_id", NewInvalidVariantIDError("x")},
		{"invalid_items", NewInvalidItemsError("x")},
		{"invalid_basket_id", NewInvalidBasketIDError("x")},
		{"product_not_found", NewProductNotFoundError("x")},
		{"variant_not_found", NewVariantNotFoundError()},
		{"options_not_found", NewOptionsNotFoundError()},
		{"variant_selection_required", NewVariantSelectionRequiredError()},
		{"variant_unavailable", NewVariantUnavailableError()},
		{"missing_variant_id", NewMissingVariantIDError()},
		{"no_variants", NewNoVariantsError()},
		{"basket_not_found", NewBasketNotFoundError("x")},
		{"basket_scope_error", NewBasketScopeError()},
		{"basket_line_not_found", NewBasketLineNotFoundError()},
		{"empty_basket", NewEmptyBasketError()},
		{"basket_create_failed", NewBasketCreateFailedError(errors.New("x"))},
		{"checkout_url_build_failed", NewCheckoutURLBuildFailedError(errors.New("x"))},
		{"unsupported_platform", NewUnsupportedPlatformError("x")},
		{"missing_variant_ids", NewMissingVariantIDsError()},
		{"v2_disabled", NewV2DisabledError()},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			var apiErr *APIError
			if !errors.As(wrapped, &apiErr) {
				t.Fatal("errors.As should find *APIError in wrapped error")
			}
			if apiErr.Code != tt.code {
				t.Errorf("Code = %q, want %q", apiErr.Code, tt.code)
			}
		})
	}
}
