package basket

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemRows(items ...[]any) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"basket_id", "variant_id", "handle", "title", "product_url", "options", "unit_price", "quantity", "available", "added_at", "updated_at"})
	for _, item := range items {
		rows.AddRow(item...)
	}
	return rows
}

func TestCreateCheckoutIntent_Shopify(t *testing.T) {
	m, mock := setupManager(t)

	mock.ExpectQuery("select basket_id, store_slug, status").
		WithArgs("basket_1").
		WillReturnRows(basketRow("basket_1", "acme", "active"))

	mock.ExpectQuery("select basket_id, variant_id, handle").
		WithArgs("basket_1").
		WillReturnRows(itemRows([]any{"basket_1", "gid://v1", "red-tee", "Red Tee", "https://acme.example/products/red-tee", []byte(`{}`), int64(1999), 4, true, time.Now(), time.Now()}))

	mock.ExpectQuery("select slug, store_name, url, platform").
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows(storeCols()).AddRow("acme", "Acme", "https://acme.example", "shopify", 1, nil, ""))

	mock.ExpectQuery("update baskets set checkout_url").
		WithArgs("basket_1", "https://acme.example/cart/gid%3A%2F%2Fv1:4").
		WillReturnRows(basketRow("basket_1", "acme", "active"))

	result, err := m.CreateCheckoutIntent(context.Background(), "basket_1", "acme", false)
	require.NoError(t, err)
	assert.True(t, result.Supported)
	assert.Equal(t, "https://acme.example/cart/gid%3A%2F%2Fv1:4", result.CheckoutURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCheckoutIntent_NonShopifyPlatform(t *testing.T) {
	m, mock := setupManager(t)

	mock.ExpectQuery("select basket_id, store_slug, status").
		WithArgs("basket_1").
		WillReturnRows(basketRow("basket_1", "acme", "active"))

	mock.ExpectQuery("select basket_id, variant_id, handle").
		WithArgs("basket_1").
		WillReturnRows(itemRows([]any{"basket_1", "v1", "tee", "Tee", "https://acme.example/products/tee", []byte(`{}`), int64(1999), 1, true, time.Now(), time.Now()}))

	mock.ExpectQuery("select slug, store_name, url, platform").
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows(storeCols()).AddRow("acme", "Acme", "https://acme.example", "wix", 1, nil, ""))

	result, err := m.CreateCheckoutIntent(context.Background(), "basket_1", "acme", false)
	require.NoError(t, err)
	assert.False(t, result.Supported)
	assert.Equal(t, "unsupported_platform", result.Reason)
	assert.True(t, result.ManualCheckout)
	assert.Equal(t, []string{"https://acme.example/products/tee"}, result.ProductURLs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCheckoutIntent_EmptyBasket(t *testing.T) {
	m, mock := setupManager(t)

	mock.ExpectQuery("select basket_id, store_slug, status").
		WithArgs("basket_1").
		WillReturnRows(basketRow("basket_1", "acme", "active"))

	mock.ExpectQuery("select basket_id, variant_id, handle").
		WithArgs("basket_1").
		WillReturnRows(itemRows())

	_, err := m.CreateCheckoutIntent(context.Background(), "basket_1", "acme", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty_basket")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCheckoutIntent_MissingVariantIDs(t *testing.T) {
	m, mock := setupManager(t)

	mock.ExpectQuery("select basket_id, store_slug, status").
		WithArgs("basket_1").
		WillReturnRows(basketRow("basket_1", "acme", "active"))

	mock.ExpectQuery("select basket_id, variant_id, handle").
		WithArgs("basket_1").
		WillReturnRows(itemRows([]any{"basket_1", "", "tee", "Tee", "https://acme.example/products/tee", []byte(`{}`), int64(1999), 1, true, time.Now(), time.Now()}))

	mock.ExpectQuery("select slug, store_name, url, platform").
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows(storeCols()).AddRow("acme", "Acme", "https://acme.example", "shopify", 1, nil, ""))

	result, err := m.CreateCheckoutIntent(context.Background(), "basket_1", "acme", false)
	require.NoError(t, err)
	assert.False(t, result.Supported)
	assert.Equal(t, "missing_variant_ids", result.Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCheckoutIntent_MarksCheckedOut(t *testing.T) {
	m, mock := setupManager(t)

	mock.ExpectQuery("select basket_id, store_slug, status").
		WithArgs("basket_1").
		WillReturnRows(basketRow("basket_1", "acme", "active"))

	mock.ExpectQuery("select basket_id, variant_id, handle").
		WithArgs("basket_1").
		WillReturnRows(itemRows([]any{"basket_1", "gid://v1", "red-tee", "Red Tee", "https://acme.example/products/red-tee", []byte(`{}`), int64(1999), 1, true, time.Now(), time.Now()}))

	mock.ExpectQuery("select slug, store_name, url, platform").
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows(storeCols()).AddRow("acme", "Acme", "https://acme.example", "shopify", 1, nil, ""))

	mock.ExpectQuery("update baskets set checkout_url = \\$2, status = 'checked_out'").
		WithArgs("basket_1", "https://acme.example/cart/gid%3A%2F%2Fv1:1").
		WillReturnRows(basketRow("basket_1", "acme", "checked_out"))

	result, err := m.CreateCheckoutIntent(context.Background(), "basket_1", "acme", true)
	require.NoError(t, err)
	assert.Equal(t, "checked_out", string(result.Basket.Status))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutItems_Success(t *testing.T) {
	m, mock := setupManager(t)

	mock.ExpectQuery("insert into baskets").
		WithArgs(pgxmock.AnyArg(), "acme").
		WillReturnRows(basketRow("basket_new", "acme", "active"))

	mock.ExpectQuery("select product_id, handle, title, product_type, vendor, tags").
		WithArgs("acme", "red-tee").
		WillReturnRows(pgxmock.NewRows(productCols()).
			AddRow("p1", "red-tee", "Red Tee", "shirts", "Acme", []string{}, int64(1999), int64(1999), true, "https://acme.example/products/red-tee", nil, []string{}, "", "",
				[]byte(`{"variants":[{"id":"gid://v1","available":true,"price":19.99,"title":"Default"}]}`)))

	mock.ExpectQuery("select slug, store_name, url, platform").
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows(storeCols()).AddRow("acme", "Acme", "https://acme.example", "shopify", 1, nil, ""))

	mock.ExpectExec("insert into basket_items").
		WithArgs("basket_new", "gid://v1", "red-tee", "Red Tee", pgxmock.AnyArg(), pgxmock.AnyArg(), int64(1999), 1, true, 99).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectQuery("select basket_id, store_slug, status").
		WithArgs("basket_new").
		WillReturnRows(basketRow("basket_new", "acme", "active"))

	mock.ExpectQuery("select basket_id, variant_id, handle").
		WithArgs("basket_new").
		WillReturnRows(itemRows([]any{"basket_new", "gid://v1", "red-tee", "Red Tee", "https://acme.example/products/red-tee", []byte(`{}`), int64(1999), 1, true, time.Now(), time.Now()}))

	mock.ExpectQuery("select basket_id, store_slug, status").
		WithArgs("basket_new").
		WillReturnRows(basketRow("basket_new", "acme", "active"))

	mock.ExpectQuery("select basket_id, variant_id, handle").
		WithArgs("basket_new").
		WillReturnRows(itemRows([]any{"basket_new", "gid://v1", "red-tee", "Red Tee", "https://acme.example/products/red-tee", []byte(`{}`), int64(1999), 1, true, time.Now(), time.Now()}))

	mock.ExpectQuery("select slug, store_name, url, platform").
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows(storeCols()).AddRow("acme", "Acme", "https://acme.example", "shopify", 1, nil, ""))

	mock.ExpectQuery("update baskets set checkout_url").
		WithArgs("basket_new", "https://acme.example/cart/gid%3A%2F%2Fv1:1").
		WillReturnRows(basketRow("basket_new", "acme", "active"))

	result, err := m.CheckoutItems(context.Background(), "", "acme", []CheckoutItemRequest{
		{Handle: "red-tee", Quantity: 1},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AddedItems)
	assert.True(t, result.Checkout.Supported)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutItems_StopsAtFirstFailureWithAnnotation(t *testing.T) {
	m, mock := setupManager(t)

	mock.ExpectQuery("insert into baskets").
		WithArgs(pgxmock.AnyArg(), "acme").
		WillReturnRows(basketRow("basket_new", "acme", "active"))

	mock.ExpectQuery("select product_id, handle, title, product_type, vendor, tags").
		WithArgs("acme", "missing").
		WillReturnRows(pgxmock.NewRows(productCols()))

	_, err := m.CheckoutItems(context.Background(), "", "acme", []CheckoutItemRequest{
		{Handle: "missing", Quantity: 1},
	}, false)
	require.Error(t, err)

	var itemsErr *ItemsError
	require.ErrorAs(t, err, &itemsErr)
	assert.Equal(t, 0, itemsErr.LineIndex)
	assert.Equal(t, 0, itemsErr.AddedCount)
	assert.Contains(t, itemsErr.Err.Error(), "product_not_found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
