package catalog

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/potatoman03/shopmcp/internal/dbx"
)

func setupRepo(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := dbx.NewMockPool()
	require.NoError(t, err)
	return NewRepository(mock), mock
}

func TestListStores(t *testing.T) {
	repo, mock := setupRepo(t)
	indexedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"slug", "store_name", "url", "platform", "product_count", "indexed_at", "last_error"}).
		AddRow("acme", "Acme Co", "https://acme.example", "shopify", 120, &indexedAt, "")

	mock.ExpectQuery("select slug, store_name, url, platform, product_count, indexed_at, last_error").
		WithArgs(25).
		WillReturnRows(rows)

	stores, err := repo.ListStores(context.Background(), 25)
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "acme", stores[0].Slug)
	assert.Equal(t, 120, stores[0].ProductCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListStores_ClampsLimit(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery("select slug, store_name, url, platform, product_count, indexed_at, last_error").
		WithArgs(200).
		WillReturnRows(pgxmock.NewRows([]string{"slug", "store_name", "url", "platform", "product_count", "indexed_at", "last_error"}))

	_, err := repo.ListStores(context.Background(), 9999)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchHintStore_Found(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery("select store_slug").
		WithArgs("red shirt").
		WillReturnRows(pgxmock.NewRows([]string{"store_slug"}).AddRow("acme"))

	slug, found, err := repo.SearchHintStore(context.Background(), "red shirt")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "acme", slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchHintStore_NoRows(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery("select store_slug").
		WithArgs("nonsense query").
		WillReturnRows(pgxmock.NewRows([]string{"store_slug"}))

	slug, found, err := repo.SearchHintStore(context.Background(), "nonsense query")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "", slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferredStore(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery("select slug from stores").
		WillReturnRows(pgxmock.NewRows([]string{"slug"}).AddRow("biggest-store"))

	slug, found, err := repo.PreferredStore(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "biggest-store", slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLexicalCandidates(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery("select product_id, row_number").
		WithArgs("acme", "red shirt", 50).
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "rank"}).
			AddRow("p1", 1).
			AddRow("p2", 2))

	got, err := repo.LexicalCandidates(context.Background(), "acme", "red shirt", 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ProductID)
	assert.Equal(t, 1, got[0].Rank)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVectorCandidates(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery("select product_id, row_number").
		WithArgs("acme", pgxmock.AnyArg(), 50).
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "rank"}).AddRow("p3", 1))

	got, err := repo.VectorCandidates(context.Background(), "acme", []float32{0.1, 0.2}, 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p3", got[0].ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func productCols() []string {
	return []string{
		"product_id", "handle", "title", "product_type", "vendor", "tags",
		"price_min", "price_max", "available", "url", "is_catalog_product",
		"option_tokens", "summary_short", "summary_llm", "data",
	}
}

func productDataJSON() []byte {
	return []byte(`{
		"variants": [
			{"id": "v1", "options": {"Size": "M"}, "available": true, "price": 19.99, "title": "Medium"},
			{"id": "v2", "options": {"Size": "L"}, "available": false, "price_cents": 2499.0, "title": "Large"}
		]
	}`)
}

func TestFetchProducts(t *testing.T) {
	repo, mock := setupRepo(t)

	cols := productCols()
	rows := pgxmock.NewRows(cols).
		AddRow("p1", "red-tee", "Red Tee", "shirts", "Acme", []string{"summer"}, int64(1999), int64(2499), true, "https://acme.example/products/red-tee", nil, []string{}, "", "", productDataJSON())

	mock.ExpectQuery("select product_id, handle, title, product_type, vendor, tags").
		WithArgs("acme", []string{"p1"}).
		WillReturnRows(rows)

	got, err := repo.FetchProducts(context.Background(), "acme", []string{"p1"})
	require.NoError(t, err)
	require.Contains(t, got, "p1")
	p := got["p1"]
	assert.Equal(t, "red-tee", p.Handle)
	require.Len(t, p.Variants, 2)
	assert.Equal(t, "v1", p.Variants[0].ID)
	assert.True(t, p.Variants[0].Available)
	require.NotNil(t, p.Variants[0].PriceCent)
	assert.Equal(t, int64(1999), *p.Variants[0].PriceCent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchProducts_EmptyIDsSkipsQuery(t *testing.T) {
	repo, _ := setupRepo(t)

	got, err := repo.FetchProducts(context.Background(), "acme", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindByHandle_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery("select product_id, handle, title, product_type, vendor, tags").
		WithArgs("acme", "missing-handle").
		WillReturnRows(pgxmock.NewRows(productCols()))

	got, err := repo.FindByHandle(context.Background(), "acme", "missing-handle")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCategories(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery("select product_type, count").
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows([]string{"product_type", "count"}).AddRow("shirts", 10))

	mock.ExpectQuery("select tag, count").
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows([]string{"tag", "count"}).AddRow("summer", 5))

	mock.ExpectQuery("select count\\(\\*\\) from products").
		WithArgs("acme").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	cats, err := repo.ListCategories(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"shirts"}, cats.ProductTypes)
	require.Len(t, cats.TopTags, 1)
	assert.Equal(t, "summer", cats.TopTags[0].Tag)
	assert.Equal(t, 42, cats.TotalProducts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVariantMatchesOptions(t *testing.T) {
	variant := map[string]string{"Size": "M", "Color": "Red"}

	assert.True(t, variantMatchesOptions(variant, map[string]string{"size": "m"}))
	assert.False(t, variantMatchesOptions(variant, map[string]string{"size": "l"}))
	assert.True(t, variantMatchesOptions(variant, nil))
}
