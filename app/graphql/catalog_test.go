package graphql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/app/services"
	gql "github.com/shashiranjanraj/kisanmart/pkg/graphql"
	"github.com/shashiranjanraj/kisanmart/pkg/orm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	products []models.Product
	lastQ    services.ProductQuery
}

func (f *fakeCatalog) List(_ context.Context, q services.ProductQuery) ([]models.Product, orm.Pagination, error) {
	f.lastQ = q
	return f.products, orm.NewPagination(q.Page, q.Limit, 100).WithTotal(int64(len(f.products))), nil
}

func (f *fakeCatalog) Featured(context.Context) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Get(_ context.Context, id string) (*models.Product, error) {
	for i := range f.products {
		if f.products[i].ID == id {
			return &f.products[i], nil
		}
	}
	return nil, services.NotFound("Product not found")
}

func execute(t *testing.T, catalog Catalog, query string) map[string]any {
	t.Helper()
	schema, err := NewSchema(catalog)
	require.NoError(t, err)

	body, _ := json.Marshal(gql.Request{Query: query})
	rec := httptest.NewRecorder()
	gql.Handler(schema)(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(body))))
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func sampleCatalog() *fakeCatalog {
	return &fakeCatalog{products: []models.Product{
		{ID: "p1", Name: "Neem Oil", Price: 250, Stock: 4, InStock: true, Featured: true,
			Images: []models.Image{{URL: "/storage/products/neem.png", Alt: "neem"}}},
		{ID: "p2", Name: "Glyphosate 41%", Price: 480, Category: models.CategoryHerbicides},
	}}
}

func TestProductsQueryPassesFilters(t *testing.T) {
	catalog := sampleCatalog()
	out := execute(t, catalog, `{ products(category: "Herbicides", minPrice: 100, inStock: true, page: 2, limit: 1) {
		items { id name price } pagination { page limit total pages } } }`)

	require.Nil(t, out["errors"])
	page := out["data"].(map[string]any)["products"].(map[string]any)
	assert.Len(t, page["items"], 2)
	assert.Equal(t, map[string]any{"page": float64(2), "limit": float64(1), "total": float64(2), "pages": float64(2)}, page["pagination"])

	assert.Equal(t, "Herbicides", catalog.lastQ.Category)
	require.NotNil(t, catalog.lastQ.MinPrice)
	assert.Equal(t, 100.0, *catalog.lastQ.MinPrice)
	assert.Nil(t, catalog.lastQ.MaxPrice)
	assert.True(t, catalog.lastQ.InStock)
}

func TestProductQueryResolvesNestedFields(t *testing.T) {
	out := execute(t, sampleCatalog(), `{ product(id: "p1") { id name inStock images { url alt } ratings { count } } }`)

	require.Nil(t, out["errors"])
	p := out["data"].(map[string]any)["product"].(map[string]any)
	assert.Equal(t, "p1", p["id"])
	assert.Equal(t, true, p["inStock"])
	assert.Equal(t, []any{map[string]any{"url": "/storage/products/neem.png", "alt": "neem"}}, p["images"])
	assert.Equal(t, map[string]any{"count": float64(0)}, p["ratings"])
}

func TestProductQueryReportsNotFound(t *testing.T) {
	out := execute(t, sampleCatalog(), `{ product(id: "nope") { id } }`)

	errs, ok := out["errors"].([]any)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "Product not found", errs[0].(map[string]any)["message"])
}

func TestFeaturedProducts(t *testing.T) {
	out := execute(t, sampleCatalog(), `{ featuredProducts { name } }`)

	require.Nil(t, out["errors"])
	assert.Equal(t, []any{map[string]any{"name": "Neem Oil"}}, out["data"].(map[string]any)["featuredProducts"])
}

func TestHandlerRejectsEmptyQuery(t *testing.T) {
	schema, err := NewSchema(sampleCatalog())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	gql.Handler(schema)(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
