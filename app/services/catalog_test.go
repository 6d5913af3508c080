package services

import (
	"context"
	"testing"

	"github.com/shashiranjanraj/kisanmart/app/models"
	"github.com/shashiranjanraj/kisanmart/app/repositories"
	"github.com/shashiranjanraj/kisanmart/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() ProductInput {
	return ProductInput{
		Name:              "Cypermethrin 10% EC",
		Description:       "Broad spectrum insecticide",
		Price:             320,
		Category:          models.CategoryInsecticides,
		Stock:             12,
		SafetyWarnings:    "Toxic to fish",
		UsageInstructions: "2ml per litre",
	}
}

func TestCatalogListPaginates(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		f.product(t, name, 100, 1)
	}

	items, page, err := f.reg.Catalog.List(context.Background(), ProductQuery{Page: 2, Limit: 2, Sort: repositories.SortNameAsc})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "C", items[0].Name)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, int64(3), page.Pages)
	assert.Equal(t, 2, page.Page)
}

func TestCatalogListCapsLimit(t *testing.T) {
	f := newFixture(t)
	config.Set("MAX_PAGE_SIZE", "3")
	t.Cleanup(func() { config.Set("MAX_PAGE_SIZE", "") })
	for _, name := range []string{"A", "B", "C", "D"} {
		f.product(t, name, 100, 1)
	}

	items, page, err := f.reg.Catalog.List(context.Background(), ProductQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, 3, page.Limit)
	assert.Equal(t, int64(2), page.Pages)
}

func TestCatalogListEmptyIsNotNil(t *testing.T) {
	f := newFixture(t)
	items, page, err := f.reg.Catalog.List(context.Background(), ProductQuery{Category: models.CategoryHerbicides})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Zero(t, page.Pages)
}

func TestFeaturedIsLimitedToEight(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 10; i++ {
		f.product(t, "F", 100, 1, func(p *models.Product) { p.Featured = true })
	}
	f.product(t, "Plain", 100, 1)

	items, err := f.reg.Catalog.Featured(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, featuredLimit)
	for _, p := range items {
		assert.True(t, p.Featured)
	}
}

func TestCatalogGetUnknownIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.Catalog.Get(context.Background(), models.NewID())
	requireKind(t, err, KindNotFound, "Product not found")
	_, err = f.reg.Catalog.Get(context.Background(), "123")
	requireKind(t, err, KindNotFound, "Product not found")
}

func TestCatalogCreateValidates(t *testing.T) {
	f := newFixture(t)
	in := validInput()
	in.Category = "Fertilisers"
	in.SafetyWarnings = ""
	in.Stock = -1

	_, err := f.reg.Catalog.Create(context.Background(), in)
	requireKind(t, err, KindValidation, "Validation failed")
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Contains(t, e.Fields, "category")
	assert.Contains(t, e.Fields, "safetyWarnings")
	assert.Contains(t, e.Fields, "stock")
}

func TestCatalogCreateAndPatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.reg.Catalog.Create(ctx, validInput())
	require.NoError(t, err)
	assert.True(t, p.InStock)
	assert.True(t, models.ValidID(p.ID))
	assert.NotNil(t, p.Images)

	zero, price := 0, 299.5
	updated, err := f.reg.Catalog.Update(ctx, p.ID, ProductPatch{Stock: &zero, Price: &price})
	require.NoError(t, err)
	assert.False(t, updated.InStock)
	assert.Equal(t, 299.5, updated.Price)
	assert.Equal(t, "Cypermethrin 10% EC", updated.Name)

	got, err := f.reg.Catalog.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
	assert.False(t, got.InStock)

	bad := "Fertilisers"
	_, err = f.reg.Catalog.Update(ctx, p.ID, ProductPatch{Category: &bad})
	requireKind(t, err, KindValidation, "Validation failed")
}

func TestCatalogRatingsAreBounded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := validInput()
	in.Ratings = &models.Ratings{Average: 7, Count: -1}
	_, err := f.reg.Catalog.Create(ctx, in)
	requireKind(t, err, KindValidation, "Validation failed")
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Contains(t, e.Fields, "ratings.average")
	assert.Contains(t, e.Fields, "ratings.count")

	in.Ratings = &models.Ratings{Average: 4.5, Count: 12}
	p, err := f.reg.Catalog.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 4.5, p.Ratings.Average)

	_, err = f.reg.Catalog.Update(ctx, p.ID, ProductPatch{Ratings: &models.Ratings{Average: -0.5}})
	requireKind(t, err, KindValidation, "Validation failed")
}

func TestCatalogDelete(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Paraquat", 410, 3)

	require.NoError(t, f.reg.Catalog.Delete(context.Background(), p.ID))
	err := f.reg.Catalog.Delete(context.Background(), p.ID)
	requireKind(t, err, KindNotFound, "Product not found")
}

func TestStockServiceValidatesQuantity(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Atrazine", 150, 3)

	err := f.reg.Stock.Reserve(context.Background(), []models.OrderItem{{Product: p.ID, Name: "Atrazine", Quantity: 0}})
	requireKind(t, err, KindValidation, "Quantity must be at least 1 for Atrazine")

	require.NoError(t, f.reg.Stock.Reserve(context.Background(), []models.OrderItem{{Product: p.ID, Quantity: 2}}))
	assert.Equal(t, 1, f.stockOf(t, p.ID))
	require.NoError(t, f.reg.Stock.Release(context.Background(), []models.OrderItem{{Product: p.ID, Quantity: 2}, {Product: models.NewID(), Quantity: 1}}))
	assert.Equal(t, 3, f.stockOf(t, p.ID))
}
