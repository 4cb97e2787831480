package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var vErr *ValidationError

	_, err := f.products.Create(ctx, f.vendor, ProductInput{Name: "Bad", Price: decimal.NewFromInt(-1)})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "price", vErr.Field)

	_, err = f.products.Create(ctx, f.vendor, ProductInput{Name: "Bad", Price: decimal.Zero, Stock: -1})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "stock", vErr.Field)

	_, err = f.products.Create(ctx, f.vendor, ProductInput{Name: "  ", Price: decimal.Zero})
	require.ErrorAs(t, err, &vErr)

	free, err := f.products.Create(ctx, f.vendor, ProductInput{Name: "Sample", Price: decimal.Zero})
	require.NoError(t, err)
	assert.Equal(t, f.vendor.ID, free.OwnerID)
	assert.Zero(t, free.Stock)

	_, err = f.products.Create(ctx, f.customer, ProductInput{Name: "Nope", Price: decimal.Zero})
	var authErr *AuthorizationError
	assert.ErrorAs(t, err, &authErr)
}

func TestProduct_PriceMustFitCatalogColumn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, price := range []string{"0.005", "1.999", "10000000000.00", "12345678901"} {
		_, err := f.products.Create(ctx, f.vendor, ProductInput{Name: "Odd", Price: decimal.RequireFromString(price)})
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, price)
		assert.Equal(t, "price", vErr.Field, price)
	}

	for _, price := range []string{"9999999999.99", "1.50", "2.500"} {
		_, err := f.products.Create(ctx, f.vendor, ProductInput{Name: "Fine", Price: decimal.RequireFromString(price)})
		assert.NoError(t, err, price)
	}

	p := f.product(t, f.vendor, "Patched", "3.00", 1)
	tiny := decimal.RequireFromString("3.001")
	_, err := f.products.Update(ctx, f.vendor, p.ID, ProductPatch{Price: &tiny})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "price", vErr.Field)
}

func TestProduct_UpdateOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, f.vendor, "Owned", "5.00", 5)
	other, err := f.users.CreateVendor(ctx, f.admin, RegisterInput{Name: "Otto", Email: "otto@pos.test", Password: "ottopass"})
	require.NoError(t, err)

	stock := int64(9)
	_, err = f.products.Update(ctx, actorOf(other), p.ID, ProductPatch{Stock: &stock})
	var authErr *AuthorizationError
	require.ErrorAs(t, err, &authErr)

	updated, err := f.products.Update(ctx, f.admin, p.ID, ProductPatch{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, int64(9), updated.Stock)
	assert.Equal(t, f.vendor.ID, updated.OwnerID)

	neg := decimal.NewFromInt(-3)
	_, err = f.products.Update(ctx, f.vendor, p.ID, ProductPatch{Price: &neg})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = f.products.Update(ctx, f.vendor, 777, ProductPatch{Stock: &stock})
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestProduct_DeleteOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, f.vendor, "Owned", "5.00", 5)

	var authErr *AuthorizationError
	require.ErrorAs(t, f.products.Delete(ctx, f.customer, p.ID), &authErr)
	require.NoError(t, f.products.Delete(ctx, f.admin, p.ID))

	_, err := f.products.Get(ctx, p.ID)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestProduct_ListPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.product(t, f.vendor, fmt.Sprintf("Tea %d", i), "1.00", 1)
	}
	f.product(t, f.vendor, "Coffee", "1.00", 1)

	page, err := f.products.List(ctx, ProductQuery{Keyword: "tea", Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Count)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Tea 2", page.Products[0].Name)

	page, err = f.products.List(ctx, ProductQuery{Page: 0, PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Products, 6)
}
