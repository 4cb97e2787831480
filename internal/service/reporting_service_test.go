package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sales-pos/internal/model"
	"github.com/iliyamo/sales-pos/internal/repository"
)

func TestDashboard_EmptyLedger(t *testing.T) {
	f := newFixture(t)

	m, err := f.reporting.DashboardMetrics(context.Background())
	require.NoError(t, err)

	assert.True(t, m.TotalRevenue.IsZero())
	assert.Zero(t, m.TotalOrders)
	assert.Equal(t, int64(3), m.TotalUsers)
	assert.Equal(t, int64(1), m.TotalVendedores)
	assert.Zero(t, m.TotalProducts)
	assert.NotNil(t, m.DailySales)
	assert.Empty(t, m.DailySales)
	assert.NotNil(t, m.TopProductsByQuantity)
	assert.Empty(t, m.TopProductsByQuantity)
	assert.NotNil(t, m.TopSellersByRevenue)
	assert.Empty(t, m.TopSellersByRevenue)
}

func TestDashboard_RevenueAndTrailingWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p100 := f.product(t, f.vendor, "Hamper", "100.00", 10)
	p50 := f.product(t, f.vendor, "Basket", "50.00", 10)
	p30 := f.product(t, f.vendor, "Box", "30.00", 10)

	day := time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)
	record := func(at time.Time, p model.Product) {
		f.setClock(at)
		_, err := f.sales.CreateSale(ctx, f.vendor, []BasketLine{{ProductID: p.ID, Quantity: 1}})
		require.NoError(t, err)
	}
	record(day.Add(-10*24*time.Hour), p30)
	record(day.Add(-2*time.Hour), p100)
	record(day.Add(-1*time.Hour), p50)

	f.setClock(day)
	m, err := f.reporting.DashboardMetrics(ctx)
	require.NoError(t, err)

	assert.True(t, m.TotalRevenue.Equal(decimal.NewFromInt(180)))
	assert.Equal(t, int64(3), m.TotalOrders)
	assert.Equal(t, int64(3), m.TotalProducts)
	require.Len(t, m.DailySales, 1)
	assert.Equal(t, "2026-05-20", m.DailySales[0].Date)
	assert.True(t, m.DailySales[0].DailyTotal.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, int64(2), m.DailySales[0].Count)
}

func TestDashboard_DailySalesAscendingWithoutGaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, f.vendor, "Bread", "2.00", 100)
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

	for _, daysAgo := range []int{1, 5, 3, 5} {
		f.setClock(now.AddDate(0, 0, -daysAgo))
		_, err := f.sales.CreateSale(ctx, f.vendor, []BasketLine{{ProductID: p.ID, Quantity: 1}})
		require.NoError(t, err)
	}
	f.setClock(now)

	m, err := f.reporting.DashboardMetrics(ctx)
	require.NoError(t, err)
	var dates []string
	for _, d := range m.DailySales {
		dates = append(dates, d.Date)
	}
	assert.Equal(t, []string{"2026-05-15", "2026-05-17", "2026-05-19"}, dates)
	assert.Equal(t, int64(2), m.DailySales[0].Count)
}

func TestDashboard_TopProductsByQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.product(t, f.vendor, "P1", "1.00", 100)
	p2 := f.product(t, f.vendor, "P2", "1.00", 100)

	for _, line := range []BasketLine{{p1.ID, 3}, {p2.ID, 5}, {p1.ID, 4}} {
		_, err := f.sales.CreateSale(ctx, f.vendor, []BasketLine{line})
		require.NoError(t, err)
	}

	m, err := f.reporting.DashboardMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, m.TopProductsByQuantity, 2)
	assert.Equal(t, model.ProductRanking{ProductID: p1.ID, ProductName: "P1", TotalQuantitySold: 7}, m.TopProductsByQuantity[0])
	assert.Equal(t, model.ProductRanking{ProductID: p2.ID, ProductName: "P2", TotalQuantitySold: 5}, m.TopProductsByQuantity[1])
}

func TestDashboard_TopListsCapAndBreakTiesById(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var products []model.Product
	for i := 0; i < 7; i++ {
		products = append(products, f.product(t, f.vendor, fmt.Sprintf("Item%d", i), "1.00", 10))
	}
	// Every product sells once, so all quantities tie.
	for i := len(products) - 1; i >= 0; i-- {
		_, err := f.sales.CreateSale(ctx, f.vendor, []BasketLine{{ProductID: products[i].ID, Quantity: 1}})
		require.NoError(t, err)
	}

	m, err := f.reporting.DashboardMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, m.TopProductsByQuantity, 5)
	for i, r := range m.TopProductsByQuantity {
		assert.Equal(t, products[i].ID, r.ProductID)
	}
}

func TestDashboard_ProductNameFallsBackToCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, f.vendor, "Catalog Name", "1.00", 10)

	// A ledger line recorded without a name snapshot.
	err := f.store.Sales().WithTx(ctx, func(tx repository.SaleTx) error {
		return tx.InsertSale(ctx, &model.Sale{
			VendorID: f.vendor.ID,
			Items:    []model.SaleItem{{ProductID: p.ID, Quantity: 2, UnitPriceAtSale: p.Price}},
			Total:    decimal.NewFromInt(2),
		})
	})
	require.NoError(t, err)

	m, err := f.reporting.DashboardMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, m.TopProductsByQuantity, 1)
	assert.Equal(t, "Catalog Name", m.TopProductsByQuantity[0].ProductName)
}

func TestDashboard_TopSellersAndDeletedVendor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gone, err := f.users.CreateVendor(ctx, f.admin, RegisterInput{Name: "Gone", Email: "gone@pos.test", Password: "gonepass"})
	require.NoError(t, err)
	goneActor := actorOf(gone)

	p := f.product(t, f.vendor, "Shared", "10.00", 100)
	_, err = f.sales.CreateSale(ctx, f.vendor, []BasketLine{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)
	_, err = f.sales.CreateSale(ctx, goneActor, []BasketLine{{ProductID: p.ID, Quantity: 5}})
	require.NoError(t, err)
	require.NoError(t, f.users.Delete(ctx, f.admin, gone.ID))

	m, err := f.reporting.DashboardMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, m.TopSellersByRevenue, 2)

	top := m.TopSellersByRevenue[0]
	assert.Equal(t, gone.ID, top.VendorID)
	assert.Nil(t, top.VendorName)
	assert.Nil(t, top.VendorEmail)
	assert.Nil(t, top.Business)
	assert.True(t, top.TotalRevenueGenerated.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, int64(1), top.TotalSalesCount)

	second := m.TopSellersByRevenue[1]
	require.NotNil(t, second.VendorName)
	assert.Equal(t, "Vera", *second.VendorName)
	assert.Equal(t, "vera@pos.test", *second.VendorEmail)
	assert.Equal(t, "Vera's Deli", *second.Business)
}
