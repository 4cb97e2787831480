package model

import "github.com/shopspring/decimal"

// DailySales is one calendar day (UTC, YYYY-MM-DD) of the trailing window.
type DailySales struct {
	Date       string          `json:"date"`
	DailyTotal decimal.Decimal `json:"dailyTotal"`
	Count      int64           `json:"count"`
}

// ProductRanking is an entry of the top products by quantity sold.
type ProductRanking struct {
	ProductID         uint64 `json:"productId"`
	ProductName       string `json:"productName"`
	TotalQuantitySold int64  `json:"totalQuantitySold"`
}

// SellerRanking is an entry of the top vendors by revenue.  The display
// fields are nil when the vendor account no longer exists.
type SellerRanking struct {
	VendorID              uint64          `json:"vendorId"`
	VendorName            *string         `json:"vendorName"`
	VendorEmail           *string         `json:"vendorEmail"`
	Business              *string         `json:"business"`
	TotalRevenueGenerated decimal.Decimal `json:"totalRevenueGenerated"`
	TotalSalesCount       int64           `json:"totalSalesCount"`
}

// Totals groups the scalar counters of the dashboard.
type Totals struct {
	Revenue  decimal.Decimal
	Orders   int64
	Users    int64
	Vendors  int64
	Products int64
}

// DashboardMetrics is the admin dashboard payload.
type DashboardMetrics struct {
	TotalRevenue          decimal.Decimal  `json:"totalRevenue"`
	TotalOrders           int64            `json:"totalOrders"`
	TotalUsers            int64            `json:"totalUsers"`
	TotalVendedores       int64            `json:"totalVendedores"`
	TotalProducts         int64            `json:"totalProducts"`
	DailySales            []DailySales     `json:"dailySales"`
	TopProductsByQuantity []ProductRanking `json:"topProductsByQuantity"`
	TopSellersByRevenue   []SellerRanking  `json:"topSellersByRevenue"`
}
