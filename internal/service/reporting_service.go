package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/sales-pos/internal/model"
	"github.com/iliyamo/sales-pos/internal/repository"
)

const (
	// dashboardTopN bounds both ranking lists.
	dashboardTopN = 5
	// dailyWindow is the trailing period covered by the daily breakdown.
	dailyWindow = 7 * 24 * time.Hour
)

// ReportingService computes the admin dashboard from current store state.
// Access control happens before it is called.
type ReportingService struct {
	reports repository.ReportStore
	log     *zap.Logger
	now     func() time.Time
}

func NewReportingService(reports repository.ReportStore, log *zap.Logger) *ReportingService {
	return &ReportingService{
		reports: reports,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// DashboardMetrics aggregates the ledger, the catalog and the accounts.  An
// empty ledger yields zero totals and empty lists.
func (s *ReportingService) DashboardMetrics(ctx context.Context) (model.DashboardMetrics, error) {
	totals, err := s.reports.Totals(ctx)
	if err != nil {
		return model.DashboardMetrics{}, internal(s.log, "dashboard totals", err)
	}
	now := s.now()
	daily, err := s.reports.DailySales(ctx, now.Add(-dailyWindow), now)
	if err != nil {
		return model.DashboardMetrics{}, internal(s.log, "dashboard daily sales", err)
	}
	products, err := s.reports.TopProducts(ctx, dashboardTopN)
	if err != nil {
		return model.DashboardMetrics{}, internal(s.log, "dashboard top products", err)
	}
	sellers, err := s.reports.TopSellers(ctx, dashboardTopN)
	if err != nil {
		return model.DashboardMetrics{}, internal(s.log, "dashboard top sellers", err)
	}

	if daily == nil {
		daily = []model.DailySales{}
	}
	if products == nil {
		products = []model.ProductRanking{}
	}
	if sellers == nil {
		sellers = []model.SellerRanking{}
	}
	return model.DashboardMetrics{
		TotalRevenue:          totals.Revenue,
		TotalOrders:           totals.Orders,
		TotalUsers:            totals.Users,
		TotalVendedores:       totals.Vendors,
		TotalProducts:         totals.Products,
		DailySales:            daily,
		TopProductsByQuantity: products,
		TopSellersByRevenue:   sellers,
	}, nil
}
