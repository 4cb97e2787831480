package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/sales-pos/internal/model"
)

// ReportRepo implements ReportStore with SQL aggregates.
type ReportRepo struct{ DB *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{DB: db} }

func (r *ReportRepo) Totals(ctx context.Context) (model.Totals, error) {
	var t model.Totals
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(total), 0), COUNT(*) FROM sales").Scan(&t.Revenue, &t.Orders); err != nil {
		return model.Totals{}, err
	}
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(role = 'vendor'), 0) FROM users").Scan(&t.Users, &t.Vendors); err != nil {
		return model.Totals{}, err
	}
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&t.Products); err != nil {
		return model.Totals{}, err
	}
	return t, nil
}

// DailySales relies on created_at being stored in UTC (loc=UTC in the DSN).
func (r *ReportRepo) DailySales(ctx context.Context, from, to time.Time) ([]model.DailySales, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT DATE_FORMAT(created_at, '%Y-%m-%d') AS day, SUM(total), COUNT(*)
		 FROM sales WHERE created_at >= ? AND created_at <= ?
		 GROUP BY day ORDER BY day ASC`,
		from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.DailySales{}
	for rows.Next() {
		var d model.DailySales
		if err := rows.Scan(&d.Date, &d.DailyTotal, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TopProducts names each product after the snapshot of its earliest sale
// line, falling back to the catalog when the snapshot is blank.
func (r *ReportRepo) TopProducts(ctx context.Context, limit int) ([]model.ProductRanking, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT t.product_id,
		        COALESCE(NULLIF((SELECT si.product_name FROM sale_items si
		                         WHERE si.product_id = t.product_id
		                         ORDER BY si.sale_id, si.line_no LIMIT 1), ''), p.name, ''),
		        t.qty
		 FROM (SELECT product_id, SUM(quantity) AS qty FROM sale_items GROUP BY product_id) t
		 LEFT JOIN products p ON p.id = t.product_id
		 ORDER BY t.qty DESC, t.product_id ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ProductRanking{}
	for rows.Next() {
		var p model.ProductRanking
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.TotalQuantitySold); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TopSellers left-joins users so that deleted vendors keep their ranking
// with null display fields.
func (r *ReportRepo) TopSellers(ctx context.Context, limit int) ([]model.SellerRanking, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT t.vendor_id, u.name, u.email, u.business, t.revenue, t.cnt
		 FROM (SELECT vendor_id, SUM(total) AS revenue, COUNT(*) AS cnt FROM sales GROUP BY vendor_id) t
		 LEFT JOIN users u ON u.id = t.vendor_id
		 ORDER BY t.revenue DESC, t.vendor_id ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.SellerRanking{}
	for rows.Next() {
		var (
			s                     model.SellerRanking
			name, email, business sql.NullString
		)
		if err := rows.Scan(&s.VendorID, &name, &email, &business, &s.TotalRevenueGenerated, &s.TotalSalesCount); err != nil {
			return nil, err
		}
		s.VendorName = nullableString(name)
		s.VendorEmail = nullableString(email)
		s.Business = nullableString(business)
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
