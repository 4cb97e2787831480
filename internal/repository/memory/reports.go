package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/sales-pos/internal/model"
)

// Reports computes the dashboard aggregates by scanning the ledger.
type Reports struct{ s *Store }

func (r *Reports) Totals(_ context.Context) (model.Totals, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := model.Totals{Revenue: decimal.Zero}
	for _, sale := range r.s.sales {
		t.Revenue = t.Revenue.Add(sale.Total)
		t.Orders++
	}
	for _, u := range r.s.users {
		t.Users++
		if u.Role == model.RoleVendor {
			t.Vendors++
		}
	}
	t.Products = int64(len(r.s.products))
	return t, nil
}

func (r *Reports) DailySales(_ context.Context, from, to time.Time) ([]model.DailySales, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byDay := map[string]*model.DailySales{}
	for _, sale := range r.s.sales {
		if sale.CreatedAt.Before(from) || sale.CreatedAt.After(to) {
			continue
		}
		day := sale.CreatedAt.UTC().Format(time.DateOnly)
		d, ok := byDay[day]
		if !ok {
			d = &model.DailySales{Date: day, DailyTotal: decimal.Zero}
			byDay[day] = d
		}
		d.DailyTotal = d.DailyTotal.Add(sale.Total)
		d.Count++
	}
	out := make([]model.DailySales, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (r *Reports) TopProducts(_ context.Context, limit int) ([]model.ProductRanking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byProduct := map[uint64]*model.ProductRanking{}
	for _, sale := range r.s.sales {
		for _, it := range sale.Items {
			p, ok := byProduct[it.ProductID]
			if !ok {
				// The earliest snapshot names the product.
				p = &model.ProductRanking{ProductID: it.ProductID, ProductName: it.ProductName}
				byProduct[it.ProductID] = p
			}
			p.TotalQuantitySold += it.Quantity
		}
	}
	out := make([]model.ProductRanking, 0, len(byProduct))
	for _, p := range byProduct {
		if p.ProductName == "" {
			if live, ok := r.s.products[p.ProductID]; ok {
				p.ProductName = live.Name
			}
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalQuantitySold != out[j].TotalQuantitySold {
			return out[i].TotalQuantitySold > out[j].TotalQuantitySold
		}
		return out[i].ProductID < out[j].ProductID
	})
	return truncate(out, limit), nil
}

func (r *Reports) TopSellers(_ context.Context, limit int) ([]model.SellerRanking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byVendor := map[uint64]*model.SellerRanking{}
	for _, sale := range r.s.sales {
		v, ok := byVendor[sale.VendorID]
		if !ok {
			v = &model.SellerRanking{VendorID: sale.VendorID, TotalRevenueGenerated: decimal.Zero}
			byVendor[sale.VendorID] = v
		}
		v.TotalRevenueGenerated = v.TotalRevenueGenerated.Add(sale.Total)
		v.TotalSalesCount++
	}
	out := make([]model.SellerRanking, 0, len(byVendor))
	for _, v := range byVendor {
		if u, ok := r.s.users[v.VendorID]; ok {
			name, email, business := u.Name, u.Email, u.Business
			v.VendorName, v.VendorEmail, v.Business = &name, &email, &business
		}
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalRevenueGenerated.Cmp(out[j].TotalRevenueGenerated); c != 0 {
			return c > 0
		}
		return out[i].VendorID < out[j].VendorID
	})
	return truncate(out, limit), nil
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
