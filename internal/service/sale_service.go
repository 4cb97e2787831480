package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/sales-pos/internal/model"
	"github.com/iliyamo/sales-pos/internal/repository"
)

// SalePublisher announces committed sales to downstream consumers.
type SalePublisher interface {
	PublishSaleRecorded(ctx context.Context, sale model.Sale) error
}

// BasketLine is one requested (product, quantity) pair.
type BasketLine struct {
	ProductID uint64
	Quantity  int64
}

// SaleQuery selects a page of the ledger.
type SaleQuery struct {
	Page     int
	PageSize int
	VendorID *uint64
	From     *time.Time
	To       *time.Time
}

// SalePage is one page of sales, newest first.
type SalePage struct {
	Sales []model.Sale `json:"sales"`
	Page  int          `json:"page"`
	Pages int          `json:"pages"`
	Count int64        `json:"count"`
}

// SaleService records sales and reads the ledger.
type SaleService struct {
	sales     repository.SaleStore
	publisher SalePublisher
	log       *zap.Logger
	now       func() time.Time
}

// NewSaleService wires the ledger store.  publisher may be nil.
func NewSaleService(sales repository.SaleStore, publisher SalePublisher, log *zap.Logger) *SaleService {
	return &SaleService{
		sales:     sales,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateSale validates the basket against current stock, records the sale
// with frozen line items and decrements stock, all in one transaction.
// Products are locked in ascending id order so that concurrent baskets over
// the same products cannot deadlock.  Repeated product ids are summed before
// the stock check.
func (s *SaleService) CreateSale(ctx context.Context, actor model.Actor, basket []BasketLine) (model.Sale, error) {
	if !actor.CanRecordSales() {
		s.log.Warn("sale rejected: role", zap.Uint64("actor", actor.ID), zap.String("role", string(actor.Role)))
		return model.Sale{}, forbidden("only vendors and admins can record sales")
	}
	if len(basket) == 0 {
		return model.Sale{}, validation("items", "basket must contain at least one item")
	}

	requested := make(map[uint64]int64, len(basket))
	for _, line := range basket {
		if line.ProductID == 0 {
			return model.Sale{}, validation("productId", "product id is required")
		}
		if line.Quantity < 1 {
			return model.Sale{}, validation("quantity", "quantity must be at least 1")
		}
		if line.Quantity > model.MaxLineQuantity {
			return model.Sale{}, validation("quantity", fmt.Sprintf("quantity cannot exceed %d", model.MaxLineQuantity))
		}
		if requested[line.ProductID] > math.MaxInt64-line.Quantity {
			return model.Sale{}, validation("quantity", "combined quantity for a product is too large")
		}
		requested[line.ProductID] += line.Quantity
	}
	ids := make([]uint64, 0, len(requested))
	for id := range requested {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var sale model.Sale
	err := s.sales.WithTx(ctx, func(tx repository.SaleTx) error {
		products := make(map[uint64]model.Product, len(ids))
		for _, id := range ids {
			p, err := tx.LockProduct(ctx, id)
			if errors.Is(err, repository.ErrProductNotFound) {
				return &NotFoundError{Resource: "product", ID: id}
			}
			if err != nil {
				return err
			}
			if p.Stock < requested[id] {
				return &InsufficientStockError{ProductID: id, ProductName: p.Name, Available: p.Stock, Requested: requested[id]}
			}
			products[id] = p
		}

		items := make([]model.SaleItem, 0, len(basket))
		total := decimal.Zero
		for _, line := range basket {
			item := model.NewSaleItem(products[line.ProductID], line.Quantity)
			items = append(items, item)
			total = total.Add(item.Subtotal())
		}
		if total.GreaterThan(model.MaxSaleTotal) {
			return validation("items", "sale total exceeds "+model.MaxSaleTotal.StringFixed(2))
		}
		sale = model.Sale{VendorID: actor.ID, Items: items, Total: total, CreatedAt: s.now()}
		if err := tx.InsertSale(ctx, &sale); err != nil {
			return err
		}

		for _, id := range ids {
			err := tx.DecrementStock(ctx, id, requested[id])
			if errors.Is(err, repository.ErrInsufficientStock) {
				p := products[id]
				return &InsufficientStockError{ProductID: id, ProductName: p.Name, Available: p.Stock, Requested: requested[id]}
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isDomainError(err) {
			s.log.Warn("sale rejected", zap.Uint64("actor", actor.ID), zap.Error(err))
			return model.Sale{}, err
		}
		return model.Sale{}, internal(s.log, "create sale", err)
	}

	s.log.Info("sale recorded",
		zap.Uint64("sale_id", sale.ID),
		zap.Uint64("vendor_id", sale.VendorID),
		zap.Int("lines", len(sale.Items)),
		zap.String("total", sale.Total.StringFixed(2)))

	if s.publisher != nil {
		if err := s.publisher.PublishSaleRecorded(ctx, sale); err != nil {
			s.log.Warn("publish sale.recorded failed", zap.Uint64("sale_id", sale.ID), zap.Error(err))
		}
	}
	return sale, nil
}

// GetSale returns a sale to its vendor or to an admin.
func (s *SaleService) GetSale(ctx context.Context, actor model.Actor, id uint64) (model.Sale, error) {
	if !actor.CanRecordSales() {
		return model.Sale{}, forbidden("only vendors and admins can read sales")
	}
	sale, err := s.sales.GetByID(ctx, id)
	if errors.Is(err, repository.ErrSaleNotFound) {
		return model.Sale{}, &NotFoundError{Resource: "sale", ID: id}
	}
	if err != nil {
		return model.Sale{}, internal(s.log, "get sale", err)
	}
	if !actor.Owns(sale.VendorID) {
		return model.Sale{}, forbidden("sale belongs to another vendor")
	}
	return sale, nil
}

// ListSales pages through the ledger.  Vendors only ever see their own
// sales; admins may filter by vendor.
func (s *SaleService) ListSales(ctx context.Context, actor model.Actor, q SaleQuery) (SalePage, error) {
	if !actor.CanRecordSales() {
		return SalePage{}, forbidden("only vendors and admins can read sales")
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return SalePage{}, validation("to", "end of range precedes its start")
	}
	page, size, offset := normalizePage(q.Page, q.PageSize)
	f := model.SaleFilter{VendorID: q.VendorID, From: q.From, To: q.To, Limit: size, Offset: offset}
	if !actor.IsAdmin() {
		own := actor.ID
		f.VendorID = &own
	}
	sales, total, err := s.sales.List(ctx, f)
	if err != nil {
		return SalePage{}, internal(s.log, "list sales", err)
	}
	return SalePage{Sales: sales, Page: page, Pages: pageCount(total, size), Count: total}, nil
}
