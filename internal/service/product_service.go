package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/sales-pos/internal/model"
	"github.com/iliyamo/sales-pos/internal/repository"
)

// ProductInput carries the fields of a new product.
type ProductInput struct {
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Stock       int64
	Images      []string
}

// ProductPatch lists the fields of a partial product update.
type ProductPatch struct {
	Name        *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
	Stock       *int64
	Images      *[]string
}

// ProductQuery selects a page of the public catalog.
type ProductQuery struct {
	Keyword  string
	Page     int
	PageSize int
}

// ProductPage is one page of the catalog.
type ProductPage struct {
	Products []model.Product `json:"products"`
	Page     int             `json:"page"`
	Pages    int             `json:"pages"`
	Count    int64           `json:"count"`
}

// ProductService manages the catalog.  Products belong to the vendor or
// admin that created them; only the owner or an admin may change them.
type ProductService struct {
	products repository.ProductStore
	log      *zap.Logger
}

func NewProductService(products repository.ProductStore, log *zap.Logger) *ProductService {
	return &ProductService{products: products, log: log}
}

func (s *ProductService) Create(ctx context.Context, actor model.Actor, in ProductInput) (model.Product, error) {
	if !actor.CanRecordSales() {
		return model.Product{}, forbidden("only vendors and admins can create products")
	}
	p := model.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Category:    strings.TrimSpace(in.Category),
		Price:       in.Price,
		Stock:       in.Stock,
		OwnerID:     actor.ID,
		Images:      in.Images,
	}
	if err := validateProduct(p); err != nil {
		return model.Product{}, err
	}
	if err := s.products.Create(ctx, &p); err != nil {
		return model.Product{}, internal(s.log, "create product", err)
	}
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id uint64) (model.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if errors.Is(err, repository.ErrProductNotFound) {
		return model.Product{}, &NotFoundError{Resource: "product", ID: id}
	}
	if err != nil {
		return model.Product{}, internal(s.log, "get product", err)
	}
	return p, nil
}

// List is public: no actor is required.
func (s *ProductService) List(ctx context.Context, q ProductQuery) (ProductPage, error) {
	page, size, offset := normalizePage(q.Page, q.PageSize)
	items, total, err := s.products.List(ctx, model.ProductFilter{Keyword: q.Keyword, Limit: size, Offset: offset})
	if err != nil {
		return ProductPage{}, internal(s.log, "list products", err)
	}
	return ProductPage{Products: items, Page: page, Pages: pageCount(total, size), Count: total}, nil
}

func (s *ProductService) Update(ctx context.Context, actor model.Actor, id uint64, patch ProductPatch) (model.Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return model.Product{}, err
	}
	if !actor.CanRecordSales() || !actor.Owns(p.OwnerID) {
		return model.Product{}, forbidden("product belongs to another vendor")
	}
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Category != nil {
		p.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Images != nil {
		p.Images = *patch.Images
	}
	if err := validateProduct(p); err != nil {
		return model.Product{}, err
	}
	if err := s.products.Update(ctx, &p); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return model.Product{}, &NotFoundError{Resource: "product", ID: id}
		}
		return model.Product{}, internal(s.log, "update product", err)
	}
	return p, nil
}

// Delete removes a product.  Recorded sales keep their snapshot lines.
func (s *ProductService) Delete(ctx context.Context, actor model.Actor, id uint64) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanRecordSales() || !actor.Owns(p.OwnerID) {
		return forbidden("product belongs to another vendor")
	}
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return &NotFoundError{Resource: "product", ID: id}
		}
		return internal(s.log, "delete product", err)
	}
	return nil
}

func validateProduct(p model.Product) error {
	if p.Name == "" {
		return validation("name", "name is required")
	}
	if p.Price.IsNegative() {
		return validation("price", "price cannot be negative")
	}
	if !p.Price.Equal(p.Price.Truncate(model.PriceScale)) {
		return validation("price", "price cannot have more than 2 decimal places")
	}
	if p.Price.GreaterThan(model.MaxPrice) {
		return validation("price", "price cannot exceed "+model.MaxPrice.StringFixed(2))
	}
	if p.Stock < 0 {
		return validation("stock", "stock cannot be negative")
	}
	return nil
}
