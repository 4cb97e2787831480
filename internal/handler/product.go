package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/sales-pos/internal/service"
)

// ProductHandler serves the catalog.  Reads are public; writes need a vendor
// or admin token.
type ProductHandler struct {
	Products *service.ProductService
}

func NewProductHandler(products *service.ProductService) *ProductHandler {
	return &ProductHandler{Products: products}
}

type productReq struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Description string           `json:"description" validate:"max=2000"`
	Category    string           `json:"category" validate:"max=100"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
	Stock       int64            `json:"stock" validate:"gte=0"`
	Images      []string         `json:"images" validate:"max=10"`
}

type productPatchReq struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	Category    *string          `json:"category" validate:"omitempty,max=100"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int64           `json:"stock" validate:"omitempty,gte=0"`
	Images      *[]string        `json:"images"`
}

// List pages through the catalog: ?keyword=&page=&pageSize=.
func (h *ProductHandler) List(c echo.Context) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return fail(c, err)
	}
	size, err := queryInt(c, "pageSize")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	res, err := h.Products.List(ctx, service.ProductQuery{Keyword: c.QueryParam("keyword"), Page: page, PageSize: size})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	p, err := h.Products.Get(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Create adds a product owned by the caller.
func (h *ProductHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	var req productReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	p, err := h.Products.Create(ctx, actor, service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       *req.Price,
		Stock:       req.Stock,
		Images:      req.Images,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *ProductHandler) Update(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var req productPatchReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	p, err := h.Products.Update(ctx, actor, id, service.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Stock:       req.Stock,
		Images:      req.Images,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	if err := h.Products.Delete(ctx, actor, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
