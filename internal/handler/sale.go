package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sales-pos/internal/service"
)

// SaleHandler records and reads sales.
type SaleHandler struct {
	Sales *service.SaleService
}

func NewSaleHandler(sales *service.SaleService) *SaleHandler {
	return &SaleHandler{Sales: sales}
}

type saleLineReq struct {
	ProductID uint64 `json:"productId" validate:"required"`
	Quantity  int64  `json:"quantity" validate:"required,gte=1,lte=1000000"`
}

type saleReq struct {
	Items []saleLineReq `json:"items" validate:"required,min=1,dive"`
}

// Create records a sale for the calling vendor or admin.
func (h *SaleHandler) Create(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	var req saleReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	basket := make([]service.BasketLine, len(req.Items))
	for i, it := range req.Items {
		basket[i] = service.BasketLine{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	// Row locks may queue behind other baskets, so allow more than the
	// default request timeout.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*requestTimeout)
	defer cancel()

	sale, err := h.Sales.CreateSale(ctx, actor, basket)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, sale)
}

// List pages through the ledger: ?page=&pageSize=&vendorId=&from=&to=.
// from and to accept RFC 3339 timestamps or YYYY-MM-DD dates; a date-only
// "to" covers that whole day.
func (h *SaleHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	q, err := saleQuery(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	res, err := h.Sales.ListSales(ctx, actor, q)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *SaleHandler) Get(c echo.Context) error {
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

	sale, err := h.Sales.GetSale(ctx, actor, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sale)
}

func saleQuery(c echo.Context) (service.SaleQuery, error) {
	var q service.SaleQuery
	var err error
	if q.Page, err = queryInt(c, "page"); err != nil {
		return q, err
	}
	if q.PageSize, err = queryInt(c, "pageSize"); err != nil {
		return q, err
	}
	if raw := c.QueryParam("vendorId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return q, &service.ValidationError{Field: "vendorId", Message: "vendorId must be a positive integer"}
		}
		q.VendorID = &id
	}
	if q.From, err = queryTime(c, "from", false); err != nil {
		return q, err
	}
	if q.To, err = queryTime(c, "to", true); err != nil {
		return q, err
	}
	return q, nil
}

func queryTime(c echo.Context, name string, endOfDay bool) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, &service.ValidationError{Field: name, Message: name + " must be RFC 3339 or YYYY-MM-DD"}
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}
