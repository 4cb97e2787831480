package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sales-pos/internal/service"
)

// Error kinds reported in the "error" field of every failure body.
const (
	kindValidation   = "validation_error"
	kindNotFound     = "not_found"
	kindStock        = "insufficient_stock"
	kindForbidden    = "forbidden"
	kindConflict     = "conflict"
	kindUnauthorized = "unauthorized"
	kindInternal     = "internal_error"
)

var errInvalidRefresh = errors.New("invalid refresh token")

func errorBody(kind, msg string) echo.Map {
	return echo.Map{"error": kind, "message": msg}
}

// fail writes the JSON response for err.  Unknown errors become 500 without
// exposing their text.
func fail(c echo.Context, err error) error {
	var (
		vErrs     validator.ValidationErrors
		vErr      *service.ValidationError
		notFound  *service.NotFoundError
		stock     *service.InsufficientStockError
		forbidden *service.AuthorizationError
		conflict  *service.ConflictError
	)
	switch {
	case errors.Is(err, errBadBody):
		return c.JSON(http.StatusBadRequest, errorBody(kindValidation, err.Error()))
	case errors.As(err, &vErrs):
		body := errorBody(kindValidation, "request validation failed")
		body["fields"] = formatValidationErrors(vErrs)
		return c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &vErr):
		body := errorBody(kindValidation, vErr.Error())
		if vErr.Field != "" {
			body["fields"] = map[string]string{vErr.Field: vErr.Message}
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &stock):
		body := errorBody(kindStock, stock.Error())
		body["productId"] = stock.ProductID
		body["productName"] = stock.ProductName
		body["available"] = stock.Available
		body["requested"] = stock.Requested
		return c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &notFound):
		return c.JSON(http.StatusNotFound, errorBody(kindNotFound, notFound.Error()))
	case errors.As(err, &forbidden):
		return c.JSON(http.StatusForbidden, errorBody(kindForbidden, forbidden.Reason))
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, errorBody(kindConflict, conflict.Reason))
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, errInvalidRefresh):
		return c.JSON(http.StatusUnauthorized, errorBody(kindUnauthorized, err.Error()))
	}
	return c.JSON(http.StatusInternalServerError, errorBody(kindInternal, "internal server error"))
}
