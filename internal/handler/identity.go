package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sales-pos/internal/middleware"
	"github.com/iliyamo/sales-pos/internal/model"
	"github.com/iliyamo/sales-pos/internal/service"
)

const requestTimeout = 5 * time.Second

var errNoIdentity = errors.New("missing identity")

// actorFrom reads the identity JWTAuth stored in the context.
func actorFrom(c echo.Context) (model.Actor, error) {
	id, ok := c.Get(middleware.CtxUserID).(uint64)
	if !ok || id == 0 {
		return model.Actor{}, errNoIdentity
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	return model.Actor{ID: id, Role: model.Role(role)}, nil
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, &service.ValidationError{Field: "id", Message: "id must be a positive integer"}
	}
	return id, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &service.ValidationError{Field: name, Message: name + " must be an integer"}
	}
	return n, nil
}

func timeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, errorBody(kindUnauthorized, "authentication required"))
}
