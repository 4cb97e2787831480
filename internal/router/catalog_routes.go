package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sales-pos/internal/handler"
	"github.com/iliyamo/sales-pos/internal/middleware"
	"github.com/iliyamo/sales-pos/internal/model"
)

// RegisterCatalog registers the product catalog.  Reads are public and go
// through the rate limiter and response cache; writes need a vendor or
// admin token.
func RegisterCatalog(e *echo.Echo, p *handler.ProductHandler, jwtSecret string, rateLimit, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/products")
	g.GET("", p.List, rateLimit, cache)
	g.GET("/:id", p.Get, rateLimit, cache)

	auth := middleware.JWTAuth(jwtSecret)
	sellers := middleware.RequireRole(model.RoleAdmin, model.RoleVendor)
	g.POST("", p.Create, auth, sellers)
	g.PUT("/:id", p.Update, auth, sellers)
	g.DELETE("/:id", p.Delete, auth, sellers)
}

// RegisterSales registers the ledger endpoints for vendors and admins.
// Sales are immutable, so there is no update or delete.
func RegisterSales(e *echo.Echo, s *handler.SaleHandler, jwtSecret string, rateLimit echo.MiddlewareFunc) {
	g := e.Group("/v1/sales",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleVendor),
	)
	g.POST("", s.Create, rateLimit)
	g.GET("", s.List)
	g.GET("/:id", s.Get)
}
