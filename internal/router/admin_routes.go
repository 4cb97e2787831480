package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sales-pos/internal/handler"
	"github.com/iliyamo/sales-pos/internal/middleware"
	"github.com/iliyamo/sales-pos/internal/model"
)

// RegisterUsers registers account administration.  Listing, vendor
// creation and deletion are admin only.  Reading and updating a single
// account is open to its owner as well; the service checks ownership.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, jwtSecret string) {
	auth := middleware.JWTAuth(jwtSecret)
	admin := middleware.RequireRole(model.RoleAdmin)

	g := e.Group("/v1/users")
	g.GET("", u.List, auth, admin)
	g.POST("/vendors", u.CreateVendor, auth, admin)
	g.GET("/:id", u.Get, auth)
	g.PUT("/:id", u.Update, auth)
	g.DELETE("/:id", u.Delete, auth, admin)
}

// RegisterDashboard registers the admin metrics endpoint.  It is never
// cached.
func RegisterDashboard(e *echo.Echo, d *handler.DashboardHandler, jwtSecret string) {
	e.GET("/v1/dashboard", d.Get,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
}
