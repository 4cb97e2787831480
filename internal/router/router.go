// Package router registers the HTTP API on an echo instance.
package router

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sales-pos/internal/handler"
	"github.com/iliyamo/sales-pos/internal/middleware"
)

// RegisterRoutes registers the unauthenticated health probe.  db may be nil
// when no database backs the server.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterCORS lets browsers on origins call the API.  It runs before
// routing so preflight requests never reach the handlers.
func RegisterCORS(e *echo.Echo, origins []string) {
	e.Pre(echo.WrapMiddleware(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Cache", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})))
}

// RegisterAuth registers the session endpoints under /v1/auth plus the
// authenticated /v1/me.  Logout accepts either a refresh token or a bearer
// token and therefore is not behind JWTAuth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// Handlers bundles every handler the API serves.
type Handlers struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Products  *handler.ProductHandler
	Sales     *handler.SaleHandler
	Dashboard *handler.DashboardHandler
}

// Options carries the cross-cutting pieces of the route table.  Nil
// RateLimit or Cache disable those middlewares, nil DB skips the database
// check in /healthz and nil Metrics leaves /metrics unregistered.
type Options struct {
	JWTSecret   string
	CORSOrigins []string
	RateLimit   echo.MiddlewareFunc
	Cache       echo.MiddlewareFunc
	DB          handler.Pinger
	Metrics     http.Handler
}

// RegisterAll installs the validator, CORS and every route group.
func RegisterAll(e *echo.Echo, h Handlers, opt Options) {
	if opt.RateLimit == nil {
		opt.RateLimit = passThrough
	}
	if opt.Cache == nil {
		opt.Cache = passThrough
	}
	e.Validator = handler.NewValidator()
	if len(opt.CORSOrigins) > 0 {
		RegisterCORS(e, opt.CORSOrigins)
	}
	RegisterRoutes(e, opt.DB)
	if opt.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opt.Metrics))
	}
	RegisterAuth(e, h.Auth, opt.JWTSecret)
	RegisterUsers(e, h.Users, opt.JWTSecret)
	RegisterCatalog(e, h.Products, opt.JWTSecret, opt.RateLimit, opt.Cache)
	RegisterSales(e, h.Sales, opt.JWTSecret, opt.RateLimit)
	RegisterDashboard(e, h.Dashboard, opt.JWTSecret)
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
