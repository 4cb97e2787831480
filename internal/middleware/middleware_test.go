package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/sales-pos/internal/config"
	"github.com/iliyamo/sales-pos/internal/model"
	"github.com/iliyamo/sales-pos/internal/utils"
)

const secret = "test-secret"

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"id":    c.Get(CtxUserID),
		"role":  c.Get(CtxRole),
		"admin": c.Get(CtxIsAdmin),
	})
}

func newServer() *echo.Echo {
	e := echo.New()
	g := e.Group("", JWTAuth(secret))
	g.GET("/me", whoami)
	g.GET("/admin", whoami, RequireRole(model.RoleAdmin))
	g.GET("/till", whoami, RequireRole(model.RoleAdmin, model.RoleVendor))
	return e
}

func bearer(t *testing.T, id uint64, role model.Role) string {
	tok, err := utils.NewAccessToken(secret, id, string(role), role == model.RoleAdmin, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func do(e *echo.Echo, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := newServer()

	rec := do(e, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized","message":"missing bearer token"}`, rec.Body.String())

	rec = do(e, "/me", "Bearer nonsense")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	other, err := utils.NewAccessToken("other", 1, "admin", true, 5)
	require.NoError(t, err)
	rec = do(e, "/me", "Bearer "+other.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, "/me", bearer(t, 42, model.RoleVendor))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":42,"role":"vendor","admin":false}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := newServer()

	assert.Equal(t, http.StatusOK, do(e, "/admin", bearer(t, 1, model.RoleAdmin)).Code)
	assert.Equal(t, http.StatusForbidden, do(e, "/admin", bearer(t, 2, model.RoleVendor)).Code)
	assert.Equal(t, http.StatusOK, do(e, "/till", bearer(t, 2, model.RoleVendor)).Code)
	assert.Equal(t, http.StatusForbidden, do(e, "/till", bearer(t, 3, model.RoleCustomer)).Code)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	do(e, "/ok", "")
	do(e, "/missing", "")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusNoContent), entries[0].ContextMap()["status"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "anon", entries[1].ContextMap()["user"])
}

func TestDisabledRedisMiddlewarePassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, zap.NewNop()))
	e.Use(NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil, zap.NewNop()))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	rec := do(e, "/ping", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/products")

	cfg := config.RateLimitConfig{Prefix: "pos:rl", KeyStrategy: "ip_user_route"}
	assert.Equal(t, "pos:rl:ip:10.0.0.9:user:anon:route:GET /v1/products", buildRateKey(cfg, c))

	c.Set(CtxUserID, uint64(17))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "pos:rl:user:17", buildRateKey(cfg, c))

	cfg.KeyStrategy = "bogus"
	assert.Equal(t, "pos:rl:ip:10.0.0.9:user:17:route:GET /v1/products", buildRateKey(cfg, c))
}

func TestParseVerdict(t *testing.T) {
	v, ok := parseVerdict([]interface{}{int64(0), int64(0), int64(1500)})
	require.True(t, ok)
	assert.False(t, v.allowed)
	assert.Equal(t, int64(1500), v.retryMs)

	v, ok = parseVerdict([]interface{}{int64(1), int64(4), int64(0)})
	require.True(t, ok)
	assert.True(t, v.allowed)
	assert.Equal(t, int64(4), v.remaining)

	_, ok = parseVerdict("OK")
	assert.False(t, ok)
}

func TestCacheKeyVariesByQuery(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "pos:cache"}
	key := func(target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/products")
		return cacheKeyFrom(cfg, c)
	}

	a, b := key("/v1/products?page=1"), key("/v1/products?page=2")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, key("/v1/products?page=1"))
	assert.Contains(t, a, "pos:cache:")
}

func TestDecodeCachedRejectsUnreadableEntries(t *testing.T) {
	bs, err := cachedResponse{ContentType: echo.MIMEApplicationJSON, Body: []byte(`{"count":0}`)}.encode()
	require.NoError(t, err)

	hit, ok := decodeCached(bs)
	require.True(t, ok)
	assert.Equal(t, `{"count":0}`, string(hit.Body))

	_, ok = decodeCached(bs[:5])
	assert.False(t, ok)
	_, ok = decodeCached([]byte(`{"body":"e30="}`))
	assert.False(t, ok)
}

func TestCaptureWriterStopsAtLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}

	_, _ = cw.Write([]byte("abc"))
	_, _ = cw.Write([]byte("defg"))

	assert.True(t, cw.truncated)
	assert.Empty(t, cw.buf.String())
	assert.Equal(t, "abcdefg", rec.Body.String())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/v1/products/:id", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	do(e, "/v1/products/1", "")
	do(e, "/v1/products/2", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/v1/products/:id", "200")))
}
