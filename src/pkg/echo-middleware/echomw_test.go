package echomw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"handover/src/pkg/config"
)

func serve(e *echo.Echo, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newEcho(middlewares ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(middlewares...)
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	return e
}

func TestRequireBearerToken(t *testing.T) {
	e := newEcho(RequireBearerToken(" s3cret "))
	tests := map[string]int{
		"":                http.StatusUnauthorized,
		"s3cret":          http.StatusUnauthorized,
		"Basic s3cret":    http.StatusUnauthorized,
		"Bearer wrong":    http.StatusUnauthorized,
		"Bearer ":         http.StatusUnauthorized,
		"Bearer s3cret":   http.StatusOK,
		"bearer   s3cret": http.StatusOK,
	}
	for header, want := range tests {
		rec := serve(e, header)
		if rec.Code != want {
			t.Errorf("Authorization %q: status %d, want %d", header, rec.Code, want)
		}
		if want == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
			t.Errorf("Authorization %q: missing WWW-Authenticate", header)
		}
	}
}

func TestRequireBearerTokenFailsClosed(t *testing.T) {
	if rec := serve(newEcho(RequireBearerToken("")), "Bearer "); rec.Code != http.StatusUnauthorized {
		t.Errorf("status %d, want 401", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	e := newEcho(NewRateLimiter(1, 2).Middleware)
	var got []int
	for i := 0; i < 3; i++ {
		got = append(got, serve(e, "").Code)
	}
	if got[0] != http.StatusOK || got[1] != http.StatusOK || got[2] != http.StatusTooManyRequests {
		t.Errorf("statuses = %v, want [200 200 429]", got)
	}
}

func TestRouteAccessLoggerKeepsStatus(t *testing.T) {
	e := echo.New()
	e.Use(RouteAccessLoggerMiddleware)
	e.GET("/missing", func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound, "gone") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", rec.Code)
	}
}

func TestInitializeConfig(t *testing.T) {
	defer func() { Cfg = DefaultValueConfig() }()

	InitializeConfig(&config.ServerConfig{Port: 9000})
	if Cfg.Port != 9000 || Cfg.Address != "127.0.0.1" || Cfg.MiddlewareBurst != 50 {
		t.Errorf("Cfg = %+v", Cfg)
	}

	Cfg = DefaultValueConfig()
	InitializeConfig(nil)
	if Cfg != DefaultValueConfig() {
		t.Errorf("nil config changed Cfg to %+v", Cfg)
	}
}
