package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	applogger "StockCharts/pkg/logger"
)

func newEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(mw...)
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/panic", func(c echo.Context) error { panic("boom") })
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCORS(t *testing.T) {
	e := newEcho(CORS(CORSConfig{
		AllowOrigins: []string{"https://charts.example"},
		AllowMethods: []string{http.MethodGet},
		AllowHeaders: []string{echo.HeaderContentType},
		MaxAge:       600,
	}))

	req := httptest.NewRequest(http.MethodOptions, "/ok", nil)
	req.Header.Set(echo.HeaderOrigin, "https://charts.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := serve(e, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "https://charts.example" ||
		rec.Header().Get(echo.HeaderAccessControlMaxAge) != "600" ||
		rec.Header().Get(echo.HeaderAccessControlAllowMethods) != "GET" {
		t.Fatalf("preflight headers = %v", rec.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example")
	rec = serve(e, req)
	if rec.Code != http.StatusOK || rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "" {
		t.Fatalf("foreign origin: %d %v", rec.Code, rec.Header())
	}
}

func TestCORS_Wildcard(t *testing.T) {
	e := newEcho(CORS(CORSConfig{AllowOrigins: []string{"*"}}))
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(echo.HeaderOrigin, "https://anywhere.example")
	rec := serve(e, req)
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "*" {
		t.Fatalf("headers = %v", rec.Header())
	}
}

type allowN struct{ n int }

func (a *allowN) Allow(string) bool {
	a.n--
	return a.n >= 0
}

func TestRateLimit(t *testing.T) {
	e := newEcho(RateLimit(&allowN{n: 1}))
	if rec := serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil)); rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}
	if rec := serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil)); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", rec.Code)
	}
}

func TestRecover(t *testing.T) {
	e := newEcho(Recover(applogger.Nop()))
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 204: "2xx", 304: "3xx", 404: "4xx", 429: "4xx", 502: "5xx", 0: "5xx", 700: "5xx"}
	for code, want := range tests {
		if got := statusClass(code); got != want {
			t.Errorf("statusClass(%d) = %s, want %s", code, got, want)
		}
	}
}

func TestMetrics_PassesThrough(t *testing.T) {
	e := newEcho(Metrics(applogger.Nop(), time.Nanosecond))
	if rec := serve(e, httptest.NewRequest(http.MethodGet, "/ok", nil)); rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("status = %d body = %q", rec.Code, rec.Body.String())
	}
	if rec := serve(e, httptest.NewRequest(http.MethodGet, "/missing", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", rec.Code)
	}
}
