package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestRequestIDGenerated(t *testing.T) {
	r := newRouter(RequestID())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	rid := w.Header().Get("X-Request-ID")
	if rid == "" {
		t.Fatal("expected a generated X-Request-ID header")
	}
	if len(rid) != 36 {
		t.Fatalf("request id %q does not look like a UUID", rid)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	r := newRouter(RequestID())

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-supplied" {
		t.Fatalf("request id = %q, want client-supplied", got)
	}
}

func TestRecoveryAnswersJSON(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "internal_error") {
		t.Fatalf("body %q missing error code", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "حدث خطأ في الخادم") {
		t.Fatalf("body %q missing localized message", w.Body.String())
	}
}

func TestRateLimiterBySession(t *testing.T) {
	rl := NewRateLimiter(0, 2, KeyBySessionOrIP())
	r := newRouter(rl.Handler())

	do := func(sid string) int {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		if sid != "" {
			req.Header.Set(HeaderSessionID, sid)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if do("a") != http.StatusOK || do("a") != http.StatusOK {
		t.Fatal("first two requests within burst must pass")
	}
	if got := do("a"); got != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", got)
	}

	// Separate session owns a separate bucket.
	if got := do("b"); got != http.StatusOK {
		t.Fatalf("other session status = %d, want 200", got)
	}
}

func TestRateLimiterResponseShape(t *testing.T) {
	rl := NewRateLimiter(0, 1, KeyBySessionOrIP())
	r := gin.New()
	r.Use(RequestID(), rl.Handler())
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set(HeaderSessionID, "s")
	r.ServeHTTP(httptest.NewRecorder(), req)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
	body := w.Body.String()
	for _, want := range []string{"rate_limited", "تم تجاوز الحد المسموح"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body %q missing %q", body, want)
		}
	}
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyBySessionOrIP())
	rl.ttl = time.Millisecond

	rl.getVisitor("session:old")
	time.Sleep(5 * time.Millisecond)

	rl.mu.Lock()
	rl.cleanupN = 4999
	rl.mu.Unlock()
	rl.getVisitor("session:new")

	rl.mu.Lock()
	_, stale := rl.visitors["session:old"]
	rl.mu.Unlock()
	if stale {
		t.Fatal("idle visitor should have been evicted")
	}
}

func TestSecurityHeaders(t *testing.T) {
	r := newRouter(SecurityHeaders(SecurityOptions{EnableCSP: true}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	h := w.Header()
	checks := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-XSS-Protection":       "1; mode=block",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for k, want := range checks {
		if got := h.Get(k); got != want {
			t.Fatalf("%s = %q, want %q", k, got, want)
		}
	}
	if !strings.Contains(h.Get("Content-Security-Policy"), "frame-ancestors 'none'") {
		t.Fatalf("CSP %q missing frame-ancestors", h.Get("Content-Security-Policy"))
	}
	if h.Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must not be set on plain HTTP")
	}
}

func TestSecurityHeadersHSTS(t *testing.T) {
	r := newRouter(SecurityHeaders(SecurityOptions{EnableHSTS: true}))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	hsts := w.Header().Get("Strict-Transport-Security")
	if !strings.Contains(hsts, "max-age=31536000") || !strings.Contains(hsts, "includeSubDomains") {
		t.Fatalf("HSTS = %q", hsts)
	}
}

func TestMetricsMiddlewarePassThrough(t *testing.T) {
	r := newRouter(Metrics())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Fatalf("body = %q", w.Body.String())
	}
}
