package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/observability"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sessionConfig() config.SessionConfig {
	return config.SessionConfig{CookieName: "sales_session", TTL: time.Minute}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mark("a"), mark("b"), mark("c"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	want := []string{"a", "b", "c", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("generated request id %q is not a uuid", seen)
	}
	if w.Header().Get("X-Request-ID") != seen {
		t.Error("response header should echo the request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc" {
		t.Errorf("request id = %q, want the caller's", seen)
	}
}

func TestSession_IssuesCookie(t *testing.T) {
	var seen string
	h := Session(sessionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.GetSessionID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != "sales_session" || c.Value != seen || !c.HttpOnly {
		t.Errorf("cookie = %+v, session = %q", c, seen)
	}
}

func TestSession_ReusesValidCookie(t *testing.T) {
	id := uuid.NewString()
	var seen string
	h := Session(sessionConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.GetSessionID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sales_session", Value: id})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if seen != id {
		t.Errorf("session = %q, want %q", seen, id)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("no cookie should be set for an existing session")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sales_session", Value: "not-a-uuid"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "not-a-uuid" || seen == "" {
		t.Errorf("malformed cookie should start a new session, got %q", seen)
	}
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(config.SecurityConfig{
		EnableRateLimit: true,
		RateLimitRPS:    1,
		RateLimitBurst:  2,
	})
	h := RateLimit(limiter, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNoContent {
		t.Errorf("burst requests should pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want %d", codes[2], http.StatusTooManyRequests)
	}

	other := httptest.NewRequest(http.MethodGet, "/", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, other)
	if w.Code != http.StatusNoContent {
		t.Errorf("other client = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func TestCSRF(t *testing.T) {
	h := CSRF(config.SecurityConfig{EnableCSRF: true}, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name    string
		method  string
		headers map[string]string
		want    int
	}{
		{"get cross site", http.MethodGet, map[string]string{"Sec-Fetch-Site": "cross-site"}, http.StatusNoContent},
		{"post same origin", http.MethodPost, map[string]string{"Sec-Fetch-Site": "same-origin"}, http.StatusNoContent},
		{"post cross site", http.MethodPost, map[string]string{"Sec-Fetch-Site": "cross-site"}, http.StatusForbidden},
		{"post foreign origin", http.MethodPost, map[string]string{"Origin": "https://evil.example"}, http.StatusForbidden},
		{"post matching origin", http.MethodPost, map[string]string{"Origin": "http://example.com"}, http.StatusNoContent},
		{"post no headers", http.MethodPost, nil, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/session/refresh", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Metrics()(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard?region=West", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if req.Pattern != "GET /api/dashboard" {
		t.Errorf("pattern = %q, want the mux route", req.Pattern)
	}
}
