package middleware_test

import (
	"compress/flate"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shipledger/internal/platform/net/middleware"
)

func TestWrappers_ReturnHandlers(t *testing.T) {
	if middleware.RequestID() == nil ||
		middleware.RealIP() == nil ||
		middleware.Timeout(time.Second) == nil ||
		middleware.NoCache() == nil ||
		middleware.RedirectSlashes() == nil ||
		middleware.StripSlashes() == nil ||
		middleware.AllowContentType("application/json") == nil ||
		middleware.Throttle(10) == nil ||
		middleware.Heartbeat("/healthz") == nil {
		t.Fatal("expected non nil handlers from wrappers")
	}
}

func TestCompress_EncodesWhenAccepted(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// body big enough to trigger compression
		_, _ = io.WriteString(w, strings.Repeat(`{"issue_key":"APP-1"}`, 256))
	})

	mw := middleware.Compress(flate.DefaultCompression)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()

	mw(h).ServeHTTP(rr, req)

	if rr.Result().Header.Get("Content-Encoding") == "" {
		t.Fatalf("expected Content-Encoding to be set")
	}
}

func TestAllowContentType_RejectsNonJSON(t *testing.T) {
	mw := middleware.AllowContentType("application/json")
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	req := httptest.NewRequest(http.MethodPost, "/hooks/jira", strings.NewReader("<xml/>"))
	req.Header.Set("Content-Type", "text/xml")
	rr := httptest.NewRecorder()
	mw(h).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415 for xml payload, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/hooks/jira", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rr = httptest.NewRecorder()
	mw(h).ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("expected json payload to pass, got %d", rr.Code)
	}
}

func TestThrottle_PassesUnderLimit(t *testing.T) {
	mw := middleware.Throttle(2)
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(204) })

	rr := httptest.NewRecorder()
	mw(h).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/hooks/bitbucket", nil))
	if rr.Code != 204 {
		t.Fatalf("expected request under limit to pass, got %d", rr.Code)
	}
}

func TestCORS_DefaultsFillMissing(t *testing.T) {
	cors := middleware.CORS(middleware.CORSOptions{
		AllowedOrigins: []string{"https://ops.example.com"},
		// other fields left empty to exercise the defaults
	})

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	})

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://ops.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "X-Hub-Signature")

	rr := httptest.NewRecorder()
	cors(h).ServeHTTP(rr, req)

	if rr.Code != 200 && rr.Code != 204 {
		t.Fatalf("expected 200 or 204 got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Fatal("expected Access-Control-Allow-Methods to be set")
	}
	if rr.Header().Get("Access-Control-Allow-Headers") == "" {
		t.Fatal("expected Access-Control-Allow-Headers to be set")
	}
}
