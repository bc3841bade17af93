package http_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"shipledger/internal/platform/config"
	phttp "shipledger/internal/platform/net/http"
)

func TestNewServer_DefaultAddrAndServableMux(t *testing.T) {
	// no env bindings, so the listen address falls back to the default
	srv := phttp.NewServer(config.New())
	if srv.Addr() == "" {
		t.Fatalf("expected a default listen address")
	}

	r := srv.Router()
	if r == nil || r.Mux() == nil {
		t.Fatalf("server router or mux is nil")
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})

	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("body = %q, want %q", rec.Body.String(), "ok")
	}
}
