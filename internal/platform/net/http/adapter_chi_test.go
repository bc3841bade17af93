package http

import (
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func serve(r Router, method, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	r.Mux().ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func headerMW(key string) func(stdhttp.Handler) stdhttp.Handler {
	return func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
			w.Header().Set(key, "1")
			next.ServeHTTP(w, req)
		})
	}
}

func textHandler(code int, body string) Handler {
	return func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}
}

func TestAdaptChi_MiddlewareStacking(t *testing.T) {
	t.Parallel()

	r := AdaptChi(chi.NewRouter())

	r.Use(headerMW("X-Root"))
	r.Get("/healthz", textHandler(200, "ok"))

	r.Group(func(gr Router) {
		gr.Use(headerMW("X-Group"))
		if gr.Mux() == nil {
			t.Fatalf("group Mux() returned nil")
		}
		gr.Get("/scans/latest", textHandler(200, "scan"))
	})

	r.Route("/hooks", func(sr Router) {
		sr.Use(headerMW("X-Hooks"))
		if sr.Mux() == nil {
			t.Fatalf("route Mux() returned nil")
		}
		sr.Get("/status", textHandler(200, "live"))
	})

	rr := serve(r, "GET", "/healthz")
	if rr.Code != 200 || rr.Body.String() != "ok" || rr.Header().Get("X-Root") != "1" {
		t.Fatalf("GET /healthz => code=%d body=%q root=%q", rr.Code, rr.Body.String(), rr.Header().Get("X-Root"))
	}

	rr = serve(r, "GET", "/scans/latest")
	if rr.Header().Get("X-Root") != "1" || rr.Header().Get("X-Group") != "1" {
		t.Fatalf("group route missing middleware headers: %v", rr.Header())
	}

	rr = serve(r, "GET", "/hooks/status")
	if rr.Code != 200 || rr.Body.String() != "live" {
		t.Fatalf("GET /hooks/status => code=%d body=%q", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Root") != "1" || rr.Header().Get("X-Hooks") != "1" {
		t.Fatalf("subrouter missing middleware headers: %v", rr.Header())
	}
}

func TestAdaptChi_VerbsAtRootAndInGroup(t *testing.T) {
	t.Parallel()

	r := AdaptChi(chi.NewRouter())

	mount := func(rt Router, prefix string) {
		rt.Post(prefix+"/jira", textHandler(201, ""))
		rt.Put(prefix+"/jira", textHandler(200, ""))
		rt.Patch(prefix+"/jira", textHandler(200, ""))
		rt.Delete(prefix+"/jira", textHandler(204, ""))
		rt.Head(prefix+"/jira", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
			w.Header().Set("X-Head", "1")
		})
		rt.Options(prefix+"/jira", textHandler(204, ""))
		rt.Handle(prefix+"/raw", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
			w.WriteHeader(200)
			_, _ = w.Write([]byte("raw"))
		}))
	}

	mount(r, "/root")
	r.Group(func(gr Router) { mount(gr, "/grp") })

	for _, prefix := range []string{"/root", "/grp"} {
		for _, tc := range []struct {
			method string
			want   int
		}{
			{"POST", 201},
			{"PUT", 200},
			{"PATCH", 200},
			{"DELETE", 204},
			{"OPTIONS", 204},
		} {
			if rr := serve(r, tc.method, prefix+"/jira"); rr.Code != tc.want {
				t.Fatalf("%s %s/jira => %d want %d", tc.method, prefix, rr.Code, tc.want)
			}
		}
		rr := serve(r, "HEAD", prefix+"/jira")
		if rr.Body.Len() != 0 || rr.Header().Get("X-Head") != "1" {
			t.Fatalf("HEAD %s/jira => len=%d head=%q", prefix, rr.Body.Len(), rr.Header().Get("X-Head"))
		}
		rr = serve(r, "GET", prefix+"/raw")
		if rr.Code != 200 || rr.Body.String() != "raw" {
			t.Fatalf("GET %s/raw => code=%d body=%q", prefix, rr.Code, rr.Body.String())
		}
	}
}

func TestAdaptChi_NestedGroupsAndRoutes(t *testing.T) {
	t.Parallel()

	r := AdaptChi(chi.NewRouter())

	r.Group(func(gr Router) {
		gr.Group(func(ngr Router) {
			ngr.Get("/nested", textHandler(200, "nested"))
		})
	})

	r.Route("/hooks", func(sr Router) {
		sr.Post("/bitbucket", textHandler(201, ""))
		sr.Route("/ops", func(nr Router) {
			nr.Get("/ping", textHandler(200, "pong"))
		})
	})

	if rr := serve(r, "GET", "/nested"); rr.Code != 200 || rr.Body.String() != "nested" {
		t.Fatalf("GET /nested => code=%d body=%q", rr.Code, rr.Body.String())
	}
	if rr := serve(r, "POST", "/hooks/bitbucket"); rr.Code != 201 {
		t.Fatalf("POST /hooks/bitbucket => %d", rr.Code)
	}
	if rr := serve(r, "GET", "/hooks/ops/ping"); rr.Code != 200 || rr.Body.String() != "pong" {
		t.Fatalf("GET /hooks/ops/ping => code=%d body=%q", rr.Code, rr.Body.String())
	}
}
