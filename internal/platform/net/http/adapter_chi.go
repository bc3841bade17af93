package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// AdaptChi wraps a *chi.Mux in the platform Router. Groups and nested
// routes hand out child adapters that keep the root mux for Mux().
func AdaptChi(m *chi.Mux) Router { return chiRouter{root: m, r: m} }

// chiRouter adapts chi.Router at any nesting depth. root is the
// top-level mux; r is the router this adapter registers against.
type chiRouter struct {
	root *chi.Mux
	r    chi.Router
}

func (c chiRouter) method(verb, p string, h Handler) {
	c.r.Method(verb, p, http.HandlerFunc(h))
}

func (c chiRouter) Get(p string, h Handler)     { c.method(http.MethodGet, p, h) }
func (c chiRouter) Post(p string, h Handler)    { c.method(http.MethodPost, p, h) }
func (c chiRouter) Put(p string, h Handler)     { c.method(http.MethodPut, p, h) }
func (c chiRouter) Patch(p string, h Handler)   { c.method(http.MethodPatch, p, h) }
func (c chiRouter) Delete(p string, h Handler)  { c.method(http.MethodDelete, p, h) }
func (c chiRouter) Head(p string, h Handler)    { c.method(http.MethodHead, p, h) }
func (c chiRouter) Options(p string, h Handler) { c.method(http.MethodOptions, p, h) }

func (c chiRouter) Handle(p string, h http.Handler)           { c.r.Handle(p, h) }
func (c chiRouter) Use(mw ...func(http.Handler) http.Handler) { c.r.Use(mw...) }

func (c chiRouter) Group(fn func(Router)) {
	c.r.Group(func(sub chi.Router) { fn(chiRouter{root: c.root, r: sub}) })
}

func (c chiRouter) Route(pattern string, fn func(Router)) {
	c.r.Route(pattern, func(sub chi.Router) { fn(chiRouter{root: c.root, r: sub}) })
}

// Mux returns the router this adapter registers against; for the
// top-level adapter that is the root mux itself.
func (c chiRouter) Mux() http.Handler { return c.r }
