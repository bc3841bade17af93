package http

import "net/http"

// Handler is the platform handler signature. It is a plain function so
// stdlib and chi handlers interoperate without wrapping types.
type Handler = func(http.ResponseWriter, *http.Request)

// Router is the surface modules mount routes against. Verb helpers take
// the platform Handler; Handle accepts any stdlib http.Handler.
type Router interface {
	Get(path string, h Handler)
	Post(path string, h Handler)
	Put(path string, h Handler)
	Patch(path string, h Handler)
	Delete(path string, h Handler)
	Head(path string, h Handler)
	Options(path string, h Handler)

	Handle(path string, h http.Handler)
	Use(mw ...func(http.Handler) http.Handler)
	Group(fn func(Router))
	Route(pattern string, fn func(Router))

	// Mux exposes the underlying handler for the server to serve
	Mux() http.Handler
}
