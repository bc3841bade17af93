package modkit

import (
	"net/http"

	"shipledger/internal/modkit/httpkit"
)

// Built is the resolved module configuration after options run. It is
// a plain struct so modules read fields instead of chasing options.
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	Ports  any

	Subrouter func(httpkit.Router) httpkit.Router
	Register  func(httpkit.Router)
}

// Build folds opts into a Built. Hooks default to identity and no-op,
// and the middleware slice is copied so later mutation of the caller's
// slice cannot reach the module.
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		o(&c)
	}

	if c.subrouter == nil {
		c.subrouter = func(r httpkit.Router) httpkit.Router { return r }
	}
	if c.register == nil {
		c.register = func(httpkit.Router) {}
	}

	return Built{
		Name:      c.name,
		Prefix:    c.prefix,
		Mw:        append([]func(http.Handler) http.Handler(nil), c.mw...),
		Ports:     c.ports,
		Subrouter: c.subrouter,
		Register:  c.register,
	}
}
