package modkit

import (
	"net/http"

	phttp "shipledger/internal/platform/net/http"
	pstrings "shipledger/internal/platform/strings"
)

// Option mutates the build configuration for a module
type Option func(*buildCfg)

type buildCfg struct {
	name      string
	prefix    string
	mw        []func(http.Handler) http.Handler
	ports     any
	subrouter func(phttp.Router) phttp.Router
	register  func(phttp.Router)
}

// WithName names the module for logs and mount bookkeeping; a blank
// name panics at wiring time.
func WithName(name string) Option {
	return func(c *buildCfg) { c.name = pstrings.MustString(name, "module name") }
}

// WithPrefix mounts the module under a normalized path prefix, so
// "/hooks/" and "hooks" both become "/hooks".
func WithPrefix(prefix string) Option {
	return func(c *buildCfg) { c.prefix = pstrings.MustPrefix(prefix) }
}

// WithMiddlewares appends module scoped middleware in order
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(c *buildCfg) { c.mw = append(c.mw, mw...) }
}

// WithPorts stores the ports value another module will type assert
// back out; the concrete type stays owned by the declaring module.
func WithPorts[T any](p T) Option {
	return func(c *buildCfg) { c.ports = p }
}

// WithSubrouter substitutes the router the module mounts against
func WithSubrouter(fn func(phttp.Router) phttp.Router) Option {
	return func(c *buildCfg) { c.subrouter = fn }
}

// WithRegister sets the hook that attaches endpoints to the module router
func WithRegister(fn func(phttp.Router)) Option {
	return func(c *buildCfg) { c.register = fn }
}
