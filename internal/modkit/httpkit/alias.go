// Package httpkit re-exports the platform http surface for service
// modules, so they mount routes and shape responses without importing
// internal/platform/net/http directly.
package httpkit

import (
	"net/http"

	phttp "shipledger/internal/platform/net/http"
)

type (
	// Envelope is the transport envelope type
	Envelope = phttp.Envelope

	// Response pairs a status code with a body to render
	Response = phttp.Response

	// Handler is the platform handler type
	Handler = phttp.Handler

	// Router is the routing seam modules mount against
	Router = phttp.Router
)

// Error maps an error to its wire status and envelope
func Error(err error) Response { return phttp.Error(err) }

// Handle adapts a Response-returning function to a Handler
func Handle(fn func(*http.Request) Response) Handler {
	return phttp.Handle(fn)
}
