// Package middleware adapts chi and cors middleware behind plain
// func(http.Handler) http.Handler constructors so handler packages never
// import chi types directly.
package middleware

import (
	"net/http"
	"time"

	pstrings "shipledger/internal/platform/strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

// Constructor is the shape every middleware in this package returns.
type Constructor = func(http.Handler) http.Handler

// RequestID propagates an inbound X-Request-ID or mints one, and stores it
// on the request context for the access log and error envelopes
func RequestID() Constructor { return chimw.RequestID }

// RealIP rewrites RemoteAddr from X-Forwarded-For style headers
func RealIP() Constructor { return chimw.RealIP }

// Timeout cancels the request context after d
func Timeout(d time.Duration) Constructor { return chimw.Timeout(d) }

// NoCache disables client and proxy caching on every response
func NoCache() Constructor { return chimw.NoCache }

// Compress gzips responses at the given flate level
func Compress(level int) Constructor {
	c := chimw.NewCompressor(level)
	return func(next http.Handler) http.Handler { return c.Handler(next) }
}

// RedirectSlashes redirects /hooks/ to /hooks
func RedirectSlashes() Constructor { return chimw.RedirectSlashes }

// StripSlashes drops a trailing slash from the request path before routing
func StripSlashes() Constructor { return chimw.StripSlashes }

// AllowContentType rejects requests whose Content-Type is not listed.
// Tracker deliveries are JSON; anything else never reaches a handler
func AllowContentType(ct ...string) Constructor { return chimw.AllowContentType(ct...) }

// Throttle caps concurrent in-flight requests and sheds the rest with 503
func Throttle(limit int) Constructor { return chimw.Throttle(limit) }

// Heartbeat answers GET path with a bare 200 for load balancer checks
func Heartbeat(path string) Constructor { return chimw.Heartbeat(path) }

// CORSOptions is the subset of go-chi/cors options the ledger exposes
type CORSOptions struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// CORS builds a cors handler. Methods and headers left empty get defaults
// covering the webhook endpoints, including the tracker signature headers
func CORS(o CORSOptions) Constructor {
	methods := pstrings.IfEmpty(o.AllowedMethods, []string{
		"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS",
	})
	headers := pstrings.IfEmpty(o.AllowedHeaders, []string{
		"Accept",
		"Authorization",
		"Content-Type",
		"X-Request-ID",
		"X-Hub-Signature",
		"X-Event-Key",
	})

	return chicors.Handler(chicors.Options{
		AllowedOrigins:   o.AllowedOrigins,
		AllowedMethods:   methods,
		AllowedHeaders:   headers,
		ExposedHeaders:   o.ExposedHeaders,
		AllowCredentials: o.AllowCredentials,
		MaxAge:           o.MaxAge,
	})
}
