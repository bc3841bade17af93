package middleware

import (
	"net/http"
	"time"

	"shipledger/internal/platform/logger"
	pnet "shipledger/internal/platform/net"
)

// AccessLogOptions configures the zerolog access log
type AccessLogOptions struct {
	// Slow promotes requests taking >= Slow to warn level; 0 disables it
	Slow time.Duration
}

// statusWriter records the status code and byte count of a response
type statusWriter struct {
	http.ResponseWriter
	status  int
	written int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	n, err := sw.ResponseWriter.Write(b)
	sw.written += n
	return n, err
}

// AccessLogZerolog emits one structured line per request. Webhook
// deliveries additionally carry delivery_id and source when the
// handler chain annotated the context.
func AccessLogZerolog(opt AccessLogOptions) Constructor {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(sw, r)

			elapsed := time.Since(start)
			log := logger.C(r.Context())

			evt := log.Info()
			if opt.Slow > 0 && elapsed >= opt.Slow {
				evt = log.Warn()
			}
			if dlv := pnet.DeliveryID(r.Context()); dlv != "" {
				evt = evt.Str("delivery_id", dlv)
			}
			if src := pnet.Source(r.Context()); src != "" {
				evt = evt.Str("source", src)
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sw.status).
				Int("bytes", sw.written).
				Dur("elapsed", elapsed).
				Msg("request done")
		})
	}
}
