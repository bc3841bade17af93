package middleware

import (
	stdjson "encoding/json"
	stdhttp "net/http"
	"runtime/debug"
	"strings"

	perr "shipledger/internal/platform/errors"
	"shipledger/internal/platform/logger"
	pnet "shipledger/internal/platform/net"
)

// RecoverJSON turns a handler panic into a JSON 500. The stack is
// logged with the request id, and the id is mirrored onto the response
// so trackers can quote it when they report a failed delivery.
func RecoverJSON(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}

			reqID := pnet.RequestID(r.Context())

			// indent continuation lines so the stack reads as one log event
			stack := strings.Join(strings.Split(string(debug.Stack()), "\n"), "\n\t")

			log := logger.C(r.Context())
			if log == nil {
				log = logger.Named("http")
			}
			log.Error().
				Str("request_id", reqID).
				Interface("panic", v).
				Msgf("panic recovered\n%s", stack)

			if reqID != "" {
				w.Header().Set("X-Request-ID", reqID)
			}

			status, body := pnet.Error(perr.PanicErrf("panic recovered"), reqID)
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(status)
			_ = stdjson.NewEncoder(w).Encode(body)
		}()

		next.ServeHTTP(w, r)
	})
}
