package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"shipledger/internal/platform/net/middleware"
)

// CommonStack is the baseline middleware every mounted module gets:
// correlation ids, panic recovery, access logging, CORS, compression,
// a liveness probe, and slash normalization. Modules layer their own
// auth or throttling on top of it in MountRoutes.
func CommonStack() []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),

		middleware.RecoverJSON,
		middleware.NoCache(),

		// deliveries slower than 2s log at warn
		middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: 2 * time.Second}),

		middleware.CORS(middleware.CORSOptions{}),
		middleware.Compress(flate.BestSpeed),
		middleware.Heartbeat("/health"),
		middleware.RedirectSlashes(),
		middleware.StripSlashes(),
		middleware.Timeout(30 * time.Second),
	}
}
