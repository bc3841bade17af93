package httpkit

import "net/http"

// MountUnder routes a module's endpoints below prefix. Module scoped
// middlewares are installed on the subrouter first so they wrap every
// route the mount callback registers, and nothing outside the prefix.
func MountUnder(r Router, prefix string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	r.Route(prefix, func(sub Router) {
		if len(mw) > 0 {
			sub.Use(mw...)
		}
		mount(sub)
	})
}
