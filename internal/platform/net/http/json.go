package http

import (
	"net/http"

	"shipledger/internal/platform/net/http/bind"
)

// JSONHandler adapts a typed JSON endpoint to a platform Handler. The
// body is decoded and validated into T before fn runs; bind failures
// surface as validation errors without fn ever being called.
func JSONHandler[T any](fn func(*http.Request, T) (any, error)) Handler {
	return Handle(func(r *http.Request) Response {
		in, err := bind.ParseJSON[T](r)
		if err != nil {
			return Error(err)
		}
		out, err := fn(r, in)
		if err != nil {
			return Error(err)
		}
		return OK(out)
	})
}
