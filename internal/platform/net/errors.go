package net

import (
	"net/http"

	perr "shipledger/internal/platform/errors"
)

// HTTPStatus resolves the status code for an error. A nil error is 200
// so reply helpers can call this unconditionally.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return perr.HTTPStatus(err)
}
