// Package http carries the ledger's HTTP plumbing: the router seam,
// the server loop, and JSON envelope rendering.
package http

import (
	"encoding/json"
	stdhttp "net/http"

	perr "shipledger/internal/platform/errors"
	pnet "shipledger/internal/platform/net"
)

// Envelope is the response body every endpoint renders
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// JSON writes v as application/json with the given status
func JSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Response is the return value of envelope-style handlers. A zero
// Status renders as 200; an error Body overrides Status entirely.
type Response struct {
	Status int
	Body   any
	Header stdhttp.Header
}

// Handle adapts a Response-returning handler to net/http
func Handle(h func(r *stdhttp.Request) Response) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		h(r).write(w, r)
	}
}

func (resp Response) write(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}

	status := resp.Status
	if status == 0 {
		status = stdhttp.StatusOK
	}
	if status == stdhttp.StatusNoContent {
		w.WriteHeader(stdhttp.StatusNoContent)
		return
	}

	env := Envelope{RequestID: pnet.RequestID(r.Context())}

	// an error body decides its own status before the envelope renders
	if err, ok := resp.Body.(error); ok && err != nil {
		status = perr.HTTPStatus(err)
		wr := perr.WireFrom(err)
		env.Code = wr.Code
		env.Error = wr.Message
	} else {
		env.Data = resp.Body
	}

	env.StatusCode = status
	env.Status = stdhttp.StatusText(status)
	JSON(w, status, env)
}

// OK returns a 200 response
func OK(data any) Response { return Response{Status: stdhttp.StatusOK, Body: data} }

// Error wraps err so write maps it to its wire status and envelope
func Error(err error) Response { return Response{Body: err} }
