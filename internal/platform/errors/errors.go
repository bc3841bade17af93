// Package errors carries the ledger's coded error type. Import it as perr.
//
// Every error crossing a service boundary is an *Error with a stable
// ErrorCode; handlers map codes to HTTP statuses and services use them
// to decide whether an operation retries.
package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies failures across services. Values ride the wire,
// so existing ones never renumber.
type ErrorCode uint16

const (
	// ErrorCodeUnknown covers anything not classified below
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodePanic marks panics caught by the recovery middleware
	ErrorCodePanic

	// ErrorCodeUnavailable marks transient faults worth retrying
	ErrorCodeUnavailable

	// ErrorCodeTooManyRequests marks rate limited calls
	ErrorCodeTooManyRequests

	// ErrorCodeConflict marks conditional-write rejections. Webhook
	// appliers treat it as a successful no-op, not a failure
	ErrorCodeConflict

	// ErrorCodeUnauthorized marks a bad or missing delivery signature
	ErrorCodeUnauthorized

	// ErrorCodeForbidden marks access control rejections
	ErrorCodeForbidden

	// ErrorCodeInvalidArgument marks bad input parameters
	ErrorCodeInvalidArgument

	// ErrorCodeValidation marks payloads that parsed but failed rules
	ErrorCodeValidation

	// ErrorCodeJSON marks bodies that would not parse at all
	ErrorCodeJSON

	// ErrorCodeNotFound marks missing resources
	ErrorCodeNotFound

	// ErrorCodeDuplicateKey marks unique constraint violations
	ErrorCodeDuplicateKey

	// ErrorCodeDB marks general database failures
	ErrorCodeDB

	// ErrorCodeUpstreamTransient marks tracker API failures that were
	// retryable (timeouts, 429, 5xx) once retries ran out
	ErrorCodeUpstreamTransient

	// ErrorCodeUpstreamPermanent marks tracker API failures no retry
	// can fix (4xx other than 429)
	ErrorCodeUpstreamPermanent
)

// httpStatuses maps each code to the status handlers reply with.
// Codes missing here fall back to 500.
var httpStatuses = map[ErrorCode]int{
	ErrorCodeNotFound:          http.StatusNotFound,
	ErrorCodeInvalidArgument:   http.StatusUnprocessableEntity,
	ErrorCodeDuplicateKey:      http.StatusConflict,
	ErrorCodeConflict:          http.StatusConflict,
	ErrorCodeValidation:        http.StatusBadRequest,
	ErrorCodeJSON:              http.StatusBadRequest,
	ErrorCodeUnauthorized:      http.StatusUnauthorized,
	ErrorCodeForbidden:         http.StatusForbidden,
	ErrorCodeTooManyRequests:   http.StatusTooManyRequests,
	ErrorCodeUnavailable:       http.StatusServiceUnavailable,
	ErrorCodeUpstreamTransient: http.StatusServiceUnavailable,
	ErrorCodeUpstreamPermanent: http.StatusBadGateway,
}

// HTTPStatusCode resolves the HTTP status for a code
func HTTPStatusCode(c ErrorCode) int {
	if status, ok := httpStatuses[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrNotFound is the shared not-found sentinel
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Upstream records what a failed tracker API call looked like. Snippet
// is a bounded prefix of the response body and Query holds the request
// parameters, never credentials.
type Upstream struct {
	StatusCode int
	Snippet    string
	Query      map[string]string
}

// Error is the coded error. msg reads for humans, code for machines.
// field names the offending input for validation failures, op tags the
// operation, upstream carries tracker call context, orig is the cause.
type Error struct {
	orig     error
	msg      string
	code     ErrorCode
	field    string
	op       string
	upstream *Upstream
}

// Wire is the JSON shape error envelopes serialize
type Wire struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %v", e.msg, e.orig)
}

func (e *Error) Unwrap() error { return e.orig }

// Code returns the classification
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the offending input field, empty when unset
func (e *Error) Field() string { return e.field }

// Op returns the operation tag, empty when unset
func (e *Error) Op() string { return e.op }

// Upstream returns tracker call context, nil when unset
func (e *Error) Upstream() *Upstream { return e.upstream }

// ToWire projects the error onto its JSON shape. Only msg goes out;
// the wrapped cause stays server side.
func (e *Error) ToWire() Wire { return Wire{Code: e.code, Message: e.msg, Field: e.field} }

// WireFrom projects any error. nil maps to the zero Wire, foreign
// errors to Unknown with their message.
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Code: ErrorCodeUnknown, Message: err.Error()}
}

// Root walks Unwrap to the deepest cause
func Root(err error) error {
	for err != nil {
		next := stderrs.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return err
}

// CodeOf extracts the code from any error, Unknown for foreign ones
func CodeOf(err error) ErrorCode {
	e, ok := As(err)
	if !ok {
		return ErrorCodeUnknown
	}
	return e.code
}

// IsCode reports whether err carries code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// IsConflict reports whether err is a conditional-write rejection
func IsConflict(err error) bool { return IsCode(err, ErrorCodeConflict) }

// HTTPStatus resolves the HTTP status for any error
func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// HTTP hands handlers status and wire payload in one call
func HTTP(err error) (int, Wire) {
	if err == nil {
		return http.StatusOK, Wire{}
	}
	return HTTPStatus(err), WireFrom(err)
}

// As unwraps err looking for one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if !stderrs.As(err, &e) {
		return nil, false
	}
	return e, true
}

// UpstreamOf pulls tracker call context out of any error chain
func UpstreamOf(err error) (*Upstream, bool) {
	e, ok := As(err)
	if !ok || e.upstream == nil {
		return nil, false
	}
	return e.upstream, true
}

// Annotations below copy the error instead of mutating it, so a shared
// sentinel never picks up another caller's field or op.

// WithField attaches a field name; foreign errors pass through untouched
func WithField(err error, field string) error {
	e, ok := As(err)
	if !ok {
		return err
	}
	c := *e
	c.field = field
	return &c
}

// WithOp attaches an operation tag; foreign errors pass through untouched
func WithOp(err error, op string) error {
	e, ok := As(err)
	if !ok {
		return err
	}
	c := *e
	c.op = op
	return &c
}

// WithFieldChain attaches a field, converting foreign errors first
func WithFieldChain(err error, field string) error {
	if _, ok := As(err); ok {
		return WithField(err, field)
	}
	return &Error{code: ErrorCodeUnknown, msg: err.Error(), orig: err, field: field}
}

// WithUpstream attaches tracker call context, converting foreign errors first
func WithUpstream(err error, u Upstream) error {
	e, ok := As(err)
	if !ok {
		return &Error{code: ErrorCodeUnknown, msg: err.Error(), orig: err, upstream: &u}
	}
	c := *e
	c.upstream = &u
	return &c
}

// New builds a coded error
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf builds a coded error with a formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap builds a coded error around a cause
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf builds a coded error around a cause with a formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// WrapIf wraps only non-nil errors, so callers can return it inline
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

// One-line constructors per code

func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }

func InvalidArgf(format string, a ...any) error { return Newf(ErrorCodeInvalidArgument, format, a...) }

func DuplicateKeyf(format string, a ...any) error { return Newf(ErrorCodeDuplicateKey, format, a...) }

func DBf(format string, a ...any) error { return Newf(ErrorCodeDB, format, a...) }

func JSONErrf(format string, a ...any) error { return Newf(ErrorCodeJSON, format, a...) }

func PanicErrf(format string, a ...any) error { return Newf(ErrorCodePanic, format, a...) }

func Unauthorizedf(format string, a ...any) error { return Newf(ErrorCodeUnauthorized, format, a...) }

func Forbiddenf(format string, a ...any) error { return Newf(ErrorCodeForbidden, format, a...) }

func Conflictf(format string, a ...any) error { return Newf(ErrorCodeConflict, format, a...) }

func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }

func Internalf(format string, a ...any) error { return Newf(ErrorCodeUnknown, format, a...) }

func UpstreamTransientf(format string, a ...any) error {
	return Newf(ErrorCodeUpstreamTransient, format, a...)
}

func UpstreamPermanentf(format string, a ...any) error {
	return Newf(ErrorCodeUpstreamPermanent, format, a...)
}

// Retryable reports whether the operation behind err is worth another
// attempt. Upstream and rate-limit codes decide directly; everything
// else defers to the Postgres SQLSTATE logic in pg.go.
func Retryable(err error) bool {
	switch CodeOf(err) {
	case ErrorCodeUpstreamTransient, ErrorCodeTooManyRequests, ErrorCodeUnavailable:
		return true
	case ErrorCodeUpstreamPermanent, ErrorCodeConflict:
		return false
	}
	return IsRetryable(err)
}
