package bserve

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Code is an error code that mirrors the http status codes. Handlers can return an [*Error] with one of these
// codes to pick the status of the response instead of the default 500.
type Code int

const (
	CodeUnknown                     Code = 0
	CodeOK                          Code = http.StatusOK                          // RFC 9110, 15.3.1
	CodeBadRequest                  Code = http.StatusBadRequest                  // RFC 9110, 15.5.1
	CodeUnauthorized                Code = http.StatusUnauthorized                // RFC 9110, 15.5.2
	CodeForbidden                   Code = http.StatusForbidden                   // RFC 9110, 15.5.4
	CodeNotFound                    Code = http.StatusNotFound                    // RFC 9110, 15.5.5
	CodeMethodNotAllowed            Code = http.StatusMethodNotAllowed            // RFC 9110, 15.5.6
	CodeConflict                    Code = http.StatusConflict                    // RFC 9110, 15.5.10
	CodeRequestEntityTooLarge       Code = http.StatusRequestEntityTooLarge       // RFC 9110, 15.5.14
	CodeUnprocessableEntity         Code = http.StatusUnprocessableEntity         // RFC 9110, 15.5.21
	CodeTooManyRequests             Code = http.StatusTooManyRequests             // RFC 6585, 4
	CodeRequestHeaderFieldsTooLarge Code = http.StatusRequestHeaderFieldsTooLarge // RFC 6585, 5

	CodeInternalServerError Code = http.StatusInternalServerError // RFC 9110, 15.6.1
	CodeNotImplemented      Code = http.StatusNotImplemented      // RFC 9110, 15.6.2
	CodeServiceUnavailable  Code = http.StatusServiceUnavailable  // RFC 9110, 15.6.4
)

// Reason returns the reason phrase written on the status line.
func (c Code) Reason() string {
	if s := http.StatusText(int(c)); s != "" {
		return s
	}

	return "Unknown"
}

var (
	// ErrBind is marked on errors returned when the listener cannot be bound.
	ErrBind = errors.New("bserve: bind")
	// ErrConnectionRead is marked on errors reading a request; the connection is closed without a response.
	ErrConnectionRead = errors.New("bserve: connection read")
	// ErrBadRequest is marked on errors for malformed request lines, targets or headers.
	ErrBadRequest = errors.New("bserve: bad request")
	// ErrHandlerPanic is marked on errors recovered from a panicking handler.
	ErrHandlerPanic = errors.New("bserve: handler panic")
	// ErrStaticFile is marked on errors from the static file fallback. They are never fatal.
	ErrStaticFile = errors.New("bserve: static file")
	// ErrDeclined is returned by a handler that matched the path but produces no body. Dispatch then continues
	// with the static file and not-found stages.
	ErrDeclined = errors.New("bserve: declined")
)

// Error describes an http error.
type Error struct {
	code Code
	err  error
}

// NewError inits a new error given the error code.
func NewError(c Code, underlying error) *Error {
	return &Error{c, underlying}
}

func (e *Error) Code() Code    { return e.code }
func (e *Error) Unwrap() error { return e.err }
func (e *Error) Error() string {
	return e.code.Reason() + ": " + e.err.Error()
}

// CodeOf returns the error's status code if it is or wraps an [*Error] and
// [CodeUnknown] otherwise.
func CodeOf(err error) Code {
	if herr, ok := asError(err); ok {
		return herr.Code()
	}
	return CodeUnknown
}

// asError uses errors.As to unwrap any error and look for a *Error.
func asError(err error) (*Error, bool) {
	var herr *Error
	ok := errors.As(err, &herr)
	return herr, ok
}
