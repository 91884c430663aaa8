package bserve

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
)

// Handler produces the body for a routed request. Returning [ErrDeclined] means the handler matched the path but
// does not want to answer it, dispatch then falls through to the static file and not-found stages. Other errors
// are turned into an error response.
type Handler interface {
	ServeRoute(ctx context.Context, r *Request) (string, error)
}

// HandlerFunc allow casting a function to implement [Handler].
type HandlerFunc func(context.Context, *Request) (string, error)

// ServeRoute implements the [Handler] interface.
func (f HandlerFunc) ServeRoute(ctx context.Context, r *Request) (string, error) {
	return f(ctx, r)
}

// Optional adapts a function in the "optional body" form: ok=false declines the request.
func Optional(fn func(r *Request) (body string, ok bool)) Handler {
	return HandlerFunc(func(_ context.Context, r *Request) (string, error) {
		body, ok := fn(r)
		if !ok {
			return "", ErrDeclined
		}

		return body, nil
	})
}

// Static returns a handler that always answers with body.
func Static(body string) Handler {
	return HandlerFunc(func(context.Context, *Request) (string, error) {
		return body, nil
	})
}

// invoke calls h and converts a panic into an error marked with [ErrHandlerPanic].
func invoke(ctx context.Context, h Handler, r *Request) (body string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Mark(
				errors.Newf("handler for %q panicked: %s", r.Path(), fmt.Sprint(rec)),
				ErrHandlerPanic)
		}
	}()

	return h.ServeRoute(ctx, r)
}
