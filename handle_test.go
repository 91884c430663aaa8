package bserve_test

import (
	"context"
	"testing"

	"github.com/advdv/bserve"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestHandlerFunc(t *testing.T) {
	h := bserve.HandlerFunc(func(_ context.Context, r *bserve.Request) (string, error) {
		if r.Path() == "/trigger-error" {
			return "", errors.New("triggered error")
		}

		return "hello " + r.Get("name") + ", at " + r.Path(), nil
	})

	body, err := h.ServeRoute(context.Background(), bserve.NewRequest("GET", "/bar", bserve.Params{"name": "foo"}))
	require.NoError(t, err)
	require.Equal(t, "hello foo, at /bar", body)

	_, err = h.ServeRoute(context.Background(), bserve.NewRequest("GET", "/trigger-error", nil))
	require.EqualError(t, err, "triggered error")
	require.Equal(t, bserve.CodeUnknown, bserve.CodeOf(err))
}

func TestStatic(t *testing.T) {
	h := bserve.Static("<h1>hi</h1>")

	for _, method := range []string{"GET", "POST", "DELETE"} {
		body, err := h.ServeRoute(context.Background(), bserve.NewRequest(method, "/any", nil))
		require.NoError(t, err)
		require.Equal(t, "<h1>hi</h1>", body)
	}
}

func TestHandlerErrorsOverTheWire(t *testing.T) {
	router := bserve.NewRouter()
	router.AddPathFunc("/plain", func(context.Context, *bserve.Request) (string, error) {
		return "", errors.New("plain")
	})
	router.AddPathFunc("/conflict", func(context.Context, *bserve.Request) (string, error) {
		return "", bserve.NewError(bserve.CodeConflict, errors.New("already exists"))
	})
	router.AddPathFunc("/wrapped", func(context.Context, *bserve.Request) (string, error) {
		return "", errors.Wrap(bserve.NewError(bserve.CodeForbidden, errors.New("no")), "checking access")
	})

	logs := bserve.NewTestLogger(t)
	_, addr := startServer(t, router, bserve.WithLogger(logs))

	require.Equal(t, "HTTP/1.1 500 Internal Server Error\r\n\r\nInternal Server Error",
		roundTrip(t, addr, "GET /plain HTTP/1.1\r\n\r\n"))
	require.Equal(t, "HTTP/1.1 409 Conflict\r\n\r\nConflict",
		roundTrip(t, addr, "GET /conflict HTTP/1.1\r\n\r\n"))
	require.Equal(t, "HTTP/1.1 403 Forbidden\r\n\r\nForbidden",
		roundTrip(t, addr, "GET /wrapped HTTP/1.1\r\n\r\n"))
	require.Equal(t, int64(1), logs.HandlerErrors())
}
