package bserve_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/advdv/bserve"
	"github.com/advdv/bserve/internal/example"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestWrapWithoutMiddleware(t *testing.T) {
	h := bserve.Static("x")
	require.Equal(t, fmt.Sprint(h), fmt.Sprint(bserve.Wrap(h))) // compare addrs
}

func TestWrapOrder(t *testing.T) {
	var res string
	inner := bserve.HandlerFunc(func(ctx context.Context, _ *bserve.Request) (string, error) {
		res += fmt.Sprintf("inner %s %v", example.User(ctx), ctx.Value(ctxFoo{}))

		return "", errors.New("inner error")
	})

	mw := func(name string, fn func(context.Context) context.Context) bserve.Middleware {
		return func(n bserve.Handler) bserve.Handler {
			return bserve.HandlerFunc(func(ctx context.Context, r *bserve.Request) (string, error) {
				res += name + "("
				_, err := n.ServeRoute(fn(ctx), r)
				res += ")" + name

				return "", fmt.Errorf("%s(%w)", name, err)
			})
		}
	}

	keep := func(ctx context.Context) context.Context { return ctx }
	setFoo := func(ctx context.Context) context.Context { return context.WithValue(ctx, ctxFoo{}, "bar") }

	h := bserve.Wrap(inner, mw("3", setFoo), mw("2", keep), example.RequireUser("user"), mw("1", keep))

	_, err := h.ServeRoute(context.Background(), bserve.NewRequest("GET", "/", bserve.Params{"user": "ann"}))
	require.Equal(t, "3(2(1(inner ann bar)1)2)3", res)
	require.EqualError(t, err, "3(2(1(inner error)))")
}

type ctxFoo struct{}

func TestRequireUser(t *testing.T) {
	var reached bool
	h := bserve.Wrap(bserve.HandlerFunc(func(context.Context, *bserve.Request) (string, error) {
		reached = true
		return "ok", nil
	}), example.RequireUser("user"))

	for _, params := range []bserve.Params{nil, {"user": ""}} {
		_, err := h.ServeRoute(context.Background(), bserve.NewRequest("GET", "/", params))
		require.Equal(t, bserve.CodeUnauthorized, bserve.CodeOf(err))
	}

	require.False(t, reached)
}

func TestMiddlewareOverTheWire(t *testing.T) {
	router := bserve.NewRouter()
	router.Use(example.RequireUser("user"))
	router.AddPathFunc("/me", func(ctx context.Context, _ *bserve.Request) (string, error) {
		return "you are " + example.User(ctx), nil
	})

	_, addr := startServer(t, router)
	require.Equal(t, "HTTP/1.1 200 OK\r\n\r\nyou are ann", roundTrip(t, addr, "GET /me?user=ann HTTP/1.1\r\n\r\n"))
	require.Equal(t, "HTTP/1.1 401 Unauthorized\r\n\r\nUnauthorized", roundTrip(t, addr, "GET /me HTTP/1.1\r\n\r\n"))
}
