// Package example implements example middleware in an outside package.
package example

import (
	"context"

	"github.com/advdv/bserve"
	"github.com/cockroachdb/errors"
)

// ctxKey type scopes middleware values.
type ctxKey string

// RequireUser provides an example for middleware that moves a request parameter into the context, requests
// without it are answered with 401.
func RequireUser(param string) bserve.Middleware {
	return func(n bserve.Handler) bserve.Handler {
		return bserve.HandlerFunc(func(ctx context.Context, r *bserve.Request) (string, error) {
			user, ok := r.Param(param)
			if !ok || user == "" {
				return "", bserve.NewError(bserve.CodeUnauthorized, errors.Newf("missing %q parameter", param))
			}

			return n.ServeRoute(context.WithValue(ctx, ctxKey("user"), user), r)
		})
	}
}

// User returns the user stored by [RequireUser], or the empty string.
func User(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey("user")).(string)

	return v
}
