// Package bsapptest provides test helpers for bsapp applications.
//
// It constructs the identical DI graph as [bsapp.NewApp] but uses
// [fxtest.App] which fails the test immediately on DI errors.
//
// Example:
//
//	bsapptest.SetBaseEnv(t, "127.0.0.1:18081")
//	app := bsapptest.New[TestEnv](t, routing)
//	app.RequireStart()
//	t.Cleanup(app.RequireStop)
package bsapptest

import (
	"testing"

	"github.com/advdv/bserve/bsapp"
	"go.uber.org/fx/fxtest"
)

// App embeds *fxtest.App for testing bsapp applications.
type App struct {
	*fxtest.App
}

// New creates a test app with the same DI graph as [bsapp.NewApp].
func New[E bsapp.Environment](t testing.TB, routing any, opts ...bsapp.Option) *App {
	return &App{App: fxtest.New(t, bsapp.FxOptions[E](routing, opts...)...)}
}
