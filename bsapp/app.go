package bsapp

import (
	"context"

	"github.com/advdv/bserve"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// App wraps an fx.App for lifecycle management.
type App struct {
	app *fx.App
}

// AppConfig holds configuration for the app.
type AppConfig struct {
	ServerConfig
	FxOptions []fx.Option
}

// Option configures the App.
type Option func(*AppConfig)

// WithFx adds fx options for dependency injection.
func WithFx(fxOpts ...fx.Option) Option {
	return func(c *AppConfig) {
		c.FxOptions = append(c.FxOptions, fxOpts...)
	}
}

// WithServerOptions adds server options. They are applied after the ones derived from the environment and so
// take precedence.
func WithServerOptions(opts ...bserve.Option) Option {
	return func(c *AppConfig) {
		c.Options = append(c.Options, opts...)
	}
}

// FxOptions returns the fx options that make up the app. [NewApp] and the test helpers build the same graph
// from it.
func FxOptions[E Environment](routing any, opts ...Option) []fx.Option {
	var cfg AppConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	baseOpts := make([]fx.Option, 0, 12+len(cfg.FxOptions))
	baseOpts = append(baseOpts, []fx.Option{
		fx.NopLogger,
		fx.Provide(ParseEnv[E]()),
		fx.Provide(func(e E) Environment { return e }),
		fx.Provide(func(e E) (*zap.Logger, error) { return NewLogger(e) }),
		fx.Provide(NewTracerProvider),
		fx.Provide(NewPropagator),
		fx.Provide(provideFileSource),
		fx.Provide(NewRouter),
		fx.Supply(cfg.ServerConfig),
		fx.Provide(NewServer),
		fx.Invoke(startServerHook),
		fx.Invoke(routing),
	}...)

	return append(baseOpts, cfg.FxOptions...)
}

// NewApp creates an app that serves the routes registered by the routing function.
//
// The routing function can request any types that are provided via fx options. At minimum, it should accept
// *bserve.Router:
//
//	bsapp.NewApp[Env](func(r *bserve.Router, h *Handlers) {
//	    r.AddPathFunc("/items", h.ListItems)
//	},
//	    bsapp.WithFx(fx.Provide(NewHandlers)),
//	).Run()
func NewApp[E Environment](routing any, opts ...Option) *App {
	return &App{
		app: fx.New(FxOptions[E](routing, opts...)...),
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() {
	a.app.Run()
}

// Start starts the application and stops it again once ctx is done.
func (a *App) Start(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.app.StopTimeout())
	defer cancel()

	return a.app.Stop(stopCtx)
}
