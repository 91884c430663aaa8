package bsapp

import (
	"context"

	"github.com/advdv/bserve"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ServerConfig holds options applied after the ones derived from the environment.
type ServerConfig struct {
	Options []bserve.Option
}

// RouterParams holds the dependencies for creating the router.
type RouterParams struct {
	fx.In

	Logger     *zap.Logger
	TracerProv trace.TracerProvider
}

// NewRouter creates the router routing functions register on. Every route is traced and logged.
func NewRouter(params RouterParams) *bserve.Router {
	r := bserve.NewRouter()
	r.Use(withTracing(params.TracerProv), withRequestDep(params.Logger))

	return r
}

// ServerParams holds the dependencies for creating the server.
type ServerParams struct {
	fx.In

	Env    Environment
	Logger *zap.Logger
	Files  bserve.FileSource `optional:"true"`
}

// NewServer creates a server configured from the environment.
func NewServer(params ServerParams, cfg ServerConfig) *bserve.Server {
	opts := append(params.Env.serverOptions(), bserve.WithLogger(NewServerLogger(params.Logger)))
	if params.Files != nil {
		opts = append(opts, bserve.WithFileSource(params.Files))
	}

	return bserve.NewServer(params.Env.addr(), append(opts, cfg.Options...)...)
}

// startServerHook binds on start so a bad address fails the app, then serves in the background.
func startServerHook(lc fx.Lifecycle, server *bserve.Server, router *bserve.Router, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := server.Bind(); err != nil {
				return err
			}

			logger.Info("starting server", zap.Stringer("addr", server.Addr()))
			go func() {
				if err := server.Serve(context.Background(), router); err != nil {
					logger.Error("server error", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping server")
			return server.Shutdown(ctx)
		},
	})
}
