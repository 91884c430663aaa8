package bsapp

import (
	"context"
	"time"

	"github.com/advdv/bserve"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ctxKey is the key type for context values.
type ctxKey int

const (
	ctxKeyRequestDep ctxKey = iota
)

// requestDep holds request-scoped dependencies available via context.
type requestDep struct {
	logger *zap.Logger
}

// withRequestDep injects a request-scoped logger into the context and logs the outcome of every routed request.
func withRequestDep(logs *zap.Logger) bserve.Middleware {
	return func(next bserve.Handler) bserve.Handler {
		return bserve.HandlerFunc(func(ctx context.Context, r *bserve.Request) (string, error) {
			d := &requestDep{logger: logs.With(
				zap.String("method", r.Method()),
				zap.String("path", r.Path()),
			)}

			ctx = context.WithValue(ctx, ctxKeyRequestDep, d)

			start := time.Now()
			body, err := next.ServeRoute(ctx, r)

			fields := append(traceFields(ctx), zap.Duration("took", time.Since(start)))
			switch {
			case err == nil:
				d.logger.Info("served route", append(fields, zap.Int("bytes", len(body)))...)
			case errors.Is(err, bserve.ErrDeclined):
				d.logger.Debug("route declined", fields...)
			default:
				d.logger.Info("route failed", append(fields, zap.Error(err))...)
			}

			return body, err
		})
	}
}

func requestDepFromContext(ctx context.Context) *requestDep {
	d, ok := ctx.Value(ctxKeyRequestDep).(*requestDep)
	if !ok {
		panic("bsapp: requestDep not found in context; is the middleware configured?")
	}
	return d
}

// Log returns a trace-correlated zap logger from the context.
func Log(ctx context.Context) *zap.Logger {
	d := requestDepFromContext(ctx)
	return d.logger.With(traceFields(ctx)...)
}

// Span returns the current trace span from the context.
func Span(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// traceFields extracts trace_id and span_id from the context for log correlation.
func traceFields(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	sc := span.SpanContext()
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
