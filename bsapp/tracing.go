package bsapp

import (
	"context"
	"fmt"
	"time"

	"github.com/advdv/bserve"
	"github.com/aws-observability/aws-otel-go/exporters/xrayudp"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/propagators/aws/xray"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
)

const (
	tracingInitTimeout = 5 * time.Second
	tracerName         = "github.com/advdv/bserve/bsapp"
)

// NewTracerProvider creates and configures the OpenTelemetry TracerProvider.
// Supported exporters via BS_OTEL_EXPORTER: "none" (default), "stdout", "xrayudp".
// Shutdown is handled automatically via fx.Lifecycle.
func NewTracerProvider(lc fx.Lifecycle, env Environment) (trace.TracerProvider, error) {
	exporterType := env.otelExporter()
	if exporterType == "none" || exporterType == "" {
		return noop.NewTracerProvider(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), tracingInitTimeout)
	defer cancel()

	exporter, err := newExporter(ctx, exporterType)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(env.serviceName()),
		)),
	}
	if exporterType == "xrayudp" {
		opts = append(opts, sdktrace.WithIDGenerator(xray.NewIDGenerator()))
	}

	tp := sdktrace.NewTracerProvider(opts...)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})

	return tp, nil
}

// newExporter creates a span exporter based on the exporter type.
func newExporter(ctx context.Context, exporterType string) (sdktrace.SpanExporter, error) {
	switch exporterType {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "xrayudp":
		return xrayudp.NewSpanExporter(ctx)
	default:
		return nil, fmt.Errorf("unsupported BS_OTEL_EXPORTER: %q (supported: none, stdout, xrayudp)", exporterType)
	}
}

// NewPropagator picks the propagator outbound AWS calls inject trace context with.
func NewPropagator(env Environment) propagation.TextMapPropagator {
	if env.otelExporter() == "xrayudp" {
		return xray.Propagator{}
	}
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// withTracing starts a span around every routed request. Declined requests are not errors, the span records
// them as an attribute.
func withTracing(tp trace.TracerProvider) bserve.Middleware {
	tracer := tp.Tracer(tracerName)

	return func(next bserve.Handler) bserve.Handler {
		return bserve.HandlerFunc(func(ctx context.Context, r *bserve.Request) (string, error) {
			ctx, span := tracer.Start(ctx, r.Method()+" "+r.Path(),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method()),
					semconv.URLPath(r.Path()),
					attribute.Int("bserve.params", r.Len()),
				))
			defer span.End()

			body, err := next.ServeRoute(ctx, r)
			switch {
			case err == nil:
				span.SetAttributes(attribute.Int("bserve.body_size", len(body)))
			case errors.Is(err, bserve.ErrDeclined):
				span.SetAttributes(attribute.Bool("bserve.declined", true))
			default:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}

			return body, err
		})
	}
}
