package bsapp

import (
	"context"
	"testing"

	"github.com/advdv/bserve"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEnv struct {
	level   zapcore.Level
	otelExp string
	bucket  string
}

func (e testEnv) addr() string                   { return "127.0.0.1:0" }
func (e testEnv) serviceName() string            { return "test" }
func (e testEnv) logLevel() zapcore.Level        { return e.level }
func (e testEnv) otelExporter() string           { return e.otelExp }
func (e testEnv) awsRegion() string              { return "us-east-1" }
func (e testEnv) staticBucket() string           { return e.bucket }
func (e testEnv) staticPrefix() string           { return "" }
func (e testEnv) serverOptions() []bserve.Option { return nil }

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name  string
		level zapcore.Level
	}{
		{"debug level", zapcore.DebugLevel},
		{"info level", zapcore.InfoLevel},
		{"warn level", zapcore.WarnLevel},
		{"error level", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(testEnv{level: tt.level})
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			if !logger.Core().Enabled(tt.level) {
				t.Errorf("expected level %v to be enabled", tt.level)
			}
			if tt.level > zapcore.DebugLevel && logger.Core().Enabled(tt.level-1) {
				t.Errorf("expected level %v to be disabled", tt.level-1)
			}
		})
	}
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewServerLogger(zap.New(core))

	for _, tt := range []struct {
		name    string
		log     func(error)
		message string
		level   zapcore.Level
	}{
		{"accept error", logger.LogAcceptError, "error accepting connection", zapcore.ErrorLevel},
		{"connection error", logger.LogConnectionError, "connection error", zapcore.WarnLevel},
		{"handler error", logger.LogHandlerError, "unhandled handler error", zapcore.ErrorLevel},
		{"write error", logger.LogWriteError, "error writing response", zapcore.WarnLevel},
	} {
		t.Run(tt.name, func(t *testing.T) {
			tt.log(errors.New("boom"))

			entries := logs.TakeAll()
			if len(entries) != 1 {
				t.Fatalf("expected 1 log entry, got %d", len(entries))
			}
			if entries[0].Message != tt.message {
				t.Errorf("unexpected message: %s", entries[0].Message)
			}
			if entries[0].LoggerName != "bserve" {
				t.Errorf("unexpected logger name: %s", entries[0].LoggerName)
			}
			if entries[0].Level != tt.level {
				t.Errorf("unexpected level: %s", entries[0].Level)
			}
		})
	}
}

func TestWithRequestDep(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	mw := withRequestDep(zap.New(core))
	req := bserve.NewRequest("GET", "/items", bserve.Params{"a": "1"})

	t.Run("served", func(t *testing.T) {
		h := mw(bserve.HandlerFunc(func(ctx context.Context, _ *bserve.Request) (string, error) {
			Log(ctx).Info("inside handler")
			return "ok", nil
		}))

		body, err := h.ServeRoute(context.Background(), req)
		if err != nil || body != "ok" {
			t.Fatalf("unexpected result: %q, %v", body, err)
		}

		entries := logs.TakeAll()
		if len(entries) != 2 {
			t.Fatalf("expected 2 log entries, got %d", len(entries))
		}
		if entries[0].Message != "inside handler" {
			t.Errorf("unexpected message: %s", entries[0].Message)
		}
		if got := entries[0].ContextMap()["path"]; got != "/items" {
			t.Errorf("expected path field on handler log, got %v", got)
		}
		if entries[1].Message != "served route" {
			t.Errorf("unexpected message: %s", entries[1].Message)
		}
		if got := entries[1].ContextMap()["bytes"]; got != int64(2) {
			t.Errorf("expected bytes=2, got %v", got)
		}
	})

	t.Run("declined", func(t *testing.T) {
		h := mw(bserve.Optional(func(*bserve.Request) (string, bool) { return "", false }))

		_, err := h.ServeRoute(context.Background(), req)
		if !errors.Is(err, bserve.ErrDeclined) {
			t.Fatalf("expected declined, got %v", err)
		}

		entries := logs.TakeAll()
		if len(entries) != 1 || entries[0].Message != "route declined" || entries[0].Level != zapcore.DebugLevel {
			t.Fatalf("unexpected entries: %v", entries)
		}
	})

	t.Run("failed", func(t *testing.T) {
		h := mw(bserve.HandlerFunc(func(context.Context, *bserve.Request) (string, error) {
			return "", errors.New("boom")
		}))

		_, err := h.ServeRoute(context.Background(), req)
		if err == nil {
			t.Fatal("expected error")
		}

		entries := logs.TakeAll()
		if len(entries) != 1 || entries[0].Message != "route failed" {
			t.Fatalf("unexpected entries: %v", entries)
		}
		if got := entries[0].ContextMap()["error"]; got != "boom" {
			t.Errorf("expected error field, got %v", got)
		}
	})
}

func TestLogWithoutMiddlewarePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()

	Log(context.Background())
}
