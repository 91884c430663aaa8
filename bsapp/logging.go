package bsapp

import (
	"github.com/advdv/bserve"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger creates a zap logger configured from the environment.
// Uses JSON encoding; BS_LOG_LEVEL controls the level (debug, info, warn, error).
func NewLogger(env Environment) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(env.logLevel())
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logs, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return logs.With(zap.String("service", env.serviceName())), nil
}

type zapLogger struct{ *zap.Logger }

func (l zapLogger) LogAcceptError(err error) {
	l.Logger.Error("error accepting connection", zap.Error(err))
}

func (l zapLogger) LogConnectionError(err error) {
	l.Logger.Warn("connection error", zap.Error(err))
}

func (l zapLogger) LogHandlerError(err error) {
	l.Logger.Error("unhandled handler error", zap.Error(err))
}

func (l zapLogger) LogWriteError(err error) {
	l.Logger.Warn("error writing response", zap.Error(err))
}

// NewServerLogger adapts l to the logger the server reports its errors to.
func NewServerLogger(l *zap.Logger) bserve.Logger {
	return zapLogger{l.Named("bserve")}
}
