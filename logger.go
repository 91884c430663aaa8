package bserve

import (
	"log"
	"sync/atomic"
	"testing"
)

// Logger can be implemented to get informed about important states.
type Logger interface {
	LogAcceptError(err error)
	LogConnectionError(err error)
	LogHandlerError(err error)
	LogWriteError(err error)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogAcceptError(err error) {
	l.Logger.Printf("bserve: error accepting connection: %s", err)
}

func (l stdLogger) LogConnectionError(err error) {
	l.Logger.Printf("bserve: connection error: %s", err)
}

func (l stdLogger) LogHandlerError(err error) {
	l.Logger.Printf("bserve: unhandled handler error: %s", err)
}

func (l stdLogger) LogWriteError(err error) {
	l.Logger.Printf("bserve: error writing response: %s", err)
}

// NewStdLogger adapts a standard library logger. A nil logger uses [log.Default].
func NewStdLogger(l *log.Logger) Logger {
	if l == nil {
		l = log.Default()
	}

	return stdLogger{l}
}

type nopLogger struct{}

func (nopLogger) LogAcceptError(error)     {}
func (nopLogger) LogConnectionError(error) {}
func (nopLogger) LogHandlerError(error)    {}
func (nopLogger) LogWriteError(error)      {}

// NopLogger discards everything.
func NopLogger() Logger { return nopLogger{} }

type TestLogger struct {
	tb testing.TB

	NumLogAcceptError     int64
	NumLogConnectionError int64
	NumLogHandlerError    int64
	NumLogWriteError      int64
}

func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogAcceptError(err error) {
	atomic.AddInt64(&l.NumLogAcceptError, 1)
	l.tb.Logf("bserve: error accepting connection: %s", err)
}

func (l *TestLogger) LogConnectionError(err error) {
	atomic.AddInt64(&l.NumLogConnectionError, 1)
	l.tb.Logf("bserve: connection error: %s", err)
}

func (l *TestLogger) LogHandlerError(err error) {
	atomic.AddInt64(&l.NumLogHandlerError, 1)
	l.tb.Logf("bserve: unhandled handler error: %s", err)
}

func (l *TestLogger) LogWriteError(err error) {
	atomic.AddInt64(&l.NumLogWriteError, 1)
	l.tb.Logf("bserve: error writing response: %s", err)
}

// HandlerErrors returns the number of handler errors logged so far.
func (l *TestLogger) HandlerErrors() int64 { return atomic.LoadInt64(&l.NumLogHandlerError) }

// ConnectionErrors returns the number of connection errors logged so far.
func (l *TestLogger) ConnectionErrors() int64 { return atomic.LoadInt64(&l.NumLogConnectionError) }

var _ Logger = &TestLogger{}
