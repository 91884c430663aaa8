package bsapptest

import "testing"

// Env provides a chainable builder for setting [bsapp.BaseEnvironment] env vars
// via t.Setenv. Create one with [SetBaseEnv].
type Env struct {
	t testing.TB
}

// SetBaseEnv sets the [bsapp.BaseEnvironment] env vars to test defaults.
// The address is required because tests that run in parallel need their own.
//
// Defaults:
//   - BS_SERVICE_NAME: "test"
//   - BS_LOG_LEVEL: "error"
//   - BS_OTEL_EXPORTER: "none"
//   - BS_DOC_ROOT: a fresh temporary directory
//   - BS_STATIC_BUCKET: "" (static files come from BS_DOC_ROOT)
//   - AWS_REGION: "us-east-1"
//   - AWS_ACCESS_KEY_ID: "test"
//   - AWS_SECRET_ACCESS_KEY: "test"
//
// Use the returned [Env] to override individual values:
//
//	bsapptest.SetBaseEnv(t, "127.0.0.1:18085").ServiceName("api").ContentLength()
func SetBaseEnv(t testing.TB, addr string) *Env {
	t.Helper()
	t.Setenv("BS_ADDR", addr)
	t.Setenv("BS_SERVICE_NAME", "test")
	t.Setenv("BS_LOG_LEVEL", "error")
	t.Setenv("BS_OTEL_EXPORTER", "none")
	t.Setenv("BS_DOC_ROOT", t.TempDir())
	t.Setenv("BS_STATIC_BUCKET", "")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	return &Env{t: t}
}

// ServiceName overrides BS_SERVICE_NAME.
func (e *Env) ServiceName(name string) *Env {
	e.t.Helper()
	e.t.Setenv("BS_SERVICE_NAME", name)
	return e
}

// DocRoot overrides BS_DOC_ROOT.
func (e *Env) DocRoot(dir string) *Env {
	e.t.Helper()
	e.t.Setenv("BS_DOC_ROOT", dir)
	return e
}

// LogLevel overrides BS_LOG_LEVEL.
func (e *Env) LogLevel(level string) *Env {
	e.t.Helper()
	e.t.Setenv("BS_LOG_LEVEL", level)
	return e
}

// OtelExporter overrides BS_OTEL_EXPORTER.
func (e *Env) OtelExporter(exporter string) *Env {
	e.t.Helper()
	e.t.Setenv("BS_OTEL_EXPORTER", exporter)
	return e
}

// StaticBucket overrides BS_STATIC_BUCKET and BS_STATIC_PREFIX.
func (e *Env) StaticBucket(bucket, prefix string) *Env {
	e.t.Helper()
	e.t.Setenv("BS_STATIC_BUCKET", bucket)
	e.t.Setenv("BS_STATIC_PREFIX", prefix)
	return e
}

// ContentLength sets BS_CONTENT_LENGTH so responses carry a Content-Length header.
func (e *Env) ContentLength() *Env {
	e.t.Helper()
	e.t.Setenv("BS_CONTENT_LENGTH", "true")
	return e
}

// PercentDecoding sets BS_PERCENT_DECODING.
func (e *Env) PercentDecoding() *Env {
	e.t.Helper()
	e.t.Setenv("BS_PERCENT_DECODING", "true")
	return e
}
