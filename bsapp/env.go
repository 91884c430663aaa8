package bsapp

import (
	"time"

	"github.com/advdv/bserve"
	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
)

// Environment defines the interface that all environment configurations must implement.
// Embed BaseEnvironment in your struct to satisfy this interface.
type Environment interface {
	addr() string
	serviceName() string
	logLevel() zapcore.Level
	otelExporter() string
	awsRegion() string
	staticBucket() string
	staticPrefix() string
	serverOptions() []bserve.Option
}

// BaseEnvironment contains the environment variables every app understands.
// Embed this in your custom environment struct.
type BaseEnvironment struct {
	Addr         string        `env:"BS_ADDR" envDefault:"127.0.0.1:8080"`
	ServiceName  string        `env:"BS_SERVICE_NAME,required"`
	LogLevel     zapcore.Level `env:"BS_LOG_LEVEL" envDefault:"info"`
	OtelExporter string        `env:"BS_OTEL_EXPORTER" envDefault:"none"`

	// DocRoot is the directory static files are served from. Empty means the working directory at startup.
	DocRoot         string        `env:"BS_DOC_ROOT"`
	MaxHeaderBytes  int           `env:"BS_MAX_HEADER_BYTES" envDefault:"65536"`
	MaxBodyBytes    int           `env:"BS_MAX_BODY_BYTES" envDefault:"1048576"`
	MaxConns        int           `env:"BS_MAX_CONNS" envDefault:"0"`
	ReadTimeout     time.Duration `env:"BS_READ_TIMEOUT" envDefault:"0s"`
	WriteTimeout    time.Duration `env:"BS_WRITE_TIMEOUT" envDefault:"0s"`
	BodyIdleTimeout time.Duration `env:"BS_BODY_IDLE_TIMEOUT" envDefault:"250ms"`
	ContentLength   bool          `env:"BS_CONTENT_LENGTH" envDefault:"false"`
	PercentDecoding bool          `env:"BS_PERCENT_DECODING" envDefault:"false"`

	// StaticBucket switches the static fallback from DocRoot to an S3 bucket.
	StaticBucket string `env:"BS_STATIC_BUCKET"`
	StaticPrefix string `env:"BS_STATIC_PREFIX"`
	AWSRegion    string `env:"AWS_REGION"`
}

func (e BaseEnvironment) addr() string {
	return e.Addr
}

func (e BaseEnvironment) serviceName() string {
	return e.ServiceName
}

func (e BaseEnvironment) logLevel() zapcore.Level {
	return e.LogLevel
}

func (e BaseEnvironment) otelExporter() string {
	return e.OtelExporter
}

func (e BaseEnvironment) awsRegion() string {
	return e.AWSRegion
}

func (e BaseEnvironment) staticBucket() string {
	return e.StaticBucket
}

func (e BaseEnvironment) staticPrefix() string {
	return e.StaticPrefix
}

// serverOptions translates the limits and switches into server options.
func (e BaseEnvironment) serverOptions() []bserve.Option {
	opts := []bserve.Option{
		bserve.WithMaxHeaderBytes(e.MaxHeaderBytes),
		bserve.WithMaxBodyBytes(e.MaxBodyBytes),
		bserve.WithMaxConns(e.MaxConns),
		bserve.WithReadTimeout(e.ReadTimeout),
		bserve.WithWriteTimeout(e.WriteTimeout),
		bserve.WithBodyIdleTimeout(e.BodyIdleTimeout),
	}

	if e.DocRoot != "" {
		opts = append(opts, bserve.WithDocumentRoot(e.DocRoot))
	}

	if e.ContentLength {
		opts = append(opts, bserve.WithContentLength())
	}

	if e.PercentDecoding {
		opts = append(opts, bserve.WithPercentDecoding())
	}

	return opts
}

var _ Environment = BaseEnvironment{}

// ParseEnv parses environment variables into the given Environment type.
func ParseEnv[E Environment]() func() (E, error) {
	return func() (e E, err error) {
		if err := env.Parse(&e); err != nil {
			return e, errors.Wrap(err, "failed to parse environment")
		}
		return e, nil
	}
}
