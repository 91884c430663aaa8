package bsapp

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/advdv/bserve"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

// S3GetObjectAPI is the part of the S3 client the file source needs.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3FileSource serves static files from the objects under a prefix of a bucket.
type S3FileSource struct {
	client S3GetObjectAPI
	bucket string
	prefix string
}

// NewS3FileSource reads objects from bucket. A non-empty prefix is joined to every name with a slash.
func NewS3FileSource(client S3GetObjectAPI, bucket, prefix string) *S3FileSource {
	return &S3FileSource{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key a static file name maps to.
func (s *S3FileSource) Key(name string) string {
	if s.prefix == "" {
		return name
	}

	return s.prefix + "/" + name
}

// ReadFile implements bserve.FileSource.
func (s *S3FileSource) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if name == "" || strings.HasSuffix(name, "/") {
		return nil, errors.Mark(errors.Newf("%q is not a file", name), bserve.ErrStaticFile)
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(name)),
	})
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "get object %q", s.Key(name)), bserve.ErrStaticFile)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read object %q", s.Key(name)), bserve.ErrStaticFile)
	}

	return data, nil
}

var _ bserve.FileSource = (*S3FileSource)(nil)

const awsConfigTimeout = 10 * time.Second

// NewAWSConfig loads the default AWS SDK v2 configuration, using region when it is set.
func NewAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// fileSourceParams holds the dependencies for the static file source.
type fileSourceParams struct {
	fx.In

	Env        Environment
	TracerProv trace.TracerProvider
	Propagator propagation.TextMapPropagator
}

// provideFileSource returns an S3 file source when a bucket is configured and nil otherwise, in which case the
// server reads from its document root.
func provideFileSource(p fileSourceParams) (bserve.FileSource, error) {
	bucket := p.Env.staticBucket()
	if bucket == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), awsConfigTimeout)
	defer cancel()

	cfg, err := NewAWSConfig(ctx, p.Env.awsRegion())
	if err != nil {
		return nil, errors.Wrap(err, "failed to load aws config")
	}

	otelaws.AppendMiddlewares(&cfg.APIOptions,
		otelaws.WithTracerProvider(p.TracerProv),
		otelaws.WithTextMapPropagator(p.Propagator),
	)

	return NewS3FileSource(s3.NewFromConfig(cfg), bucket, p.Env.staticPrefix()), nil
}
