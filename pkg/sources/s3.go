package sources

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/pixelgate/pixelgate/pkg/config"
	"github.com/pixelgate/pixelgate/pkg/resolve"
	"github.com/pixelgate/pixelgate/pkg/telemetry"
)

// R2SourceID identifies the R2 bucket source.
const R2SourceID = "r2"

// R2Source serves assets from a Cloudflare R2 bucket through the
// S3-compatible API. It participates in the component lifecycle: bucket
// access is verified during initialization.
type R2Source struct {
	client   *s3.Client
	bucket   string
	prefix   string
	eligible atomic.Bool
	log      *telemetry.Logger
}

// NewR2Client builds an S3 client for an R2 endpoint with static credentials.
func NewR2Client(ctx context.Context, cfg config.R2SourceConfig) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// R2 buckets are addressed by path, not virtual host.
		o.UsePathStyle = true
	})

	return client, nil
}

// NewR2Source creates an R2 source. The client is usually built with
// NewR2Client; tests inject their own.
func NewR2Source(client *s3.Client, cfg config.R2SourceConfig, log *telemetry.Logger) *R2Source {
	if log == nil {
		log = telemetry.NopLogger()
	}
	s := &R2Source{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		log:    log.NewComponentLogger("source-r2"),
	}
	s.eligible.Store(cfg.Enabled)
	return s
}

// ID implements resolve.Source.
func (s *R2Source) ID() string { return R2SourceID }

// Name implements engine.Component.
func (s *R2Source) Name() string { return "source-r2" }

// Eligible implements resolve.Source.
func (s *R2Source) Eligible() bool { return s.eligible.Load() }

// SetEligible flips the source in or out of resolution rotation.
func (s *R2Source) SetEligible(v bool) { s.eligible.Store(v) }

// Init verifies bucket access. The bucket must already exist.
func (s *R2Source) Init(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to access bucket %q: %w", s.bucket, err)
	}

	s.log.WithField("bucket", s.bucket).Info("R2 bucket access verified")
	return nil
}

// Fetch implements resolve.Source. A missing object is reported as
// (nil, nil); the caller owns the returned body.
func (s *R2Source) Fetch(ctx context.Context, key string) (*resolve.Result, error) {
	objectKey := s.prefix + key

	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("s3 get object %q: %w", objectKey, err)
	}

	return &resolve.Result{
		SourceID:    R2SourceID,
		Body:        resp.Body,
		Size:        aws.ToInt64(resp.ContentLength),
		ContentType: aws.ToString(resp.ContentType),
		ETag:        aws.ToString(resp.ETag),
	}, nil
}

// isNoSuchKey reports whether err is an S3 missing-object error.
func isNoSuchKey(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
