package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

const (
	defaultRegion        = "us-east-1"
	defaultUploadTimeout = 5 * time.Minute
	connectTimeout       = 30 * time.Second
)

// Options configures the S3-compatible client. Endpoint is optional; when
// set it points at a non-AWS service (Backblaze B2, MinIO, Wasabi).
type Options struct {
	Bucket        string
	Endpoint      string
	Region        string
	KeyID         string
	Secret        string
	UploadTimeout time.Duration
}

// S3Client uploads objects to a single bucket on an S3-compatible service.
type S3Client struct {
	uploader      *manager.Uploader
	bucket        string
	uploadTimeout time.Duration
	logger        zerolog.Logger
}

// Connect authenticates against the store and resolves the bucket. Bad
// credentials surface as ErrAuthFailed and a missing bucket as
// ErrBucketNotFound, both before any file is touched.
func Connect(ctx context.Context, opts Options, logger zerolog.Logger) (*S3Client, error) {
	region := opts.Region
	if region == "" {
		region = defaultRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.KeyID,
			opts.Secret,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if opts.Endpoint != "" {
		endpoint := opts.Endpoint
		if u, err := url.Parse(opts.Endpoint); err == nil && u.Host != "" {
			endpoint = u.Host
		}
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String("https://" + endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(cfg, clientOpts...)

	headCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if _, err := client.HeadBucket(headCtx, &s3.HeadBucketInput{
		Bucket: aws.String(opts.Bucket),
	}); err != nil {
		return nil, classifyHeadError(opts.Bucket, err)
	}

	timeout := opts.UploadTimeout
	if timeout <= 0 {
		timeout = defaultUploadTimeout
	}

	c := &S3Client{
		uploader:      manager.NewUploader(client),
		bucket:        opts.Bucket,
		uploadTimeout: timeout,
		logger:        logger.With().Str("component", "s3_client").Logger(),
	}

	c.logger.Info().
		Str("bucket", opts.Bucket).
		Str("region", region).
		Msg("connected to object store")

	return c, nil
}

// Put uploads one object under the given key, overwriting any previous
// object with that key. The call carries its own bounded timeout so one
// stalled transfer cannot hang the whole run.
func (c *S3Client) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.uploadTimeout)
	defer cancel()

	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}

	c.logger.Debug().Str("key", key).Int64("size", size).Msg("object uploaded")
	return nil
}

// classifyHeadError maps a HeadBucket failure onto the fatal error taxonomy.
func classifyHeadError(bucket string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket":
			return fmt.Errorf("bucket %q: %w", bucket, ErrBucketNotFound)
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "AccessDenied", "Unauthorized":
			return fmt.Errorf("%w: %s", ErrAuthFailed, apiErr.ErrorCode())
		}
	}
	return fmt.Errorf("resolve bucket %q: %w", bucket, err)
}
