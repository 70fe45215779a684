package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"golang.org/x/time/rate"
)

// Config configures the S3 fetcher.
//
// Authentication follows the AWS SDK v2 default chain unless explicit
// credentials are set. For S3-compatible stores (Wasabi, MinIO), set
// Endpoint and typically ForcePathStyle.
type Config struct {
	// Region is the AWS region. Empty lets the SDK resolve it from
	// environment or profile.
	Region string

	// Endpoint is a custom endpoint URL for S3-compatible stores.
	Endpoint string

	// Profile is the AWS profile name from shared config.
	Profile string

	// AccessKeyID/SecretAccessKey are explicit credentials. Both or
	// neither must be set.
	AccessKeyID     string
	SecretAccessKey string

	// ForcePathStyle forces path-style URLs (bucket in path). Required
	// for most S3-compatible stores.
	ForcePathStyle bool

	// BytesPerSecond throttles downloads. Zero disables throttling.
	BytesPerSecond int
}

// Validate checks credential pairing.
func (c *Config) Validate() error {
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return fmt.Errorf("access key id and secret access key must be set together")
	}
	return nil
}

// S3Fetcher downloads s3:// objects into a local directory.
type S3Fetcher struct {
	client  s3API
	limiter *rate.Limiter
}

// s3API is the slice of the S3 client the fetcher uses, for test fakes.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Fetcher builds a fetcher from config, using the SDK default
// credential chain when no explicit credentials are given.
func NewS3Fetcher(ctx context.Context, cfg Config) (*S3Fetcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &FetchError{Op: "New", Err: err}
	}

	s3Opts := []func(*s3.Options){
		func(o *s3.Options) {
			if cfg.ForcePathStyle {
				o.UsePathStyle = true
			}
		},
	}
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	f := &S3Fetcher{client: s3.NewFromConfig(awsCfg, s3Opts...)}
	if cfg.BytesPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.BytesPerSecond), cfg.BytesPerSecond)
	}
	return f, nil
}

// Fetch downloads s3://bucket/key into destDir and returns the local path.
// The file keeps the object's base name.
func (f *S3Fetcher) Fetch(ctx context.Context, rawURI, destDir string) (string, error) {
	bucket, key, err := ParseS3URI(rawURI)
	if err != nil {
		return "", err
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", wrapError("Fetch", bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()

	local := filepath.Join(destDir, filepath.Base(key))
	dst, err := os.Create(local)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", local, err)
	}

	if err := f.copyThrottled(ctx, dst, out.Body); err != nil {
		_ = dst.Close()
		_ = os.Remove(local)
		return "", wrapError("Fetch", bucket, key, err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", local, err)
	}
	return local, nil
}

// copyThrottled streams body to dst, pacing reads by the configured byte
// rate when one is set.
func (f *S3Fetcher) copyThrottled(ctx context.Context, dst io.Writer, body io.Reader) error {
	if f.limiter == nil {
		_, err := io.Copy(dst, body)
		return err
	}

	buf := make([]byte, 256*1024)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if err := f.limiter.WaitN(ctx, n); err != nil {
				return err
			}
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			return rerr
		}
	}
}

// ParseS3URI splits s3://bucket/key into its parts.
func ParseS3URI(rawURI string) (bucket, key string, err error) {
	u, err := url.Parse(strings.TrimSpace(rawURI))
	if err != nil {
		return "", "", fmt.Errorf("parse source uri %q: %w", rawURI, err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("%w: %q (want s3://bucket/key)", ErrUnsupportedScheme, rawURI)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("source uri %q must name a bucket and key", rawURI)
	}
	return bucket, key, nil
}

// IsRemote reports whether the path needs fetching before editing.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// wrapError maps SDK failures onto the package sentinels.
func wrapError(op, bucket, key string, err error) error {
	wrapped := &FetchError{Op: op, Bucket: bucket, Key: key, Err: err}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound):
		wrapped.Err = ErrNotFound
		return wrapped
	case errors.As(err, &noSuchBucket):
		wrapped.Err = ErrBucketNotFound
		return wrapped
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			wrapped.Err = ErrNotFound
		case "NoSuchBucket":
			wrapped.Err = ErrBucketNotFound
		case "AccessDenied", "Forbidden":
			wrapped.Err = ErrAccessDenied
		case "InvalidAccessKeyId", "SignatureDoesNotMatch":
			wrapped.Err = ErrInvalidCredentials
		case "SlowDown", "Throttling", "RequestLimitExceeded":
			wrapped.Err = ErrThrottled
		}
	}
	return wrapped
}
