// Package source resolves remote media URIs to local files the editing
// operations can work on.
//
// Only s3:// URIs (AWS S3 and S3-compatible stores) are supported; plain
// paths pass through untouched. Authentication uses the AWS SDK default
// credential chain unless explicit keys are configured.
package source

import (
	"errors"
	"fmt"
)

// Sentinel errors for source resolution.
var (
	// ErrNotFound indicates the requested object does not exist.
	ErrNotFound = errors.New("source object not found")

	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrBucketNotFound indicates the bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrThrottled indicates the request was rate limited by the store.
	ErrThrottled = errors.New("request throttled")

	// ErrUnsupportedScheme indicates a URI scheme other than s3.
	ErrUnsupportedScheme = errors.New("unsupported source scheme")
)

// FetchError wraps store-specific errors with context.
type FetchError struct {
	// Op is the operation that failed (e.g. "Fetch").
	Op string

	// Bucket and Key identify the object, when applicable.
	Bucket string
	Key    string

	// Err is the underlying error.
	Err error
}

func (e *FetchError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("s3 %s: %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("s3 %s: %s: %v", e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("s3 %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err indicates a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
