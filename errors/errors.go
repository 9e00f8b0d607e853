// Package errors provides error types and handling for S3 transfer operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a transfer operation error with context about the operation that failed.
// It wraps the underlying AWS SDK error with additional context for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "download", "head", "upload")
	Op string

	// Bucket is the S3 bucket name (if applicable)
	Bucket string

	// Key is the S3 object key (if applicable)
	Key string

	// Err is the underlying error from the AWS SDK or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	switch {
	case e.Bucket != "" && e.Key != "":
		return fmt.Sprintf("s3transfer.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	case e.Bucket != "":
		return fmt.Sprintf("s3transfer.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	case e.Key != "":
		return fmt.Sprintf("s3transfer.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("s3transfer.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{Op: op, Bucket: bucket, Key: key, Err: err}
}

// Sentinel errors for common transfer failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("s3transfer: object not found")

	// ErrObjectModified indicates the object changed between sub-requests (HTTP 412)
	ErrObjectModified = errors.New("s3transfer: object modified during transfer")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("s3transfer: access denied")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("s3transfer: invalid input")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("s3transfer: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("s3transfer: invalid object key")

	// ErrInvalidRange indicates that the requested range is invalid or unsatisfiable
	ErrInvalidRange = errors.New("s3transfer: invalid range")

	// ErrNotImplemented indicates that the requested feature is not implemented
	ErrNotImplemented = errors.New("s3transfer: not implemented")

	// ErrInvalidConfig is matched by every ConfigError
	ErrInvalidConfig = errors.New("s3transfer: invalid configuration")

	// ErrAborted is matched by every AbortError
	ErrAborted = errors.New("s3transfer: transfer aborted")

	// ErrRangeIntegrity is matched by range sequence, incomplete and malformed range errors
	ErrRangeIntegrity = errors.New("s3transfer: range integrity violation")

	// ErrUnknownEventKind is matched by every UnknownEventKindError
	ErrUnknownEventKind = errors.New("s3transfer: unknown event kind")
)

// IsObjectNotFound checks if an error indicates that an object was not found.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsObjectModified reports whether the object changed while it was being transferred.
func IsObjectModified(err error) bool {
	return errors.Is(err, ErrObjectModified)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsAborted reports whether the transfer was cancelled by the caller.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}

// IsRangeIntegrity reports whether err is a data-integrity failure detected while
// validating server-reported content ranges, as opposed to a transport failure.
func IsRangeIntegrity(err error) bool {
	return errors.Is(err, ErrRangeIntegrity)
}
