package errors

import (
	"context"
	"errors"
)

// ErrorCode classifies a transfer failure.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates a requested object does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeConflict indicates the object changed while it was being transferred.
	CodeConflict ErrorCode = "CONFLICT"

	// Permission errors.

	// CodeForbidden indicates the caller lacks permission for the operation.
	CodeForbidden ErrorCode = "FORBIDDEN"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeDataIntegrity indicates the server-reported ranges cannot reconstruct the object.
	CodeDataIntegrity ErrorCode = "DATA_INTEGRITY"

	// Execution errors.

	// CodeCanceled indicates the caller cancelled the transfer.
	CodeCanceled ErrorCode = "CANCELED"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// System errors.

	// CodeInternal indicates a programming error such as an unknown event kind.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeNotImplemented indicates the requested functionality is not implemented.
	CodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// Generic errors.

	// CodeUnknown indicates an unclassified error, usually from the transport.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// CodeOf returns the ErrorCode that best describes err. A nil error yields "".
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidConfig):
		return CodeInvalidConfig
	case errors.Is(err, ErrRangeIntegrity):
		return CodeDataIntegrity
	case errors.Is(err, ErrAborted), errors.Is(err, context.Canceled):
		return CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, ErrObjectNotFound):
		return CodeNotFound
	case errors.Is(err, ErrObjectModified):
		return CodeConflict
	case errors.Is(err, ErrAccessDenied):
		return CodeForbidden
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidBucketName),
		errors.Is(err, ErrInvalidObjectKey), errors.Is(err, ErrInvalidRange):
		return CodeInvalidInput
	case errors.Is(err, ErrUnknownEventKind):
		return CodeInternal
	case errors.Is(err, ErrNotImplemented):
		return CodeNotImplemented
	}
	return CodeUnknown
}
