package errors

import (
	"fmt"
)

// ConfigError reports an invalid construction parameter.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("s3transfer: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// Is makes ConfigError match ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// AbortError reports that the caller's context was done before a sub-request was issued.
type AbortError struct {
	Cause error
}

func (e *AbortError) Error() string {
	if e.Cause == nil {
		return ErrAborted.Error()
	}
	return fmt.Sprintf("%s: %v", ErrAborted, e.Cause)
}

// Unwrap exposes both ErrAborted and the context error.
func (e *AbortError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrAborted}
	}
	return []error{ErrAborted, e.Cause}
}

// RangeSequenceError reports a part whose first byte does not follow the previous part.
type RangeSequenceError struct {
	Part     int
	Expected int64
	Actual   int64
}

func (e *RangeSequenceError) Error() string {
	return fmt.Sprintf("s3transfer: part %d: expected range start %d, got %d", e.Part, e.Expected, e.Actual)
}

func (e *RangeSequenceError) Is(target error) bool {
	return target == ErrRangeIntegrity
}

// IncompleteRangeError reports that the reconstructed object stops short of its declared size.
type IncompleteRangeError struct {
	Part  int
	End   int64
	Total int64
}

func (e *IncompleteRangeError) Error() string {
	return fmt.Sprintf("s3transfer: part %d: range ends at byte %d, object size is %d", e.Part, e.End, e.Total)
}

func (e *IncompleteRangeError) Is(target error) bool {
	return target == ErrRangeIntegrity
}

// MalformedRangeError reports a content-range descriptor that could not be parsed.
type MalformedRangeError struct {
	Value string
	Err   error
}

func (e *MalformedRangeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("s3transfer: malformed content range %q", e.Value)
	}
	return fmt.Sprintf("s3transfer: malformed content range %q: %v", e.Value, e.Err)
}

func (e *MalformedRangeError) Unwrap() error {
	return e.Err
}

func (e *MalformedRangeError) Is(target error) bool {
	return target == ErrRangeIntegrity
}

// UnknownEventKindError is returned when registering a listener for an unrecognized kind.
type UnknownEventKindError struct {
	Kind string
}

func (e *UnknownEventKindError) Error() string {
	return fmt.Sprintf("s3transfer: unknown event kind %q", e.Kind)
}

func (e *UnknownEventKindError) Is(target error) bool {
	return target == ErrUnknownEventKind
}
