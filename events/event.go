package events

import (
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Kind identifies the type of a transfer event.
type Kind string

// Event kinds.
const (
	KindInitiated        Kind = "initiated"
	KindBytesTransferred Kind = "bytesTransferred"
	KindComplete         Kind = "complete"
	KindFailed           Kind = "failed"
)

// Kinds returns every event kind in lifecycle order.
func Kinds() []Kind {
	return []Kind{KindInitiated, KindBytesTransferred, KindComplete, KindFailed}
}

// Valid reports whether k is a known event kind.
func (k Kind) Valid() bool {
	switch k {
	case KindInitiated, KindBytesTransferred, KindComplete, KindFailed:
		return true
	}
	return false
}

// Progress is a snapshot of a transfer's progress.
type Progress struct {
	TransferredBytes int64
	// TotalBytes is -1 when the total size is not known yet.
	TotalBytes int64
}

// Event is implemented by every transfer event.
type Event interface {
	Kind() Kind
}

// InitiatedEvent is dispatched once per download, after the first response arrives.
type InitiatedEvent struct {
	Request  *s3.GetObjectInput
	Progress Progress
}

// BytesTransferredEvent is dispatched after each chunk read from a part body.
type BytesTransferredEvent struct {
	Request   *s3.GetObjectInput
	Progress  Progress
	PartIndex int
}

// CompleteEvent is dispatched once after the last byte of the object has been read.
type CompleteEvent struct {
	Request  *s3.GetObjectInput
	Progress Progress
	// Response holds the merged metadata of every sub-response; its Body is nil.
	Response *s3.GetObjectOutput
}

// FailedEvent is dispatched when a sub-request or a body read fails.
type FailedEvent struct {
	Request  *s3.GetObjectInput
	Progress Progress
	Err      error
}

func (InitiatedEvent) Kind() Kind        { return KindInitiated }
func (BytesTransferredEvent) Kind() Kind { return KindBytesTransferred }
func (CompleteEvent) Kind() Kind         { return KindComplete }
func (FailedEvent) Kind() Kind           { return KindFailed }
