// Package transfertypes provides shared type definitions for the transfer module.
package transfertypes

import (
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/events"
)

// Size limits and defaults.
const (
	// MinPartSizeBytes is the smallest part size S3 accepts for multipart objects.
	MinPartSizeBytes int64 = 5 * 1024 * 1024

	// DefaultPartSizeBytes is the default width of a download window or upload part.
	DefaultPartSizeBytes int64 = 8 * 1024 * 1024

	// DefaultMultipartUploadThresholdBytes is the size above which uploads would go multipart.
	DefaultMultipartUploadThresholdBytes int64 = 16 * 1024 * 1024

	// DefaultConcurrency bounds the number of in-flight sub-requests per download.
	DefaultConcurrency = 5

	// DefaultContentType is used when no content type is set or detected.
	DefaultContentType = "application/octet-stream"
)

// ChecksumAlgorithm names the checksum used to protect uploaded objects.
type ChecksumAlgorithm string

// Supported checksum algorithms.
const (
	ChecksumCRC32     ChecksumAlgorithm = "CRC32"
	ChecksumCRC32C    ChecksumAlgorithm = "CRC32C"
	ChecksumCRC64NVME ChecksumAlgorithm = "CRC64NVME"
	ChecksumSHA1      ChecksumAlgorithm = "SHA1"
	ChecksumSHA256    ChecksumAlgorithm = "SHA256"
)

// ChecksumAlgorithms returns every supported checksum algorithm.
func ChecksumAlgorithms() []ChecksumAlgorithm {
	return []ChecksumAlgorithm{
		ChecksumCRC32, ChecksumCRC32C, ChecksumCRC64NVME, ChecksumSHA1, ChecksumSHA256,
	}
}

// Valid reports whether a is a supported checksum algorithm.
func (a ChecksumAlgorithm) Valid() bool {
	for _, known := range ChecksumAlgorithms() {
		if a == known {
			return true
		}
	}
	return false
}

// DownloadStrategy selects how a large object is split into sub-requests.
type DownloadStrategy string

const (
	// StrategyPart follows the object's stored part layout (PartNumber requests).
	StrategyPart DownloadStrategy = "PART"

	// StrategyRange requests fixed-width byte windows of PartSize.
	StrategyRange DownloadStrategy = "RANGE"
)

// Valid reports whether s is a known strategy.
func (s DownloadStrategy) Valid() bool {
	return s == StrategyPart || s == StrategyRange
}

// Config holds configuration for the transfer client.
// It is resolved once at construction and never mutated afterwards.
type Config struct {
	PartSize                 int64
	MultipartUploadThreshold int64
	ChecksumValidation       bool
	ChecksumAlgorithm        ChecksumAlgorithm
	DownloadStrategy         DownloadStrategy
	Concurrency              int

	Region          string
	Endpoint        string
	ForcePathStyle  bool
	CustomAWSConfig *aws.Config

	Logger     *slog.Logger  // nil disables logging
	Filesystem fs.Filesystem // Filesystem abstraction for file operations
}

// DefaultConfig returns a Config populated with documented defaults.
func DefaultConfig() Config {
	return Config{
		PartSize:                 DefaultPartSizeBytes,
		MultipartUploadThreshold: DefaultMultipartUploadThresholdBytes,
		ChecksumValidation:       true,
		ChecksumAlgorithm:        ChecksumCRC32,
		DownloadStrategy:         StrategyPart,
		Concurrency:              DefaultConcurrency,
	}
}

// DownloadRequest identifies the object (or slice of it) to download.
type DownloadRequest struct {
	Bucket    string
	Key       string
	VersionID string

	// Range is an optional "bytes=start-end" or "bytes=start-" directive.
	Range string

	// PartNumber selects a single stored part and disables multipart expansion.
	PartNumber int32
}

// DownloadResponse is the result of a download: merged metadata plus the joined body.
type DownloadResponse struct {
	// Output holds metadata merged from every sub-response. Output.Body is always nil;
	// ContentLength and ContentRange describe Body.
	Output *s3.GetObjectOutput

	// Body yields the object bytes in order. It can be consumed once and must be closed.
	Body io.ReadCloser
}

// ObjectMetadata contains detailed metadata about an S3 object.
type ObjectMetadata struct {
	ContentType   string
	ContentLength int64
	LastModified  time.Time
	ETag          string
	VersionID     string
	PartsCount    int32
	Metadata      map[string]string
}

// DownloadResult contains the result of a DownloadTo or DownloadFile call.
type DownloadResult struct {
	Key       string
	Size      int64
	ETag      string
	VersionID string
	Duration  time.Duration
}

// UploadResult contains the result of an upload operation.
type UploadResult struct {
	Key       string
	Size      int64
	ETag      string
	VersionID string
	Duration  time.Duration
}

// CallListener is an event listener registered for the duration of one download call.
type CallListener struct {
	Kind     events.Kind
	Listener events.Listener
	Config   events.ListenerConfig
}

// DownloadOptionConfig holds configuration for download operations via functional options.
type DownloadOptionConfig struct {
	Listeners []CallListener
}

// UploadOptionConfig holds configuration for upload operations via functional options.
type UploadOptionConfig struct {
	ContentType string
	Metadata    map[string]string
}

type (
	// Option is a functional option for configuring the transfer client.
	Option func(*Config)
	// DownloadOption is a functional option for configuring a single download.
	DownloadOption func(*DownloadOptionConfig)
	// UploadOption is a functional option for configuring a single upload.
	UploadOption func(*UploadOptionConfig)
	// ListenerOption is a functional option for configuring a listener registration.
	ListenerOption func(*events.ListenerConfig)
)
