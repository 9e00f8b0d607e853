package s3transfer

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/input-output-hk/catalyst-forge-libs/fs"

	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/events"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/transfertypes"
)

// WithPartSize sets the width of a RANGE download window.
// Default is 8MB. Values below 5MB are rejected by New.
func WithPartSize(partSize int64) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.PartSize = partSize
	}
}

// WithMultipartUploadThreshold sets the largest body Upload sends in one request.
// Default is 16MB.
func WithMultipartUploadThreshold(threshold int64) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.MultipartUploadThreshold = threshold
	}
}

// WithChecksumValidation enables or disables response checksum validation on downloads.
// Default is enabled.
func WithChecksumValidation(enabled bool) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.ChecksumValidation = enabled
	}
}

// WithChecksumAlgorithm sets the checksum computed for uploads. Default is CRC32.
func WithChecksumAlgorithm(algorithm transfertypes.ChecksumAlgorithm) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.ChecksumAlgorithm = algorithm
	}
}

// WithDownloadStrategy selects PART (follow the stored part layout) or RANGE
// (fixed-width byte windows). Default is PART.
func WithDownloadStrategy(strategy transfertypes.DownloadStrategy) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.DownloadStrategy = strategy
	}
}

// WithConcurrency bounds how many sub-requests of one download are in flight.
// Default is 5.
func WithConcurrency(concurrency int) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.Concurrency = concurrency
	}
}

// WithRegion sets the AWS region for S3 operations.
// If not specified, uses the default AWS region from the credential chain.
func WithRegion(region string) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.Region = region
	}
}

// WithEndpoint sets a custom S3 endpoint URL.
// This is useful for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces the use of path-style URLs instead of virtual-hosted style.
func WithForcePathStyle(forcePathStyle bool) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithAWSConfig allows providing a custom AWS configuration.
// This overrides the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.CustomAWSConfig = config
	}
}

// WithLogger sets the structured logger. A nil logger disables logging.
func WithLogger(logger *slog.Logger) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.Logger = logger
	}
}

// WithFilesystem sets a custom filesystem implementation for file operations.
// If not specified, defaults to the OS filesystem.
func WithFilesystem(filesystem fs.Filesystem) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.Filesystem = filesystem
	}
}

// WithOnce removes the listener before its first invocation.
func WithOnce() transfertypes.ListenerOption {
	return func(c *events.ListenerConfig) {
		c.Once = true
	}
}

// WithSignal removes the listener when ctx is done. If ctx is already done
// the listener is never added.
func WithSignal(ctx context.Context) transfertypes.ListenerOption {
	return func(c *events.ListenerConfig) {
		c.Signal = ctx
	}
}

// WithDownloadListener registers l for kind for the duration of one download.
func WithDownloadListener(
	kind events.Kind,
	l events.Listener,
	opts ...transfertypes.ListenerOption,
) transfertypes.DownloadOption {
	return func(c *transfertypes.DownloadOptionConfig) {
		c.Listeners = append(c.Listeners, transfertypes.CallListener{
			Kind:     kind,
			Listener: l,
			Config:   listenerConfig(opts),
		})
	}
}

// WithContentType sets the content type for upload operations.
func WithContentType(contentType string) transfertypes.UploadOption {
	return func(c *transfertypes.UploadOptionConfig) {
		c.ContentType = contentType
	}
}

// WithMetadata sets metadata for upload operations.
func WithMetadata(metadata map[string]string) transfertypes.UploadOption {
	return func(c *transfertypes.UploadOptionConfig) {
		if c.Metadata == nil {
			c.Metadata = make(map[string]string)
		}
		for k, v := range metadata {
			c.Metadata[k] = v
		}
	}
}

func listenerConfig(opts []transfertypes.ListenerOption) events.ListenerConfig {
	var cfg events.ListenerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
