package validation

import (
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/transfertypes"
)

// ValidateConfig checks a resolved client configuration.
// It returns a *errors.ConfigError for the first invalid field.
func ValidateConfig(cfg transfertypes.Config) error {
	switch {
	case cfg.PartSize < transfertypes.MinPartSizeBytes:
		return &errors.ConfigError{
			Field:  "PartSize",
			Value:  cfg.PartSize,
			Reason: "must be at least 5 MiB (5242880 bytes)",
		}
	case cfg.MultipartUploadThreshold <= 0:
		return &errors.ConfigError{
			Field:  "MultipartUploadThreshold",
			Value:  cfg.MultipartUploadThreshold,
			Reason: "must be positive",
		}
	case !cfg.ChecksumAlgorithm.Valid():
		return &errors.ConfigError{
			Field:  "ChecksumAlgorithm",
			Value:  cfg.ChecksumAlgorithm,
			Reason: "must be one of CRC32, CRC32C, CRC64NVME, SHA1, SHA256",
		}
	case !cfg.DownloadStrategy.Valid():
		return &errors.ConfigError{
			Field:  "DownloadStrategy",
			Value:  cfg.DownloadStrategy,
			Reason: "must be PART or RANGE",
		}
	case cfg.Concurrency < 1:
		return &errors.ConfigError{
			Field:  "Concurrency",
			Value:  cfg.Concurrency,
			Reason: "must be at least 1",
		}
	}
	return nil
}
