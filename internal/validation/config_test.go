package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/transfertypes"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*transfertypes.Config)
		wantField string
	}{
		{"defaults", func(*transfertypes.Config) {}, ""},
		{"minimum part size", func(c *transfertypes.Config) { c.PartSize = transfertypes.MinPartSizeBytes }, ""},
		{"large part size", func(c *transfertypes.Config) { c.PartSize = 5 << 30 }, ""},
		{"part size one below minimum", func(c *transfertypes.Config) { c.PartSize = transfertypes.MinPartSizeBytes - 1 }, "PartSize"},
		{"zero part size", func(c *transfertypes.Config) { c.PartSize = 0 }, "PartSize"},
		{"negative part size", func(c *transfertypes.Config) { c.PartSize = -1 }, "PartSize"},
		{"zero threshold", func(c *transfertypes.Config) { c.MultipartUploadThreshold = 0 }, "MultipartUploadThreshold"},
		{"unknown checksum", func(c *transfertypes.Config) { c.ChecksumAlgorithm = "MD5" }, "ChecksumAlgorithm"},
		{"lowercase checksum", func(c *transfertypes.Config) { c.ChecksumAlgorithm = "crc32" }, "ChecksumAlgorithm"},
		{"empty checksum", func(c *transfertypes.Config) { c.ChecksumAlgorithm = "" }, "ChecksumAlgorithm"},
		{"unknown strategy", func(c *transfertypes.Config) { c.DownloadStrategy = "CHUNK" }, "DownloadStrategy"},
		{"zero concurrency", func(c *transfertypes.Config) { c.Concurrency = 0 }, "Concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := transfertypes.DefaultConfig()
			tt.mutate(&cfg)

			err := ValidateConfig(cfg)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *errors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
			assert.ErrorIs(t, err, errors.ErrInvalidConfig)
		})
	}
}

func TestValidateConfig_EveryChecksumAlgorithm(t *testing.T) {
	for _, alg := range transfertypes.ChecksumAlgorithms() {
		cfg := transfertypes.DefaultConfig()
		cfg.ChecksumAlgorithm = alg
		assert.NoError(t, ValidateConfig(cfg), alg)
	}
}
