package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/transfertypes"
)

// Config controls a single upload.
type Config struct {
	ContentType       string
	Metadata          map[string]string
	ChecksumAlgorithm transfertypes.ChecksumAlgorithm

	// Threshold is the largest body sent in one PutObject request.
	Threshold int64
}

// Uploader handles S3 upload operations.
type Uploader struct {
	s3Client s3api.S3API
}

// New creates a new Uploader instance.
func New(s3Client s3api.S3API) *Uploader {
	return &Uploader{
		s3Client: s3Client,
	}
}

// Upload sends reader as one object. size may be -1 when unknown, in which
// case the body is buffered to learn it. Bodies larger than the threshold
// would need a multipart upload and are rejected with ErrNotImplemented.
func (u *Uploader) Upload(
	ctx context.Context,
	bucket, key string,
	reader io.Reader,
	size int64,
	config Config,
	startTime time.Time,
) (*transfertypes.UploadResult, error) {
	if size > config.Threshold {
		return nil, tooLarge(bucket, key, size, config.Threshold)
	}

	data, err := io.ReadAll(io.LimitReader(reader, config.Threshold+1))
	if err != nil {
		return nil, errors.NewError("upload", err).WithBucket(bucket).WithKey(key)
	}
	if int64(len(data)) > config.Threshold {
		return nil, tooLarge(bucket, key, int64(len(data)), config.Threshold)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(config.ContentType),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if config.ChecksumAlgorithm != "" {
		input.ChecksumAlgorithm = awstypes.ChecksumAlgorithm(config.ChecksumAlgorithm)
	}
	if len(config.Metadata) > 0 {
		input.Metadata = config.Metadata
	}

	output, err := u.s3Client.PutObject(ctx, input)
	if err != nil {
		return nil, errors.NewError("upload", err).WithBucket(bucket).WithKey(key)
	}

	return &transfertypes.UploadResult{
		Key:       key,
		Size:      int64(len(data)),
		ETag:      aws.ToString(output.ETag),
		VersionID: aws.ToString(output.VersionId),
		Duration:  time.Since(startTime),
	}, nil
}

func tooLarge(bucket, key string, size, threshold int64) error {
	return errors.NewError("upload", errors.ErrNotImplemented).
		WithBucket(bucket).
		WithKey(key).
		WithMessage(fmt.Sprintf("%d bytes exceeds the single-request limit of %d; multipart upload is not supported", size, threshold))
}
