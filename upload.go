package s3transfer

import (
	"bufio"
	"context"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/operations/upload"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/transfertypes"
)

// sniffLen is how many leading bytes content detection looks at.
const sniffLen = 512

// Upload uploads data from reader in a single PutObject request, protected by
// the client's checksum algorithm. Bodies larger than the multipart upload
// threshold are rejected with ErrNotImplemented.
//
// Without WithContentType the content type is sniffed from the first bytes of
// the body, falling back to the key's extension.
func (c *Client) Upload(
	ctx context.Context,
	bucket, key string,
	reader io.Reader,
	opts ...transfertypes.UploadOption,
) (*transfertypes.UploadResult, error) {
	if err := c.validateUpload("upload", bucket, key); err != nil {
		return nil, err
	}
	if reader == nil {
		return nil, s3errors.NewError("upload", s3errors.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage("reader cannot be nil")
	}

	config, err := c.uploadConfig("upload", bucket, key, opts)
	if err != nil {
		return nil, err
	}

	if config.ContentType == "" {
		buffered := bufio.NewReaderSize(reader, sniffLen)
		config.ContentType = detectContentType(buffered, key)
		reader = buffered
	}

	return c.uploader.Upload(ctx, bucket, key, reader, -1, config, time.Now())
}

// UploadFile uploads a file from the client's filesystem.
func (c *Client) UploadFile(
	ctx context.Context,
	bucket, key, path string,
	opts ...transfertypes.UploadOption,
) (*transfertypes.UploadResult, error) {
	if err := c.validateUpload("uploadFile", bucket, key); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, s3errors.NewError("uploadFile", s3errors.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage("filepath cannot be empty")
	}

	info, err := c.fs.Stat(path)
	if err != nil {
		return nil, s3errors.NewError("uploadFile", err).WithBucket(bucket).WithKey(key)
	}
	if info.IsDir() {
		return nil, s3errors.NewError("uploadFile", s3errors.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage("filepath points to a directory, not a file")
	}

	config, err := c.uploadConfig("uploadFile", bucket, key, opts)
	if err != nil {
		return nil, err
	}

	file, err := c.fs.Open(path)
	if err != nil {
		return nil, s3errors.NewError("uploadFile", err).WithBucket(bucket).WithKey(key)
	}
	defer file.Close()

	var reader io.Reader = file
	if config.ContentType == "" {
		buffered := bufio.NewReaderSize(file, sniffLen)
		config.ContentType = detectContentType(buffered, path)
		reader = buffered
	}

	return c.uploader.Upload(ctx, bucket, key, reader, info.Size(), config, time.Now())
}

func (c *Client) validateUpload(op, bucket, key string) error {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return s3errors.NewError(op, s3errors.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage(err.Error())
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return s3errors.NewError(op, s3errors.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage(err.Error())
	}
	return nil
}

func (c *Client) uploadConfig(
	op, bucket, key string,
	opts []transfertypes.UploadOption,
) (upload.Config, error) {
	options := &transfertypes.UploadOptionConfig{}
	for _, opt := range opts {
		opt(options)
	}

	if options.ContentType != "" {
		if err := validation.ValidateContentType(options.ContentType); err != nil {
			return upload.Config{}, s3errors.NewError(op, s3errors.ErrInvalidInput).
				WithBucket(bucket).
				WithKey(key).
				WithMessage(err.Error())
		}
	}
	if err := validation.ValidateMetadata(options.Metadata); err != nil {
		return upload.Config{}, s3errors.NewError(op, s3errors.ErrInvalidInput).
			WithBucket(bucket).
			WithKey(key).
			WithMessage(err.Error())
	}

	return upload.Config{
		ContentType:       options.ContentType,
		Metadata:          options.Metadata,
		ChecksumAlgorithm: c.config.ChecksumAlgorithm,
		Threshold:         c.config.MultipartUploadThreshold,
	}, nil
}

// detectContentType sniffs the first bytes of r with mimetype, falling back to
// the extension of name. r is not consumed.
func detectContentType(r *bufio.Reader, name string) string {
	head, _ := r.Peek(sniffLen)
	if len(head) > 0 {
		if mt := mimetype.Detect(head); mt != nil && !mt.Is(transfertypes.DefaultContentType) {
			return mt.String()
		}
	}
	return contentTypeFromExtension(name)
}

func contentTypeFromExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	return transfertypes.DefaultContentType
}
