package s3transfer

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/pool"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/transfertypes"
)

// Download fetches an object, splitting it into sub-requests according to the
// client's download strategy.
//
// It returns once the first sub-response has arrived. Output carries the
// first sub-response's metadata, rewritten to describe the whole download;
// the metadata merged across every sub-response is delivered in
// events.CompleteEvent.Response. Body yields the bytes in order and must be closed.
// Closing Body early cancels the remaining sub-requests. Read errors from Body
// report integrity failures (errors.ErrRangeIntegrity), objects modified
// during the download (errors.ErrObjectModified) and cancellation
// (errors.ErrAborted).
//
// Errors:
//   - ErrInvalidInput: If the request is nil, the bucket is empty or the key is invalid
//   - ErrInvalidRange: If Range is not a "bytes=" directive
//   - ErrAborted: If ctx is done before the first sub-request is issued
//   - ErrObjectNotFound, ErrAccessDenied: From the first sub-request
//
// Example:
//
//	resp, err := client.Download(ctx, &transfertypes.DownloadRequest{
//	    Bucket: "my-bucket",
//	    Key:    "large.bin",
//	})
//	if err != nil {
//	    return err
//	}
//	defer resp.Body.Close()
//	_, err = io.Copy(dst, resp.Body)
func (c *Client) Download(
	ctx context.Context,
	req *transfertypes.DownloadRequest,
	opts ...transfertypes.DownloadOption,
) (*transfertypes.DownloadResponse, error) {
	if err := validateRequest("download", req); err != nil {
		return nil, err
	}

	config := &transfertypes.DownloadOptionConfig{}
	for _, opt := range opts {
		opt(config)
	}

	return c.manager.Download(ctx, req, config.Listeners)
}

// DownloadTo streams an object into writer.
func (c *Client) DownloadTo(
	ctx context.Context,
	req *transfertypes.DownloadRequest,
	writer io.Writer,
	opts ...transfertypes.DownloadOption,
) (*transfertypes.DownloadResult, error) {
	if writer == nil {
		return nil, s3errors.NewError("downloadTo", s3errors.ErrInvalidInput).
			WithMessage("writer cannot be nil")
	}

	startTime := time.Now()
	resp, err := c.Download(ctx, req, opts...)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	n, err := pool.Copy(writer, resp.Body)
	if err != nil {
		return nil, s3errors.NewError("downloadTo", err).WithBucket(req.Bucket).WithKey(req.Key)
	}

	return &transfertypes.DownloadResult{
		Key:       req.Key,
		Size:      n,
		ETag:      aws.ToString(resp.Output.ETag),
		VersionID: aws.ToString(resp.Output.VersionId),
		Duration:  time.Since(startTime),
	}, nil
}

// DownloadFile downloads an object to path on the client's filesystem,
// creating parent directories as needed. A partially written file is removed
// when the download fails.
func (c *Client) DownloadFile(
	ctx context.Context,
	req *transfertypes.DownloadRequest,
	path string,
	opts ...transfertypes.DownloadOption,
) (*transfertypes.DownloadResult, error) {
	if err := validateRequest("downloadFile", req); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, s3errors.NewError("downloadFile", s3errors.ErrInvalidInput).
			WithBucket(req.Bucket).
			WithKey(req.Key).
			WithMessage("filepath cannot be empty")
	}

	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, s3errors.NewError("downloadFile", err).WithBucket(req.Bucket).WithKey(req.Key)
		}
	}

	file, err := c.fs.Create(path)
	if err != nil {
		return nil, s3errors.NewError("downloadFile", err).WithBucket(req.Bucket).WithKey(req.Key)
	}

	result, err := c.DownloadTo(ctx, req, file, opts...)
	closeErr := file.Close()
	if err == nil && closeErr != nil {
		err = s3errors.NewError("downloadFile", closeErr).WithBucket(req.Bucket).WithKey(req.Key)
	}
	if err != nil {
		if removeErr := c.fs.Remove(path); removeErr != nil {
			c.logger.WarnContext(ctx, "failed to remove partial download", "path", path, "error", removeErr)
		}
		return nil, err
	}
	return result, nil
}

// Get downloads an entire object into memory.
// For large objects, use Download or DownloadFile instead.
func (c *Client) Get(ctx context.Context, bucket, key string, opts ...transfertypes.DownloadOption) ([]byte, error) {
	resp, err := c.Download(ctx, &transfertypes.DownloadRequest{Bucket: bucket, Key: key}, opts...)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, s3errors.NewError("get", err).WithBucket(bucket).WithKey(key)
	}
	return data, nil
}

// Stat retrieves object metadata with a HEAD request.
func (c *Client) Stat(ctx context.Context, bucket, key string) (*transfertypes.ObjectMetadata, error) {
	if err := validateRequest("stat", &transfertypes.DownloadRequest{Bucket: bucket, Key: key}); err != nil {
		return nil, err
	}

	result, err := c.fetcher.Head(ctx, bucket, key, "")
	if err != nil {
		return nil, err
	}

	metadata := &transfertypes.ObjectMetadata{
		ContentType:   aws.ToString(result.ContentType),
		ContentLength: aws.ToInt64(result.ContentLength),
		LastModified:  aws.ToTime(result.LastModified),
		ETag:          aws.ToString(result.ETag),
		VersionID:     aws.ToString(result.VersionId),
		PartsCount:    aws.ToInt32(result.PartsCount),
	}
	if result.Metadata != nil {
		metadata.Metadata = make(map[string]string, len(result.Metadata))
		for k, v := range result.Metadata {
			metadata.Metadata[k] = v
		}
	}
	return metadata, nil
}

func validateRequest(op string, req *transfertypes.DownloadRequest) error {
	if req == nil {
		return s3errors.NewError(op, s3errors.ErrInvalidInput).WithMessage("request cannot be nil")
	}
	if err := validation.ValidateBucketName(req.Bucket); err != nil {
		return s3errors.NewError(op, s3errors.ErrInvalidInput).
			WithBucket(req.Bucket).
			WithKey(req.Key).
			WithMessage(err.Error())
	}
	if err := validation.ValidateObjectKey(req.Key); err != nil {
		return s3errors.NewError(op, s3errors.ErrInvalidInput).
			WithBucket(req.Bucket).
			WithKey(req.Key).
			WithMessage(err.Error())
	}
	if req.PartNumber < 0 {
		return s3errors.NewError(op, s3errors.ErrInvalidInput).
			WithBucket(req.Bucket).
			WithKey(req.Key).
			WithMessage("part number cannot be negative")
	}
	return nil
}
