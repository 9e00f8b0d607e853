package s3api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"
)

const partsCountHeader = "X-Amz-Mp-Parts-Count"

// MinioAPI serves S3API from a minio-go Core client, for S3-compatible stores
// such as MinIO or Ceph RGW.
type MinioAPI struct {
	core *minio.Core
}

// NewMinioAPI wraps core.
func NewMinioAPI(core *minio.Core) *MinioAPI {
	return &MinioAPI{core: core}
}

var _ S3API = (*MinioAPI)(nil)

// GetObject issues a GET through the minio client, honouring PartNumber,
// Range, VersionId, IfMatch and ChecksumMode.
func (m *MinioAPI) GetObject(
	ctx context.Context,
	params *s3.GetObjectInput,
	_ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	body, info, header, err := m.core.GetObject(ctx, aws.ToString(params.Bucket), aws.ToString(params.Key), getOptions(params))
	if err != nil {
		return nil, translateMinioError(err)
	}
	return getOutput(body, info, header), nil
}

// HeadObject maps to StatObject.
func (m *MinioAPI) HeadObject(
	ctx context.Context,
	params *s3.HeadObjectInput,
	_ ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	opts := minio.StatObjectOptions{VersionID: aws.ToString(params.VersionId)}
	if params.PartNumber != nil {
		opts.PartNumber = int(aws.ToInt32(params.PartNumber))
	}
	info, err := m.core.StatObject(ctx, aws.ToString(params.Bucket), aws.ToString(params.Key), opts)
	if err != nil {
		return nil, translateMinioError(err)
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(info.Size),
		ContentType:   nonEmpty(info.ContentType),
		ETag:          quoteETag(info.ETag),
		LastModified:  aws.Time(info.LastModified),
		VersionId:     nonEmpty(info.VersionID),
		Metadata:      info.UserMetadata,
		PartsCount:    partsCount(info.Metadata),
	}, nil
}

// PutObject uploads params.Body in a single request.
func (m *MinioAPI) PutObject(
	ctx context.Context,
	params *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	size := int64(-1)
	if params.ContentLength != nil {
		size = *params.ContentLength
	}
	opts := minio.PutObjectOptions{
		ContentType:  aws.ToString(params.ContentType),
		UserMetadata: params.Metadata,
	}
	info, err := m.core.PutObject(ctx, aws.ToString(params.Bucket), aws.ToString(params.Key),
		params.Body, size, "", "", opts)
	if err != nil {
		return nil, translateMinioError(err)
	}
	return &s3.PutObjectOutput{
		ETag:      quoteETag(info.ETag),
		VersionId: nonEmpty(info.VersionID),
	}, nil
}

func getOptions(in *s3.GetObjectInput) minio.GetObjectOptions {
	opts := minio.GetObjectOptions{VersionID: aws.ToString(in.VersionId)}
	if in.PartNumber != nil {
		opts.PartNumber = int(aws.ToInt32(in.PartNumber))
	}
	if in.Range != nil {
		opts.Set("Range", aws.ToString(in.Range))
	}
	if in.IfMatch != nil {
		opts.Set("If-Match", aws.ToString(in.IfMatch))
	}
	if in.ChecksumMode == awstypes.ChecksumModeEnabled {
		opts.Checksum = true
	}
	return opts
}

func getOutput(body io.ReadCloser, info minio.ObjectInfo, header http.Header) *s3.GetObjectOutput {
	etag := header.Get("ETag")
	if etag == "" {
		etag = strings.TrimSpace(info.ETag)
	}
	return &s3.GetObjectOutput{
		Body:          body,
		AcceptRanges:  nonEmpty(header.Get("Accept-Ranges")),
		ContentLength: aws.Int64(info.Size),
		ContentRange:  nonEmpty(header.Get("Content-Range")),
		ContentType:   nonEmpty(info.ContentType),
		ETag:          quoteETag(etag),
		LastModified:  aws.Time(info.LastModified),
		Metadata:      info.UserMetadata,
		PartsCount:    partsCount(header),
		VersionId:     nonEmpty(info.VersionID),
	}
}

func partsCount(header http.Header) *int32 {
	v := header.Get(partsCountHeader)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return nil
	}
	return aws.Int32(int32(n))
}

// quoteETag restores the quotes minio strips, so ETags round-trip into If-Match unchanged.
func quoteETag(etag string) *string {
	if etag == "" {
		return nil
	}
	if !strings.HasPrefix(etag, `"`) {
		etag = `"` + etag + `"`
	}
	return aws.String(etag)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

// translateMinioError exposes minio error responses as smithy API errors so
// callers classify both backends the same way.
func translateMinioError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "" {
		return err
	}
	code := resp.Code
	if resp.StatusCode == http.StatusPreconditionFailed {
		code = "PreconditionFailed"
	}
	return fmt.Errorf("minio: %w", &smithy.GenericAPIError{Code: code, Message: resp.Message})
}
