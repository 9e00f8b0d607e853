package download

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/s3api"
)

// Fetcher issues individual download requests.
type Fetcher struct {
	s3Client s3api.S3API
}

// New creates a new Fetcher instance.
func New(s3Client s3api.S3API) *Fetcher {
	return &Fetcher{s3Client: s3Client}
}

// Get issues one GetObject request.
func (f *Fetcher) Get(ctx context.Context, input *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	output, err := f.s3Client.GetObject(ctx, input)
	if err != nil {
		return nil, Classify("download", aws.ToString(input.Bucket), aws.ToString(input.Key), err)
	}
	if output.Body == nil {
		return nil, errors.NewObjectError("download", aws.ToString(input.Bucket), aws.ToString(input.Key),
			stderrors.New("response has no body"))
	}
	return output, nil
}

// Head retrieves object metadata.
func (f *Fetcher) Head(ctx context.Context, bucket, key, versionID string) (*s3.HeadObjectOutput, error) {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if versionID != "" {
		input.VersionId = aws.String(versionID)
	}
	output, err := f.s3Client.HeadObject(ctx, input)
	if err != nil {
		return nil, Classify("head", bucket, key, err)
	}
	return output, nil
}

// Classify wraps an object-store error in an *errors.Error, adding the matching
// sentinel (ErrObjectNotFound, ErrObjectModified, ErrInvalidRange, ErrAccessDenied)
// in front of the original error when one applies.
func Classify(op, bucket, key string, err error) error {
	if sentinel := sentinelFor(err); sentinel != nil {
		err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return errors.NewObjectError(op, bucket, key, err)
}

func sentinelFor(err error) error {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchVersion":
			return errors.ErrObjectNotFound
		case "PreconditionFailed":
			return errors.ErrObjectModified
		case "InvalidRange", "InvalidPartNumber":
			return errors.ErrInvalidRange
		case "AccessDenied", "Forbidden":
			return errors.ErrAccessDenied
		}
	}

	var respErr *smithyhttp.ResponseError
	if stderrors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return errors.ErrObjectNotFound
		case http.StatusPreconditionFailed:
			return errors.ErrObjectModified
		case http.StatusRequestedRangeNotSatisfiable:
			return errors.ErrInvalidRange
		case http.StatusForbidden:
			return errors.ErrAccessDenied
		}
	}
	return nil
}
