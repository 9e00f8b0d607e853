package testutil

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// MockBuilder provides a fluent interface for building MockS3Client instances.
type MockBuilder struct {
	client *MockS3Client
}

// NewMockBuilder creates a new MockBuilder.
func NewMockBuilder() *MockBuilder {
	return &MockBuilder{client: &MockS3Client{}}
}

// Build returns the configured MockS3Client.
func (b *MockBuilder) Build() *MockS3Client {
	return b.client
}

// WithGetObject configures the GetObject behavior.
func (b *MockBuilder) WithGetObject(
	fn func(context.Context, *s3.GetObjectInput) (*s3.GetObjectOutput, error),
) *MockBuilder {
	b.client.GetObjectFunc = func(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		return fn(ctx, params)
	}
	return b
}

// WithHeadObject configures the HeadObject behavior.
func (b *MockBuilder) WithHeadObject(
	fn func(context.Context, *s3.HeadObjectInput) (*s3.HeadObjectOutput, error),
) *MockBuilder {
	b.client.HeadObjectFunc = func(ctx context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return fn(ctx, params)
	}
	return b
}

// WithPutObject configures the PutObject behavior.
func (b *MockBuilder) WithPutObject(
	fn func(context.Context, *s3.PutObjectInput) (*s3.PutObjectOutput, error),
) *MockBuilder {
	b.client.PutObjectFunc = func(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return fn(ctx, params)
	}
	return b
}

// WithAPIError makes every operation fail with an API error carrying code.
func (b *MockBuilder) WithAPIError(code string) *MockBuilder {
	err := APIError(code)
	b.client.GetObjectFunc = func(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
		return nil, err
	}
	b.client.HeadObjectFunc = func(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return nil, err
	}
	b.client.PutObjectFunc = func(context.Context, *s3.PutObjectInput, ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, err
	}
	return b
}

// WithObjectNotFound configures every read to fail as a missing key.
func (b *MockBuilder) WithObjectNotFound() *MockBuilder {
	return b.WithAPIError("NoSuchKey")
}

// WithAccessDenied configures every operation to fail as forbidden.
func (b *MockBuilder) WithAccessDenied() *MockBuilder {
	return b.WithAPIError("AccessDenied")
}

// APIError returns a smithy API error with the given code, shaped like the SDK's.
func APIError(code string) error {
	return &smithy.GenericAPIError{Code: code, Message: fmt.Sprintf("simulated %s", code)}
}
