package s3transfer

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/transfertypes"
)

func TestClient_Upload(t *testing.T) {
	pngHeader := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

	tests := []struct {
		name            string
		key             string
		body            []byte
		contentType     string
		wantContentType string
	}{
		{
			name:            "explicit content type",
			key:             "data.bin",
			body:            []byte(`{"a":1}`),
			contentType:     "application/x-custom",
			wantContentType: "application/x-custom",
		},
		{
			name:            "sniffed from body",
			key:             "image",
			body:            pngHeader,
			wantContentType: "image/png",
		},
		{
			name:            "extension fallback",
			key:             "notes.html",
			body:            []byte{0x00, 0x01, 0x02, 0x03},
			wantContentType: "text/html; charset=utf-8",
		},
		{
			name:            "unknown content",
			key:             "blob",
			body:            []byte{0x00, 0x01, 0x02, 0x03},
			wantContentType: "application/octet-stream",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewObjectServer()
			client := newTestClient(t, srv)

			var opts []transfertypes.UploadOption
			if tt.contentType != "" {
				opts = append(opts, WithContentType(tt.contentType))
			}
			opts = append(opts, WithMetadata(map[string]string{"owner": "forge"}))

			result, err := client.Upload(context.Background(), testBucket, tt.key, bytes.NewReader(tt.body), opts...)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.body)), result.Size)
			assert.Equal(t, tt.key, result.Key)

			stored := srv.Object(testBucket, tt.key)
			require.NotNil(t, stored)
			assert.Equal(t, tt.body, stored.Data)
			assert.Equal(t, tt.wantContentType, stored.ContentType)
			assert.Equal(t, "forge", stored.Metadata["owner"])
			assert.Equal(t, stored.ETag, result.ETag)
		})
	}
}

func TestClient_Upload_Invalid(t *testing.T) {
	client := newTestClient(t, testutil.NewObjectServer())
	ctx := context.Background()

	_, err := client.Upload(ctx, "", "k", strings.NewReader("x"))
	assert.True(t, s3errors.IsInvalidInput(err))

	_, err = client.Upload(ctx, testBucket, "", strings.NewReader("x"))
	assert.True(t, s3errors.IsInvalidInput(err))

	_, err = client.Upload(ctx, testBucket, "k", nil)
	assert.True(t, s3errors.IsInvalidInput(err))

	_, err = client.Upload(ctx, testBucket, "k", strings.NewReader("x"), WithContentType("not a type"))
	assert.True(t, s3errors.IsInvalidInput(err))
}

func TestClient_Upload_AboveThreshold(t *testing.T) {
	srv := testutil.NewObjectServer()
	client := newTestClient(t, srv, WithMultipartUploadThreshold(16))

	_, err := client.Upload(context.Background(), testBucket, "k", strings.NewReader(strings.Repeat("x", 17)))
	assert.ErrorIs(t, err, s3errors.ErrNotImplemented)
	assert.Zero(t, srv.PutObjectCalls())

	_, err = client.Upload(context.Background(), testBucket, "k", strings.NewReader(strings.Repeat("x", 16)))
	assert.NoError(t, err)
}

func TestClient_UploadFile(t *testing.T) {
	memFS := billy.NewInMemoryFS()
	require.NoError(t, memFS.MkdirAll("/data", 0o755))
	require.NoError(t, memFS.WriteFile("/data/report.json", []byte(`{"ok":true}`), 0o644))

	srv := testutil.NewObjectServer()
	client := newTestClient(t, srv, WithFilesystem(memFS))

	result, err := client.UploadFile(context.Background(), testBucket, "reports/latest", "/data/report.json")
	require.NoError(t, err)
	assert.Equal(t, int64(11), result.Size)

	stored := srv.Object(testBucket, "reports/latest")
	require.NotNil(t, stored)
	assert.Equal(t, `{"ok":true}`, string(stored.Data))
	assert.Equal(t, "application/json", stored.ContentType)

	_, err = client.UploadFile(context.Background(), testBucket, "k", "/data")
	assert.True(t, s3errors.IsInvalidInput(err))

	_, err = client.UploadFile(context.Background(), testBucket, "k", "/missing.txt")
	assert.Error(t, err)

	_, err = client.UploadFile(context.Background(), testBucket, "k", "")
	assert.True(t, s3errors.IsInvalidInput(err))
}
