package testutil

import (
	"crypto/md5"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"
)

// GenerateTestKey generates a test object key with optional prefix.
// This helps ensure test isolation by using unique keys.
func GenerateTestKey(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return fmt.Sprintf("%stest-object-%d-%d", prefix, time.Now().UnixNano(), rand.Int63n(100000))
}

// GenerateTestBucketName generates a valid, DNS-compliant test bucket name.
func GenerateTestBucketName(prefix string) string {
	name := strings.ToLower(fmt.Sprintf("%s-%d-%d", prefix, time.Now().Unix(), rand.Int31n(10000)))
	name = strings.ReplaceAll(name, "_", "-")
	if len(name) > 63 {
		name = name[:63]
	}
	return name
}

// CalculateETag returns the quoted MD5 ETag S3 assigns to single-request uploads.
func CalculateETag(data []byte) string {
	return fmt.Sprintf(`"%x"`, md5.Sum(data))
}

// CalculateMultipartETag returns the "<md5 of part md5s>-<count>" ETag S3
// assigns to multipart uploads with the given layout.
func CalculateMultipartETag(data []byte, partSizes []int64) string {
	var digests []byte
	offset := int64(0)
	for _, size := range partSizes {
		sum := md5.Sum(data[offset : offset+size])
		digests = append(digests, sum[:]...)
		offset += size
	}
	return fmt.Sprintf(`"%x-%d"`, md5.Sum(digests), len(partSizes))
}

// TrackedBody wraps a body and counts how often it is closed.
type TrackedBody struct {
	io.Reader
	closes atomic.Int32
}

// NewTrackedBody wraps r.
func NewTrackedBody(r io.Reader) *TrackedBody {
	return &TrackedBody{Reader: r}
}

// Close records the call.
func (b *TrackedBody) Close() error {
	b.closes.Add(1)
	return nil
}

// Closes returns the number of Close calls.
func (b *TrackedBody) Closes() int {
	return int(b.closes.Load())
}

// FailingBody yields n bytes of r and then fails with err.
type FailingBody struct {
	r   io.Reader
	err error
}

// NewFailingBody returns a body that fails after n bytes of r.
func NewFailingBody(r io.Reader, n int64, err error) io.ReadCloser {
	return &FailingBody{r: io.LimitReader(r, n), err: err}
}

func (b *FailingBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err == io.EOF {
		return n, b.err
	}
	return n, err
}

// Close is a no-op.
func (b *FailingBody) Close() error { return nil }
