package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/validation"
)

// Object is an object stored by ObjectServer.
type Object struct {
	Data []byte
	// PartSizes is the multipart layout; nil for objects uploaded in one request.
	PartSizes    []int64
	ETag         string
	VersionID    string
	ContentType  string
	Metadata     map[string]string
	LastModified time.Time
}

// ObjectServer is an in-memory S3API that serves stored parts and byte ranges
// the way S3 does: Content-Range on partial responses, PartsCount on part
// requests of multipart objects, 412 on If-Match mismatch and 416 on
// unsatisfiable ranges.
type ObjectServer struct {
	// BeforeGet, when set, runs before each GetObject is served. A non-nil
	// error is returned to the caller instead of the object.
	BeforeGet func(ctx context.Context, in *s3.GetObjectInput) error

	// WrapBody, when set, wraps every response body.
	WrapBody func(in *s3.GetObjectInput, body io.ReadCloser) io.ReadCloser

	mu      sync.Mutex
	objects map[string]*Object
	gets    []*s3.GetObjectInput
	heads   int
	puts    int
}

var _ s3api.S3API = (*ObjectServer)(nil)

// NewObjectServer creates an empty server.
func NewObjectServer() *ObjectServer {
	return &ObjectServer{objects: make(map[string]*Object)}
}

// Put stores obj under bucket/key, replacing any existing object.
func (s *ObjectServer) Put(bucket, key string, obj *Object) {
	if obj.ETag == "" {
		if obj.PartSizes != nil {
			obj.ETag = CalculateMultipartETag(obj.Data, obj.PartSizes)
		} else {
			obj.ETag = CalculateETag(obj.Data)
		}
	}
	if obj.LastModified.IsZero() {
		obj.LastModified = time.Now().UTC().Truncate(time.Second)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+key] = obj
}

// Object returns the stored object, or nil.
func (s *ObjectServer) Object(bucket, key string) *Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[bucket+"/"+key]
}

// GetObjectCalls returns copies of the GetObject inputs received so far, in arrival order.
func (s *ObjectServer) GetObjectCalls() []*s3.GetObjectInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*s3.GetObjectInput, len(s.gets))
	copy(out, s.gets)
	return out
}

// HeadObjectCalls returns how many HeadObject requests were served.
func (s *ObjectServer) HeadObjectCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heads
}

// PutObjectCalls returns how many PutObject requests were served.
func (s *ObjectServer) PutObjectCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// GetObject implements s3api.S3API.
func (s *ObjectServer) GetObject(
	ctx context.Context,
	in *s3.GetObjectInput,
	_ ...func(*s3.Options),
) (*s3.GetObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	recorded := *in
	s.gets = append(s.gets, &recorded)
	s.mu.Unlock()

	if s.BeforeGet != nil {
		if err := s.BeforeGet(ctx, in); err != nil {
			return nil, err
		}
	}

	obj, err := s.lookup(aws.ToString(in.Bucket), aws.ToString(in.Key), aws.ToString(in.VersionId))
	if err != nil {
		return nil, err
	}
	if in.IfMatch != nil && aws.ToString(in.IfMatch) != obj.ETag {
		return nil, APIError("PreconditionFailed")
	}

	size := int64(len(obj.Data))
	out := &s3.GetObjectOutput{
		AcceptRanges: aws.String("bytes"),
		ETag:         aws.String(obj.ETag),
		LastModified: aws.Time(obj.LastModified),
		Metadata:     obj.Metadata,
	}
	if obj.VersionID != "" {
		out.VersionId = aws.String(obj.VersionID)
	}
	if obj.ContentType != "" {
		out.ContentType = aws.String(obj.ContentType)
	}

	start, end := int64(0), size-1
	partial := false
	switch {
	case in.PartNumber != nil:
		n := int(aws.ToInt32(in.PartNumber))
		layout := obj.PartSizes
		if layout == nil && size > 0 {
			layout = []int64{size}
		}
		if n < 1 || (n > len(layout) && !(n == 1 && size == 0)) {
			return nil, APIError("InvalidPartNumber")
		}
		if size > 0 {
			for _, ps := range layout[:n-1] {
				start += ps
			}
			end = start + layout[n-1] - 1
			partial = true
		}
		if obj.PartSizes != nil {
			out.PartsCount = aws.Int32(int32(len(obj.PartSizes)))
		}

	case in.Range != nil:
		byteRange, err := validation.ParseByteRange(aws.ToString(in.Range))
		if err != nil {
			return nil, APIError("InvalidArgument")
		}
		switch {
		case byteRange.Suffix > 0:
			start = max(size-byteRange.Suffix, 0)
		default:
			start = byteRange.Start
			if byteRange.End >= 0 {
				end = min(byteRange.End, size-1)
			}
		}
		if start >= size {
			return nil, APIError("InvalidRange")
		}
		partial = true
	}

	var payload []byte
	if size > 0 {
		payload = bytes.Clone(obj.Data[start : end+1])
	}
	if partial {
		out.ContentRange = aws.String(fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	}
	out.ContentLength = aws.Int64(int64(len(payload)))

	var body io.ReadCloser = io.NopCloser(bytes.NewReader(payload))
	if s.WrapBody != nil {
		body = s.WrapBody(in, body)
	}
	out.Body = body
	return out, nil
}

// HeadObject implements s3api.S3API.
func (s *ObjectServer) HeadObject(
	ctx context.Context,
	in *s3.HeadObjectInput,
	_ ...func(*s3.Options),
) (*s3.HeadObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.heads++
	s.mu.Unlock()

	obj, err := s.lookup(aws.ToString(in.Bucket), aws.ToString(in.Key), aws.ToString(in.VersionId))
	if err != nil {
		return nil, APIError("NotFound")
	}
	out := &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.Data))),
		ETag:          aws.String(obj.ETag),
		LastModified:  aws.Time(obj.LastModified),
		Metadata:      obj.Metadata,
	}
	if obj.ContentType != "" {
		out.ContentType = aws.String(obj.ContentType)
	}
	if obj.VersionID != "" {
		out.VersionId = aws.String(obj.VersionID)
	}
	if obj.PartSizes != nil {
		out.PartsCount = aws.Int32(int32(len(obj.PartSizes)))
	}
	return out, nil
}

// PutObject implements s3api.S3API by storing the body as a single-part object.
func (s *ObjectServer) PutObject(
	ctx context.Context,
	in *s3.PutObjectInput,
	_ ...func(*s3.Options),
) (*s3.PutObjectOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	if in.Body != nil {
		var err error
		if data, err = io.ReadAll(in.Body); err != nil {
			return nil, err
		}
	}
	obj := &Object{
		Data:        data,
		ContentType: aws.ToString(in.ContentType),
		Metadata:    in.Metadata,
	}
	s.Put(aws.ToString(in.Bucket), aws.ToString(in.Key), obj)

	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	return &s3.PutObjectOutput{ETag: aws.String(obj.ETag)}, nil
}

func (s *ObjectServer) lookup(bucket, key, versionID string) (*Object, error) {
	s.mu.Lock()
	obj := s.objects[bucket+"/"+key]
	s.mu.Unlock()

	switch {
	case obj == nil:
		return nil, APIError("NoSuchKey")
	case versionID != "" && versionID != obj.VersionID:
		return nil, APIError("NoSuchVersion")
	}
	return obj, nil
}
