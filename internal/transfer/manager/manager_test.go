package manager

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/events"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/s3api"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/testutil"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/transfer/stream"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/transfertypes"
)

const (
	bucket = "test-bucket"
	key    = "test-key"
)

type harness struct {
	manager  *Manager
	global   *events.Registry
	recorder *testutil.EventRecorder
}

func newHarness(t *testing.T, api s3api.S3API, mutate func(*transfertypes.Config)) *harness {
	t.Helper()
	cfg := transfertypes.DefaultConfig()
	cfg.PartSize = 10
	if mutate != nil {
		mutate(&cfg)
	}
	global := events.NewRegistry()
	recorder := &testutil.EventRecorder{}
	require.NoError(t, recorder.Register(global))
	return &harness{
		manager:  New(download.New(api), cfg, global),
		global:   global,
		recorder: recorder,
	}
}

func (h *harness) download(t *testing.T, req *transfertypes.DownloadRequest) ([]byte, *transfertypes.DownloadResponse) {
	t.Helper()
	resp, err := h.manager.Download(context.Background(), req, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return data, resp
}

// inPlanOrder sorts recorded sub-requests by part number and range start.
// Sub-requests after the first are issued concurrently, so the server sees
// them in any order.
func inPlanOrder(t *testing.T, calls []*s3.GetObjectInput) []*s3.GetObjectInput {
	t.Helper()
	start := func(in *s3.GetObjectInput) int64 {
		if in.Range == nil {
			return 0
		}
		r, err := validation.ParseByteRange(aws.ToString(in.Range))
		require.NoError(t, err)
		return r.Start
	}
	slices.SortStableFunc(calls, func(a, b *s3.GetObjectInput) int {
		if c := cmp.Compare(aws.ToInt32(a.PartNumber), aws.ToInt32(b.PartNumber)); c != 0 {
			return c
		}
		return cmp.Compare(start(a), start(b))
	})
	return calls
}

func request() *transfertypes.DownloadRequest {
	return &transfertypes.DownloadRequest{Bucket: bucket, Key: key}
}

func TestDownload_PartStrategy(t *testing.T) {
	srv := testutil.NewObjectServer()
	obj := testutil.NewTestDataGenerator(1).MultipartObject(25, 10)
	srv.Put(bucket, key, obj)

	h := newHarness(t, srv, nil)
	data, resp := h.download(t, request())

	assert.Equal(t, obj.Data, data)
	assert.Equal(t, int64(25), aws.ToInt64(resp.Output.ContentLength))
	assert.Nil(t, resp.Output.ContentRange)
	assert.Nil(t, resp.Output.Body)

	calls := inPlanOrder(t, srv.GetObjectCalls())
	require.Len(t, calls, 3)
	for i, in := range calls {
		assert.Equal(t, int32(i+1), aws.ToInt32(in.PartNumber))
		assert.Nil(t, in.Range)
		if i == 0 {
			assert.Nil(t, in.IfMatch)
		} else {
			assert.Equal(t, obj.ETag, aws.ToString(in.IfMatch))
		}
	}

	assert.Equal(t, 1, h.recorder.Count(events.KindInitiated))
	assert.Equal(t, 1, h.recorder.Count(events.KindComplete))
	assert.Equal(t, 0, h.recorder.Count(events.KindFailed))
	assert.GreaterOrEqual(t, h.recorder.Count(events.KindBytesTransferred), 3)

	evs := h.recorder.Events()
	assert.Equal(t, events.KindInitiated, evs[0].Kind())
	complete, ok := evs[len(evs)-1].(events.CompleteEvent)
	require.True(t, ok)
	assert.Equal(t, int64(25), complete.Progress.TransferredBytes)
	assert.Equal(t, int64(25), complete.Progress.TotalBytes)
	assert.Equal(t, int64(25), aws.ToInt64(complete.Response.ContentLength))
	assert.Nil(t, complete.Response.ContentRange)
	assert.Equal(t, obj.ETag, aws.ToString(complete.Response.ETag))
}

func TestDownload_PartStrategyVersionPinned(t *testing.T) {
	srv := testutil.NewObjectServer()
	obj := testutil.NewTestDataGenerator(2).MultipartObject(30, 10)
	obj.VersionID = "v1"
	srv.Put(bucket, key, obj)

	h := newHarness(t, srv, nil)
	req := request()
	req.VersionID = "v1"
	data, _ := h.download(t, req)

	assert.Equal(t, obj.Data, data)
	for _, in := range srv.GetObjectCalls() {
		assert.Equal(t, "v1", aws.ToString(in.VersionId))
		assert.Nil(t, in.IfMatch)
	}
}

func TestDownload_RangeStrategy(t *testing.T) {
	tests := []struct {
		name       string
		size       int64
		callerRng  string
		wantRanges []string
		wantData   func([]byte) []byte
		wantCR     string
	}{
		{
			name:       "whole object",
			size:       25,
			wantRanges: []string{"bytes=0-9", "bytes=10-19", "bytes=20-24"},
			wantData:   func(b []byte) []byte { return b },
		},
		{
			name:       "object smaller than a window",
			size:       7,
			wantRanges: []string{"bytes=0-9"},
			wantData:   func(b []byte) []byte { return b },
		},
		{
			name:       "exact multiple of window",
			size:       20,
			wantRanges: []string{"bytes=0-9", "bytes=10-19"},
			wantData:   func(b []byte) []byte { return b },
		},
		{
			name:       "bounded caller range",
			size:       40,
			callerRng:  "bytes=5-26",
			wantRanges: []string{"bytes=5-14", "bytes=15-24", "bytes=25-26"},
			wantData:   func(b []byte) []byte { return b[5:27] },
			wantCR:     "bytes 5-26/40",
		},
		{
			name:       "open caller range",
			size:       25,
			callerRng:  "bytes=12-",
			wantRanges: []string{"bytes=12-21", "bytes=22-24"},
			wantData:   func(b []byte) []byte { return b[12:] },
			wantCR:     "bytes 12-24/25",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testutil.NewObjectServer()
			obj := testutil.NewTestDataGenerator(3).SinglePartObject(tt.size)
			srv.Put(bucket, key, obj)

			h := newHarness(t, srv, func(cfg *transfertypes.Config) {
				cfg.DownloadStrategy = transfertypes.StrategyRange
			})
			req := request()
			req.Range = tt.callerRng
			data, resp := h.download(t, req)

			want := tt.wantData(obj.Data)
			assert.Equal(t, want, data)
			assert.Equal(t, int64(len(want)), aws.ToInt64(resp.Output.ContentLength))
			assert.Equal(t, tt.wantCR, aws.ToString(resp.Output.ContentRange))

			var got []string
			for i, in := range inPlanOrder(t, srv.GetObjectCalls()) {
				got = append(got, aws.ToString(in.Range))
				assert.Nil(t, in.PartNumber)
				if i > 0 {
					assert.Equal(t, obj.ETag, aws.ToString(in.IfMatch))
				}
			}
			assert.Equal(t, tt.wantRanges, got)
			assert.Equal(t, 1, h.recorder.Count(events.KindComplete))
		})
	}
}

func TestDownload_ExplicitPartNumber(t *testing.T) {
	srv := testutil.NewObjectServer()
	obj := testutil.NewTestDataGenerator(4).MultipartObject(25, 10)
	srv.Put(bucket, key, obj)

	h := newHarness(t, srv, nil)
	req := request()
	req.PartNumber = 2
	req.Range = "bytes=0-3"
	data, resp := h.download(t, req)

	assert.Equal(t, obj.Data[10:20], data)
	assert.Equal(t, "bytes 10-19/25", aws.ToString(resp.Output.ContentRange))
	calls := srv.GetObjectCalls()
	require.Len(t, calls, 1)
	assert.Nil(t, calls[0].Range)
}

func TestDownload_RangeUnderPartStrategyIsSingleRequest(t *testing.T) {
	srv := testutil.NewObjectServer()
	obj := testutil.NewTestDataGenerator(5).MultipartObject(25, 10)
	srv.Put(bucket, key, obj)

	h := newHarness(t, srv, nil)
	req := request()
	req.Range = "bytes=3-17"
	data, _ := h.download(t, req)

	assert.Equal(t, obj.Data[3:18], data)
	assert.Len(t, srv.GetObjectCalls(), 1)
}

func TestDownload_EmptyObject(t *testing.T) {
	for _, strategy := range []transfertypes.DownloadStrategy{transfertypes.StrategyPart, transfertypes.StrategyRange} {
		t.Run(string(strategy), func(t *testing.T) {
			srv := testutil.NewObjectServer()
			srv.Put(bucket, key, &testutil.Object{})

			h := newHarness(t, srv, func(cfg *transfertypes.Config) { cfg.DownloadStrategy = strategy })
			data, resp := h.download(t, request())

			assert.Empty(t, data)
			assert.Zero(t, aws.ToInt64(resp.Output.ContentLength))
			assert.Equal(t, 1, h.recorder.Count(events.KindComplete))
			assert.Equal(t, 0, h.recorder.Count(events.KindFailed))
		})
	}
}

func TestDownload_AbortedBeforeStart(t *testing.T) {
	srv := testutil.NewObjectServer()
	srv.Put(bucket, key, testutil.NewTestDataGenerator(6).SinglePartObject(10))
	h := newHarness(t, srv, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	callRecorder := &testutil.EventRecorder{}
	_, err := h.manager.Download(ctx, request(), []transfertypes.CallListener{
		{Kind: events.KindFailed, Listener: callRecorder},
	})

	var abortErr *s3errors.AbortError
	require.ErrorAs(t, err, &abortErr)
	assert.ErrorIs(t, err, s3errors.ErrAborted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, srv.GetObjectCalls())
	assert.Empty(t, h.recorder.Events())
	assert.Empty(t, callRecorder.Events())
}

func TestDownload_AbortedMidDownload(t *testing.T) {
	srv := testutil.NewObjectServer()
	obj := testutil.NewTestDataGenerator(7).MultipartObject(30, 10)
	srv.Put(bucket, key, obj)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv.BeforeGet = func(_ context.Context, in *s3.GetObjectInput) error {
		if aws.ToInt32(in.PartNumber) == 1 {
			cancel()
		}
		return nil
	}

	h := newHarness(t, srv, func(cfg *transfertypes.Config) { cfg.Concurrency = 1 })
	resp, err := h.manager.Download(ctx, request(), nil)
	if err != nil {
		assert.ErrorIs(t, err, s3errors.ErrAborted)
		return
	}
	defer resp.Body.Close()

	_, err = io.ReadAll(resp.Body)
	assert.ErrorIs(t, err, s3errors.ErrAborted)
	assert.Len(t, srv.GetObjectCalls(), 1)
}

func TestDownload_FirstRequestFails(t *testing.T) {
	srv := testutil.NewObjectServer()
	h := newHarness(t, srv, nil)

	callRecorder := &testutil.EventRecorder{}
	_, err := h.manager.Download(context.Background(), request(), []transfertypes.CallListener{
		{Kind: events.KindFailed, Listener: callRecorder},
	})

	assert.True(t, s3errors.IsObjectNotFound(err))
	require.Equal(t, []events.Kind{events.KindFailed}, h.recorder.Kinds())
	failed := h.recorder.Events()[0].(events.FailedEvent)
	assert.Equal(t, int32(1), aws.ToInt32(failed.Request.PartNumber))
	assert.ErrorIs(t, failed.Err, s3errors.ErrObjectNotFound)
	assert.Equal(t, 1, callRecorder.Count(events.KindFailed))
}

func TestDownload_ObjectModifiedMidDownload(t *testing.T) {
	srv := testutil.NewObjectServer()
	gen := testutil.NewTestDataGenerator(8)
	srv.Put(bucket, key, gen.MultipartObject(30, 10))

	var replaced atomic.Bool
	srv.BeforeGet = func(_ context.Context, in *s3.GetObjectInput) error {
		if aws.ToInt32(in.PartNumber) == 2 && replaced.CompareAndSwap(false, true) {
			srv.Put(bucket, key, gen.MultipartObject(30, 10))
		}
		return nil
	}

	h := newHarness(t, srv, func(cfg *transfertypes.Config) { cfg.Concurrency = 1 })
	resp, err := h.manager.Download(context.Background(), request(), nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	_, err = io.ReadAll(resp.Body)
	assert.True(t, s3errors.IsObjectModified(err))
	assert.Equal(t, 1, h.recorder.Count(events.KindFailed))
	assert.Equal(t, 0, h.recorder.Count(events.KindComplete))

	evs := h.recorder.Events()
	failed := evs[len(evs)-1].(events.FailedEvent)
	assert.Equal(t, int32(2), aws.ToInt32(failed.Request.PartNumber))
	assert.Equal(t, int64(10), failed.Progress.TransferredBytes)
}

func TestDownload_RangeIntegrity(t *testing.T) {
	tests := []struct {
		name   string
		second string
	}{
		{name: "gap", second: "bytes 12-21/30"},
		{name: "overlap", second: "bytes 8-17/30"},
		{name: "duplicate", second: "bytes 0-9/30"},
		{name: "short non-final window", second: "bytes 10-14/30"},
		{name: "malformed", second: "bytes ten-twenty/30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := testutil.NewTestDataGenerator(9).Bytes(30)
			client := testutil.NewMockBuilder().
				WithGetObject(func(_ context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
					cr := "bytes 0-9/30"
					switch aws.ToString(in.Range) {
					case "bytes=10-19":
						cr = tt.second
					case "bytes=20-29":
						cr = "bytes 20-29/30"
					}
					return &s3.GetObjectOutput{
						Body:         io.NopCloser(bytes.NewReader(data[:10])),
						ContentRange: aws.String(cr),
						ETag:         aws.String(`"etag"`),
					}, nil
				}).
				Build()

			h := newHarness(t, client, func(cfg *transfertypes.Config) {
				cfg.DownloadStrategy = transfertypes.StrategyRange
			})
			resp, err := h.manager.Download(context.Background(), request(), nil)
			require.NoError(t, err)
			defer resp.Body.Close()

			_, err = io.ReadAll(resp.Body)
			assert.ErrorIs(t, err, s3errors.ErrRangeIntegrity)
			assert.Equal(t, 1, h.recorder.Count(events.KindFailed))
		})
	}
}

func TestDownload_IncompleteFinalPart(t *testing.T) {
	data := testutil.NewTestDataGenerator(10).Bytes(10)
	client := testutil.NewMockBuilder().
		WithGetObject(func(_ context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			cr := "bytes 0-9/25"
			if aws.ToInt32(in.PartNumber) == 2 {
				cr = "bytes 10-19/25"
			}
			return &s3.GetObjectOutput{
				Body:         io.NopCloser(bytes.NewReader(data)),
				ContentRange: aws.String(cr),
				PartsCount:   aws.Int32(2),
				ETag:         aws.String(`"etag-2"`),
			}, nil
		}).
		Build()

	h := newHarness(t, client, nil)
	resp, err := h.manager.Download(context.Background(), request(), nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	_, err = io.ReadAll(resp.Body)
	var incomplete *s3errors.IncompleteRangeError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, int64(19), incomplete.End)
}

func TestDownload_CloseBeforeEOF(t *testing.T) {
	srv := testutil.NewObjectServer()
	srv.Put(bucket, key, testutil.NewTestDataGenerator(11).MultipartObject(50, 10))

	var mu sync.Mutex
	var bodies []*testutil.TrackedBody
	srv.WrapBody = func(_ *s3.GetObjectInput, body io.ReadCloser) io.ReadCloser {
		tracked := testutil.NewTrackedBody(body)
		mu.Lock()
		bodies = append(bodies, tracked)
		mu.Unlock()
		return tracked
	}

	h := newHarness(t, srv, func(cfg *transfertypes.Config) { cfg.Concurrency = 2 })
	callRecorder := &testutil.EventRecorder{}
	resp, err := h.manager.Download(context.Background(), request(), []transfertypes.CallListener{
		{Kind: events.KindBytesTransferred, Listener: callRecorder},
	})
	require.NoError(t, err)

	buf := make([]byte, 4)
	_, err = io.ReadFull(resp.Body, buf)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, resp.Body.Close())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, b := range bodies {
			if b.Closes() == 0 {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond)

	seen := callRecorder.Count(events.KindBytesTransferred)
	_, err = resp.Body.Read(buf)
	assert.ErrorIs(t, err, stream.ErrClosed)
	assert.Equal(t, seen, callRecorder.Count(events.KindBytesTransferred))
	assert.Equal(t, 0, h.recorder.Count(events.KindFailed))
	assert.Equal(t, 0, h.recorder.Count(events.KindComplete))
}

// contextBody blocks in Read until the request context is done.
type contextBody struct {
	ctx context.Context
}

func (b *contextBody) Read([]byte) (int, error) {
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func (b *contextBody) Close() error { return nil }

func TestDownload_CloseCancelsStalledBodyRead(t *testing.T) {
	api := testutil.NewMockBuilder().
		WithGetObject(func(ctx context.Context, _ *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{ContentLength: aws.Int64(10), Body: &contextBody{ctx: ctx}}, nil
		}).
		Build()
	h := newHarness(t, api, nil)

	resp, err := h.manager.Download(context.Background(), request(), nil)
	require.NoError(t, err)

	readErr := make(chan error, 1)
	go func() {
		_, err := resp.Body.Read(make([]byte, 4))
		readErr <- err
	}()
	time.Sleep(10 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		_ = resp.Body.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("close blocked behind a stalled body read")
	}
	select {
	case err := <-readErr:
		assert.ErrorIs(t, err, stream.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("read did not return after close")
	}
	assert.Equal(t, 0, h.recorder.Count(events.KindFailed))
}

func TestDownload_EmptyObjectRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var gets atomic.Int32
	api := testutil.NewMockBuilder().
		WithGetObject(func(context.Context, *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
			gets.Add(1)
			return nil, testutil.APIError("InvalidRange")
		}).
		WithHeadObject(func(context.Context, *s3.HeadObjectInput) (*s3.HeadObjectOutput, error) {
			cancel()
			return &s3.HeadObjectOutput{ContentLength: aws.Int64(0)}, nil
		}).
		Build()
	h := newHarness(t, api, func(cfg *transfertypes.Config) {
		cfg.DownloadStrategy = transfertypes.StrategyRange
	})

	_, err := h.manager.Download(ctx, request(), nil)
	assert.True(t, s3errors.IsAborted(err))
	assert.Equal(t, int32(1), gets.Load())
	assert.Equal(t, 0, h.recorder.Count(events.KindFailed))
}

func TestDownload_ConcurrencyBound(t *testing.T) {
	for _, limit := range []int{1, 2, 4} {
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			srv := testutil.NewObjectServer()
			obj := testutil.NewTestDataGenerator(12).MultipartObject(100, 10)
			srv.Put(bucket, key, obj)

			var inFlight, peak atomic.Int32
			srv.BeforeGet = func(context.Context, *s3.GetObjectInput) error {
				n := inFlight.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				return nil
			}
			srv.WrapBody = func(_ *s3.GetObjectInput, body io.ReadCloser) io.ReadCloser {
				return &onClose{ReadCloser: body, fn: func() { inFlight.Add(-1) }}
			}

			h := newHarness(t, srv, func(cfg *transfertypes.Config) { cfg.Concurrency = limit })
			data, _ := h.download(t, request())

			assert.Equal(t, obj.Data, data)
			assert.LessOrEqual(t, peak.Load(), int32(limit))
		})
	}
}

func TestDownload_CallListeners(t *testing.T) {
	srv := testutil.NewObjectServer()
	srv.Put(bucket, key, testutil.NewTestDataGenerator(13).MultipartObject(25, 10))
	h := newHarness(t, srv, nil)

	var once, every atomic.Int32
	resp, err := h.manager.Download(context.Background(), request(), []transfertypes.CallListener{
		{
			Kind:     events.KindBytesTransferred,
			Listener: events.ListenerFunc(func(events.Event) { once.Add(1) }),
			Config:   events.ListenerConfig{Once: true},
		},
		{
			Kind:     events.KindBytesTransferred,
			Listener: events.ListenerFunc(func(events.Event) { every.Add(1) }),
		},
	})
	require.NoError(t, err)
	_, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, int32(1), once.Load())
	assert.Equal(t, int32(h.recorder.Count(events.KindBytesTransferred)), every.Load())
}

func TestDownload_UnknownCallListenerKind(t *testing.T) {
	h := newHarness(t, testutil.NewObjectServer(), nil)
	_, err := h.manager.Download(context.Background(), request(), []transfertypes.CallListener{
		{Kind: "progress", Listener: &testutil.EventRecorder{}},
	})
	assert.ErrorIs(t, err, s3errors.ErrUnknownEventKind)
}

type onClose struct {
	io.ReadCloser
	once sync.Once
	fn   func()
}

func (c *onClose) Close() error {
	err := c.ReadCloser.Close()
	c.once.Do(c.fn)
	return err
}
