package manager

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/semaphore"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/s3transfer/errors"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/events"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/operations/download"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/transfer/multipart"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/transfer/stream"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/transfertypes"
)

const opDownload = "download"

// Manager runs downloads for one client.
type Manager struct {
	fetcher *download.Fetcher
	cfg     transfertypes.Config
	global  *events.Registry
	logger  *slog.Logger
}

// New creates a Manager. Events are dispatched to global before the
// listeners registered for a single call.
func New(fetcher *download.Fetcher, cfg transfertypes.Config, global *events.Registry) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{fetcher: fetcher, cfg: cfg, global: global, logger: logger}
}

// Download starts a download and returns once the first sub-response has
// arrived. The returned body yields the object bytes in plan order and must be
// closed; closing it before EOF cancels every outstanding sub-request.
//
// listeners are registered for the lifetime of this call only and are removed
// when the body completes, fails or is closed, or when Download returns an error.
func (m *Manager) Download(
	ctx context.Context,
	req *transfertypes.DownloadRequest,
	listeners []transfertypes.CallListener,
) (*transfertypes.DownloadResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, &s3errors.AbortError{Cause: err}
	}

	plan, err := multipart.NewPlan(req, m.cfg)
	if err != nil {
		return nil, s3errors.NewObjectError(opDownload, req.Bucket, req.Key, err)
	}

	scope, cancel := context.WithCancel(ctx)
	t := &transfer{
		m:       m,
		ctx:     scope,
		cancel:  cancel,
		local:   events.NewRegistry(),
		plan:    plan,
		req:     req,
		sem:     semaphore.NewWeighted(int64(m.cfg.Concurrency)),
		logger:  m.logger.With("bucket", req.Bucket, "key", req.Key),
		started: time.Now(),
	}
	for _, l := range listeners {
		if _, err := t.local.Add(l.Kind, l.Listener, l.Config); err != nil {
			t.finish()
			return nil, err
		}
	}

	return t.start()
}

// transfer is the state of one Download call.
type transfer struct {
	m       *Manager
	ctx     context.Context
	cancel  context.CancelFunc
	local   *events.Registry
	plan    *multipart.Plan
	req     *transfertypes.DownloadRequest
	sem     *semaphore.Weighted
	logger  *slog.Logger
	started time.Time

	// Fixed once start returns.
	requests []*s3.GetObjectInput
	outputs  []*s3.GetObjectOutput
	tail     multipart.Tail
	first    validation.ContentRange
	ranged   bool
	expected int64

	// Touched only by the goroutine reading the body.
	merged *s3.GetObjectOutput
	last   validation.ContentRange
	read   int64

	finishOnce sync.Once
}

func (t *transfer) start() (*transfertypes.DownloadResponse, error) {
	t.logger.InfoContext(t.ctx, "starting download",
		"strategy", t.plan.Mode.String(),
		"partSize", t.m.cfg.PartSize,
		"concurrency", t.m.cfg.Concurrency)

	first, err := t.fetchFirst()
	if err != nil {
		t.logger.WarnContext(t.ctx, "download failed", "error", err)
		t.finish()
		return nil, err
	}

	t.requests = []*s3.GetObjectInput{t.plan.First}
	t.outputs = []*s3.GetObjectOutput{first}
	if err := t.describeFirst(first); err != nil {
		return nil, t.abandon(first, err)
	}

	tail, err := t.plan.Rest(first)
	if err != nil {
		return nil, t.abandon(first, err)
	}
	t.tail = tail
	t.requests = append(t.requests, tail.Requests...)
	t.outputs = append(t.outputs, make([]*s3.GetObjectOutput, len(tail.Requests))...)
	t.expected = t.expectedBytes(first)

	t.dispatch(events.InitiatedEvent{
		Request:  multipart.CloneInput(t.plan.First),
		Progress: events.Progress{TransferredBytes: 0, TotalBytes: t.expected},
	})

	sources := make([]stream.Source, len(t.requests))
	futures := make([]*stream.Future, len(t.requests))
	for i := range t.requests {
		futures[i] = stream.NewFuture()
		sources[i] = &partSource{t: t, index: i, future: futures[i]}
	}
	futures[0].Resolve(t.slotBody(first.Body), nil)

	if len(tail.Requests) > 0 {
		t.logger.DebugContext(t.ctx, "scheduling sub-requests", "count", len(tail.Requests))
		go t.schedule(futures[1:])
	}

	body := stream.Join(t.ctx, sources, stream.Hooks{
		OnBytes:      t.onBytes,
		OnCompletion: t.onCompletion,
		OnFailure:    t.onFailure,
		OnClose:      t.finish,
	})

	return &transfertypes.DownloadResponse{Output: t.initialOutput(first), Body: body}, nil
}

// fetchFirst issues the first sub-request. An empty object cannot satisfy the
// first planned window or part of a whole-object download; that case is
// detected with a HeadObject and retried as a plain GetObject.
func (t *transfer) fetchFirst() (*s3.GetObjectOutput, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}

	out, err := t.get(t.plan.First)
	if err == nil {
		return out, nil
	}

	if stderrors.Is(err, s3errors.ErrInvalidRange) && t.req.Range == "" && t.req.PartNumber == 0 {
		head, headErr := t.m.fetcher.Head(t.ctx, t.req.Bucket, t.req.Key, t.req.VersionID)
		if headErr == nil && aws.ToInt64(head.ContentLength) == 0 && t.ctx.Err() == nil {
			t.logger.DebugContext(t.ctx, "object is empty, fetching without range")
			t.plan.Whole()
			if out, err = t.get(t.plan.First); err == nil {
				return out, nil
			}
		}
	}

	t.sem.Release(1)
	if t.ctx.Err() != nil {
		return nil, &s3errors.AbortError{Cause: err}
	}
	t.dispatch(events.FailedEvent{
		Request:  multipart.CloneInput(t.plan.First),
		Progress: events.Progress{TransferredBytes: 0, TotalBytes: -1},
		Err:      err,
	})
	return nil, err
}

// abandon releases the first response after a failure that leaves nothing to join.
func (t *transfer) abandon(first *s3.GetObjectOutput, err error) error {
	_ = first.Body.Close()
	t.sem.Release(1)
	err = s3errors.NewObjectError(opDownload, t.req.Bucket, t.req.Key, err)
	t.dispatch(events.FailedEvent{
		Request:  multipart.CloneInput(t.plan.First),
		Progress: events.Progress{TransferredBytes: 0, TotalBytes: -1},
		Err:      err,
	})
	t.logger.WarnContext(t.ctx, "download failed", "error", err)
	t.finish()
	return err
}

// acquire takes a concurrency slot, failing with an AbortError once the
// download's context is done.
func (t *transfer) acquire() error {
	if err := t.ctx.Err(); err != nil {
		return &s3errors.AbortError{Cause: err}
	}
	if err := t.sem.Acquire(t.ctx, 1); err != nil {
		return &s3errors.AbortError{Cause: err}
	}
	if err := t.ctx.Err(); err != nil {
		t.sem.Release(1)
		return &s3errors.AbortError{Cause: err}
	}
	return nil
}

func (t *transfer) get(in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
	t.logger.DebugContext(t.ctx, "issuing sub-request",
		"partNumber", aws.ToInt32(in.PartNumber),
		"range", aws.ToString(in.Range))
	return t.m.fetcher.Get(t.ctx, in)
}

// schedule acquires slots for the remaining sub-requests in plan order, at most
// Concurrency at a time, and sends each from its own goroutine, so requests
// reach the server in any order. Each body holds its slot until it is closed.
func (t *transfer) schedule(futures []*stream.Future) {
	for i, f := range futures {
		if err := t.acquire(); err != nil {
			for _, rest := range futures[i:] {
				rest.Resolve(nil, err)
			}
			return
		}

		index := i + 1
		go func() {
			out, err := t.get(t.requests[index])
			if err != nil {
				t.sem.Release(1)
				if t.ctx.Err() != nil {
					err = &s3errors.AbortError{Cause: err}
				}
				f.Resolve(nil, err)
				return
			}
			t.outputs[index] = out
			f.Resolve(t.slotBody(out.Body), nil)
		}()
	}
}

// describeFirst records the byte range of the first response, if any.
func (t *transfer) describeFirst(first *s3.GetObjectOutput) error {
	if first.ContentRange == nil {
		return nil
	}
	cr, err := validation.ParseContentRange(aws.ToString(first.ContentRange))
	if err != nil {
		return err
	}
	t.first, t.ranged = cr, true
	return nil
}

// lastByte is the offset the joined body is expected to end at, or -1.
func (t *transfer) lastByte() int64 {
	switch {
	case t.tail.LastByte >= 0:
		return t.tail.LastByte
	case t.ranged:
		return t.first.End
	}
	return -1
}

func (t *transfer) expectedBytes(first *s3.GetObjectOutput) int64 {
	if t.ranged {
		return t.lastByte() - t.first.Start + 1
	}
	if first.ContentLength != nil {
		return aws.ToInt64(first.ContentLength)
	}
	return -1
}

// initialOutput describes the body the caller is about to read.
func (t *transfer) initialOutput(first *s3.GetObjectOutput) *s3.GetObjectOutput {
	out := &s3.GetObjectOutput{}
	multipart.MergeOutput(out, first)
	out.Body = nil
	if t.plan.Mode != multipart.ModeSingle && t.ranged {
		span := validation.ContentRange{Start: t.first.Start, End: t.lastByte(), Total: t.first.Total}
		multipart.Describe(out, span, t.plan.ExplicitRange())
	}
	return out
}

// accept validates the response of part index against the previous part and
// merges its metadata. Parts are accepted in plan order by the reading goroutine.
func (t *transfer) accept(index int) error {
	out := t.outputs[index]
	if index == 0 {
		t.merged = &s3.GetObjectOutput{}
		multipart.MergeOutput(t.merged, out)
		t.last = t.first
		return nil
	}

	cur, err := validation.ParseContentRange(aws.ToString(out.ContentRange))
	if err != nil {
		return err
	}
	if !t.ranged {
		return &s3errors.MalformedRangeError{Value: ""}
	}

	final := index == len(t.requests)-1
	if t.plan.Mode == multipart.ModeRange && !final {
		err = validation.ValidateContentRanges(t.last.String(), cur.String(), index)
	} else {
		err = validation.CheckSequence(t.last, cur, index)
	}
	if err == nil && final && t.tail.LastByte >= 0 {
		err = validation.CheckCoverage(cur, t.tail.LastByte, index)
	}
	if err != nil {
		return err
	}

	multipart.MergeOutput(t.merged, out)
	t.last = cur
	return nil
}

func (t *transfer) onBytes(total int64, index int) {
	t.read = total
	t.dispatch(events.BytesTransferredEvent{
		Request:   multipart.CloneInput(t.requests[index]),
		Progress:  events.Progress{TransferredBytes: total, TotalBytes: t.expected},
		PartIndex: index,
	})
}

func (t *transfer) onCompletion(total int64, lastIndex int) {
	response := t.merged
	if response == nil {
		response = &s3.GetObjectOutput{}
	}
	response.Body = nil
	if t.plan.Mode != multipart.ModeSingle && t.ranged {
		span := validation.ContentRange{Start: t.first.Start, End: t.last.End, Total: t.first.Total}
		multipart.Describe(response, span, t.plan.ExplicitRange())
	}

	t.dispatch(events.CompleteEvent{
		Request:  multipart.CloneInput(t.requests[max(lastIndex, 0)]),
		Progress: events.Progress{TransferredBytes: total, TotalBytes: t.expected},
		Response: response,
	})
	t.logger.InfoContext(t.ctx, "download complete",
		"bytes", total,
		"parts", len(t.requests),
		"duration", time.Since(t.started))
	t.finish()
}

func (t *transfer) onFailure(err error, index int) {
	t.dispatch(events.FailedEvent{
		Request:  multipart.CloneInput(t.requests[index]),
		Progress: events.Progress{TransferredBytes: t.read, TotalBytes: t.expected},
		Err:      err,
	})
	t.logger.WarnContext(t.ctx, "download failed", "part", index, "error", err)
	t.finish()
}

func (t *transfer) dispatch(e events.Event) {
	t.m.global.Dispatch(e)
	t.local.Dispatch(e)
}

// finish cancels outstanding sub-requests and removes the call's listeners.
func (t *transfer) finish() {
	t.finishOnce.Do(func() {
		t.cancel()
		t.local.RemoveAll()
	})
}

// slotBody ties a concurrency slot to the lifetime of a part body.
func (t *transfer) slotBody(body io.ReadCloser) io.ReadCloser {
	return &slotBody{ReadCloser: body, release: func() { t.sem.Release(1) }}
}

type slotBody struct {
	io.ReadCloser
	once    sync.Once
	release func()
}

func (b *slotBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.release)
	return err
}

// partSource is the joiner's view of one sub-request.
type partSource struct {
	t      *transfer
	index  int
	future *stream.Future
}

func (s *partSource) Open(ctx context.Context) (io.ReadCloser, error) {
	body, err := s.future.Open(ctx)
	if err != nil {
		if ctx.Err() != nil && !stderrors.Is(err, s3errors.ErrAborted) {
			err = &s3errors.AbortError{Cause: err}
		}
		return nil, err
	}
	if err := s.t.accept(s.index); err != nil {
		_ = body.Close()
		return nil, s3errors.NewObjectError(opDownload, s.t.req.Bucket, s.t.req.Key, err)
	}
	return body, nil
}

func (s *partSource) Discard() {
	s.future.Discard()
}
