package stream

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Read after Close.
var ErrClosed = errors.New("stream: read from closed reader")

// Hooks are invoked by the Reader outside its internal lock, on the reading goroutine
// (OnClose on the closing goroutine). Any of them may be nil.
type Hooks struct {
	// OnBytes runs after each non-empty chunk read from the part at index.
	OnBytes func(total int64, index int)
	// OnCompletion runs once, after the last part reaches EOF.
	OnCompletion func(total int64, lastIndex int)
	// OnFailure runs once, when opening or reading the part at index fails.
	OnFailure func(err error, index int)
	// OnClose runs once, when the Reader is closed, before Close waits for an
	// in-flight Read. It must make blocked part bodies return.
	OnClose func()
}

// Reader is the joined body. It may be read once, front to back.
type Reader struct {
	ctx     context.Context
	cancel  context.CancelFunc
	sources []Source
	hooks   Hooks

	mu      sync.Mutex
	index   int
	current io.ReadCloser
	total   int64
	err     error
	closed  bool

	closing   atomic.Bool
	closeOnce sync.Once
}

// Join returns a Reader that yields the bodies of sources in order.
// Reads never span two parts, so a single source is passed through unchanged.
func Join(ctx context.Context, sources []Source, hooks Hooks) *Reader {
	ctx, cancel := context.WithCancel(ctx)
	return &Reader{ctx: ctx, cancel: cancel, sources: sources, hooks: hooks}
}

type notification struct {
	kind  int
	total int64
	index int
	err   error
}

const (
	notifyBytes = iota
	notifyCompletion
	notifyFailure
)

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	r.mu.Lock()
	n, pending, err := r.read(p)
	r.mu.Unlock()

	for _, note := range pending {
		r.notify(note)
	}
	return n, err
}

func (r *Reader) read(p []byte) (int, []notification, error) {
	var pending []notification
	for {
		switch {
		case r.closed:
			return 0, pending, ErrClosed
		case r.err != nil:
			return 0, pending, r.err
		case r.index >= len(r.sources):
			if len(r.sources) == 0 && r.index == 0 {
				r.index++
				pending = append(pending, notification{kind: notifyCompletion, total: 0, index: -1})
			}
			return 0, pending, io.EOF
		}

		if r.current == nil {
			body, err := r.sources[r.index].Open(r.ctx)
			if err != nil {
				pending = append(pending, r.fail(err)...)
				return 0, pending, r.err
			}
			r.current = body
		}

		n, err := r.current.Read(p)
		if n > 0 {
			r.total += int64(n)
			pending = append(pending, notification{kind: notifyBytes, total: r.total, index: r.index})
		}

		switch {
		case errors.Is(err, io.EOF):
			_ = r.current.Close()
			r.current = nil
			r.index++
			if r.index == len(r.sources) {
				pending = append(pending, notification{kind: notifyCompletion, total: r.total, index: r.index - 1})
				if n > 0 {
					return n, pending, nil
				}
				return 0, pending, io.EOF
			}
			if n > 0 {
				return n, pending, nil
			}
		case err != nil:
			pending = append(pending, r.fail(err)...)
			return n, pending, r.err
		case n > 0:
			return n, pending, nil
		}
	}
}

// fail records a sticky error and releases every remaining part. Failures caused
// by a concurrent Close are not reported. Callers hold r.mu.
func (r *Reader) fail(err error) []notification {
	index := r.index
	r.release()
	if r.closing.Load() {
		r.err = ErrClosed
		return nil
	}
	r.err = err
	return []notification{{kind: notifyFailure, err: err, index: index}}
}

// release closes the open body and discards unopened sources. Callers hold r.mu.
func (r *Reader) release() {
	next := r.index
	if r.current != nil {
		_ = r.current.Close()
		r.current = nil
		next++
	}
	for ; next < len(r.sources); next++ {
		if d, ok := r.sources[next].(Discarder); ok {
			d.Discard()
		}
	}
	r.index = len(r.sources) + 1
}

func (r *Reader) notify(note notification) {
	switch note.kind {
	case notifyBytes:
		if r.hooks.OnBytes != nil {
			r.hooks.OnBytes(note.total, note.index)
		}
	case notifyCompletion:
		if r.hooks.OnCompletion != nil {
			r.hooks.OnCompletion(note.total, note.index)
		}
	case notifyFailure:
		if r.hooks.OnFailure != nil {
			r.hooks.OnFailure(note.err, note.index)
		}
	}
}

// Close stops the Reader and releases every part that has not been consumed.
// It is safe to call more than once.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		r.closing.Store(true)
		r.cancel()
		if r.hooks.OnClose != nil {
			r.hooks.OnClose()
		}

		r.mu.Lock()
		r.closed = true
		if r.index <= len(r.sources) {
			r.release()
		}
		r.mu.Unlock()
	})
	return nil
}

// BytesRead returns the number of bytes yielded so far.
func (r *Reader) BytesRead() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}
