package stream

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrDiscarded is returned by a Future that was discarded before being opened.
var ErrDiscarded = errors.New("stream: source discarded")

// Source yields one part body.
type Source interface {
	// Open blocks until the body is available or ctx is done.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Discarder is implemented by sources that hold resources before they are opened.
type Discarder interface {
	Discard()
}

// Body returns a Source for a body that is already available.
func Body(rc io.ReadCloser) Source {
	return &openSource{body: rc}
}

type openSource struct {
	mu   sync.Mutex
	body io.ReadCloser
}

func (s *openSource) Open(context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.body == nil {
		return nil, ErrDiscarded
	}
	body := s.body
	s.body = nil
	return body, nil
}

func (s *openSource) Discard() {
	s.mu.Lock()
	body := s.body
	s.body = nil
	s.mu.Unlock()
	if body != nil {
		_ = body.Close()
	}
}

// Future is a Source whose body is supplied later by a producer goroutine.
type Future struct {
	mu        sync.Mutex
	done      chan struct{}
	resolved  bool
	discarded bool
	body      io.ReadCloser
	err       error
}

// NewFuture creates an unresolved Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolve supplies the outcome. Only the first call has an effect; a body
// passed to a discarded or already-resolved Future is closed immediately.
func (f *Future) Resolve(body io.ReadCloser, err error) {
	f.mu.Lock()
	if f.resolved || f.discarded {
		if !f.resolved {
			f.resolved = true
			f.err = ErrDiscarded
			close(f.done)
		}
		f.mu.Unlock()
		if body != nil {
			_ = body.Close()
		}
		return
	}
	f.resolved = true
	f.body, f.err = body, err
	close(f.done)
	f.mu.Unlock()
}

// Open waits for Resolve and hands the body over to the caller.
func (f *Future) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-f.done:
	default:
		select {
		case <-f.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.discarded {
		return nil, ErrDiscarded
	}
	body, err := f.body, f.err
	f.body = nil
	if err != nil {
		if body != nil {
			_ = body.Close()
		}
		return nil, err
	}
	return body, nil
}

// Discard releases the body if it has not been opened. Later Resolve calls close
// whatever they supply.
func (f *Future) Discard() {
	f.mu.Lock()
	if f.discarded {
		f.mu.Unlock()
		return
	}
	f.discarded = true
	body := f.body
	f.body = nil
	f.mu.Unlock()

	if body != nil {
		_ = body.Close()
	}
}

// Done is closed once the Future has been resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}
