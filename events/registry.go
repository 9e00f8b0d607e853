package events

import (
	"context"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	s3errors "github.com/input-output-hk/catalyst-forge-libs/s3transfer/errors"
)

// Registry maps event kinds to ordered listener registrations.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.Mutex
	listeners map[Kind][]*Registration
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{listeners: make(map[Kind][]*Registration)}
}

// Registration is the handle of one listener registration.
type Registration struct {
	kind     Kind
	listener Listener
	once     bool
	signal   context.Context
	registry *Registry

	removed atomic.Bool
	fired   atomic.Bool
	stop    func() bool // guarded by registry.mu
}

// Kind returns the event kind the registration listens for.
func (r *Registration) Kind() Kind { return r.kind }

// Active reports whether the registration is still attached to its registry
// and its signal, if any, has not fired.
func (r *Registration) Active() bool {
	return r != nil && !r.removed.Load() && !r.signalled()
}

func (r *Registration) signalled() bool {
	return r.signal != nil && r.signal.Err() != nil
}

// Remove detaches the registration. It is safe to call more than once and on a nil handle.
func (r *Registration) Remove() {
	if r == nil {
		return
	}
	r.registry.detach(r)
}

// Add appends l to the listeners of kind.
//
// A nil listener or an already-done cfg.Signal registers nothing and returns a
// nil Registration. Unknown kinds return an UnknownEventKindError.
func (r *Registry) Add(kind Kind, l Listener, cfg ListenerConfig) (*Registration, error) {
	if !kind.Valid() {
		return nil, &s3errors.UnknownEventKindError{Kind: string(kind)}
	}
	if l == nil {
		return nil, nil
	}
	if cfg.Signal != nil && cfg.Signal.Err() != nil {
		return nil, nil
	}

	reg := &Registration{kind: kind, listener: l, once: cfg.Once, signal: cfg.Signal, registry: r}

	r.mu.Lock()
	r.listeners[kind] = append(r.listeners[kind], reg)
	r.mu.Unlock()

	// Dispatch skips a signalled registration on its own; AfterFunc only
	// detaches registrations that see no further dispatches.
	if cfg.Signal != nil {
		stop := context.AfterFunc(cfg.Signal, reg.Remove)
		r.mu.Lock()
		if reg.removed.Load() {
			r.mu.Unlock()
			stop()
		} else {
			reg.stop = stop
			r.mu.Unlock()
		}
	}
	return reg, nil
}

// Remove detaches every registration of kind whose listener is l.
// Listeners of non-comparable types never match.
func (r *Registry) Remove(kind Kind, l Listener) {
	if l == nil || !reflect.TypeOf(l).Comparable() {
		return
	}

	r.mu.Lock()
	var matched []*Registration
	for _, reg := range r.listeners[kind] {
		if reflect.TypeOf(reg.listener).Comparable() && reg.listener == l {
			matched = append(matched, reg)
		}
	}
	r.mu.Unlock()

	for _, reg := range matched {
		reg.Remove()
	}
}

// RemoveAll detaches every registration.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	var all []*Registration
	for _, regs := range r.listeners {
		all = append(all, regs...)
	}
	r.mu.Unlock()

	for _, reg := range all {
		reg.Remove()
	}
}

// Len returns the number of active registrations for kind.
func (r *Registry) Len(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[kind])
}

// Dispatch synchronously invokes the listeners registered for e.Kind() in
// registration order. Listeners removed during dispatch are skipped. Panics
// raised by listeners are not recovered. Dispatch always returns true.
func (r *Registry) Dispatch(e Event) bool {
	if e == nil {
		return true
	}

	r.mu.Lock()
	snapshot := slices.Clone(r.listeners[e.Kind()])
	r.mu.Unlock()

	for _, reg := range snapshot {
		if reg.removed.Load() {
			continue
		}
		if reg.signalled() {
			reg.Remove()
			continue
		}
		if reg.once {
			if !reg.fired.CompareAndSwap(false, true) {
				continue
			}
			reg.Remove()
		}
		reg.listener.HandleEvent(e)
	}
	return true
}

func (r *Registry) detach(reg *Registration) {
	r.mu.Lock()
	if !reg.removed.CompareAndSwap(false, true) {
		r.mu.Unlock()
		return
	}
	r.listeners[reg.kind] = slices.DeleteFunc(r.listeners[reg.kind], func(x *Registration) bool {
		return x == reg
	})
	if len(r.listeners[reg.kind]) == 0 {
		delete(r.listeners, reg.kind)
	}
	stop := reg.stop
	reg.stop = nil
	r.mu.Unlock()

	if stop != nil {
		stop()
	}
}
