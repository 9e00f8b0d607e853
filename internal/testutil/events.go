package testutil

import (
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/events"
)

// EventRecorder is an events.Listener that records every event it receives.
type EventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

// HandleEvent records e.
func (r *EventRecorder) HandleEvent(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns the recorded events in dispatch order.
func (r *EventRecorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events of kind were recorded.
func (r *EventRecorder) Count(kind events.Kind) int {
	n := 0
	for _, e := range r.Events() {
		if e.Kind() == kind {
			n++
		}
	}
	return n
}

// Kinds returns the kinds of the recorded events in dispatch order.
func (r *EventRecorder) Kinds() []events.Kind {
	evs := r.Events()
	kinds := make([]events.Kind, len(evs))
	for i, e := range evs {
		kinds[i] = e.Kind()
	}
	return kinds
}

// Register subscribes r to every event kind on reg.
func (r *EventRecorder) Register(reg *events.Registry) error {
	for _, kind := range events.Kinds() {
		if _, err := reg.Add(kind, r, events.ListenerConfig{}); err != nil {
			return err
		}
	}
	return nil
}
