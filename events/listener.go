package events

import (
	"context"
)

// Listener receives dispatched events.
type Listener interface {
	HandleEvent(Event)
}

// ListenerFunc adapts a plain function to the Listener interface.
//
// Function values cannot be compared, so a ListenerFunc registered by value
// can only be removed through its Registration. Use Func to obtain a pointer
// that RemoveListener can match.
type ListenerFunc func(Event)

// HandleEvent calls f(e).
func (f ListenerFunc) HandleEvent(e Event) { f(e) }

// Func wraps fn in a ListenerFunc pointer with a stable identity.
func Func(fn func(Event)) *ListenerFunc {
	l := ListenerFunc(fn)
	return &l
}

// ListenerConfig controls a single registration.
type ListenerConfig struct {
	// Once removes the registration before its first invocation.
	Once bool

	// Signal removes the registration when done. An already-done Signal makes
	// the registration a no-op.
	Signal context.Context
}
