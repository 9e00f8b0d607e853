// Package events implements the transfer lifecycle events and the listener
// registry that dispatches them.
//
// Four kinds of events exist: Initiated, BytesTransferred, Complete and Failed.
// Listeners are registered per kind on a Registry and are invoked synchronously,
// in registration order, on the goroutine that dispatches the event. A
// registration may be limited to a single invocation (Once) or tied to a
// context whose cancellation removes it (Signal).
package events
