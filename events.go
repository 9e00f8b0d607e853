package s3transfer

import (
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/events"
	"github.com/input-output-hk/catalyst-forge-libs/s3transfer/transfertypes"
)

// AddEventListener registers l for every download made by this client.
// It returns nil, nil when l is nil or WithSignal names a context that is
// already done. The returned Registration removes exactly this registration.
func (c *Client) AddEventListener(
	kind events.Kind,
	l events.Listener,
	opts ...transfertypes.ListenerOption,
) (*events.Registration, error) {
	return c.registry.Add(kind, l, listenerConfig(opts))
}

// RemoveEventListener removes every registration of l for kind.
// Function listeners can only be matched when registered through events.Func.
func (c *Client) RemoveEventListener(kind events.Kind, l events.Listener) {
	c.registry.Remove(kind, l)
}

// DispatchEvent delivers e to the client's listeners. It always returns true.
func (c *Client) DispatchEvent(e events.Event) bool {
	return c.registry.Dispatch(e)
}

// KnownEvent is satisfied by the event types a client dispatches.
type KnownEvent interface {
	events.InitiatedEvent | events.BytesTransferredEvent | events.CompleteEvent | events.FailedEvent
	events.Event
}

// Subscribe registers fn for the event type E.
//
//	reg, err := s3transfer.Subscribe(client, func(e events.BytesTransferredEvent) {
//	    fmt.Println(e.Progress.TransferredBytes)
//	})
func Subscribe[E KnownEvent](
	c *Client,
	fn func(E),
	opts ...transfertypes.ListenerOption,
) (*events.Registration, error) {
	var zero E
	return c.AddEventListener(zero.Kind(), events.ListenerFunc(func(e events.Event) {
		if typed, ok := e.(E); ok {
			fn(typed)
		}
	}), opts...)
}
