package transport

import "context"

// Inbound is one message delivered by the transport: exactly one of
// Snapshot or Delta is set.
type Inbound struct {
	Snapshot *FullSnapshot
	Delta    *Delta
}

// Transport delivers variable-level deltas and full-state snapshots,
// reliably and order-preserving per connection. The core never retries
// delivery; a failed SendDelta surfaces to the caller, which owns the
// retry policy.
type Transport interface {
	// SendDelta delivers a change set and blocks until the peer
	// acknowledges it or the context is done.
	SendDelta(ctx context.Context, serviceID string, names []string, pairs []Pair) error

	// Receive blocks for the next inbound snapshot or delta.
	Receive(ctx context.Context) (Inbound, error)

	// Close tears the connection down.
	Close() error
}
