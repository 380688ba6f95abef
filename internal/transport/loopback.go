package transport

import (
	"context"
	"sync"

	"github.com/varmesh/varmesh-go/internal/core/domain"
)

// Loopback is an in-memory Transport half. Deltas sent on one half arrive
// at the other, acknowledged immediately. Used in tests and for wiring two
// virtual files inside one process.
type Loopback struct {
	peer *Loopback

	mu      sync.Mutex
	sendErr error

	in        chan Inbound
	done      chan struct{}
	closeOnce sync.Once
}

// NewLoopbackPair creates two connected transport halves.
func NewLoopbackPair() (*Loopback, *Loopback) {
	a := &Loopback{in: make(chan Inbound, 16), done: make(chan struct{})}
	b := &Loopback{in: make(chan Inbound, 16), done: make(chan struct{})}
	a.peer = b
	b.peer = a
	return a, b
}

// FailNextSends makes SendDelta return err until reset with nil.
func (l *Loopback) FailNextSends(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sendErr = err
}

// SendDelta hands the change set to the peer and acks immediately.
func (l *Loopback) SendDelta(ctx context.Context, serviceID string, names []string, pairs []Pair) error {
	l.mu.Lock()
	sendErr := l.sendErr
	l.mu.Unlock()
	if sendErr != nil {
		return sendErr
	}

	delta := Delta{ServiceID: serviceID, Names: names, Pairs: pairs}
	select {
	case l.peer.in <- Inbound{Delta: &delta}:
		return nil
	case <-ctx.Done():
		return domain.ErrTimeout.WithCause(ctx.Err())
	case <-l.done:
		return domain.ErrConnectionLost
	case <-l.peer.done:
		return domain.ErrConnectionLost
	}
}

// Deliver injects an inbound message directly into this half, as if the
// peer's server had pushed it.
func (l *Loopback) Deliver(in Inbound) {
	select {
	case l.in <- in:
	case <-l.done:
	}
}

// Receive blocks for the next inbound message.
func (l *Loopback) Receive(ctx context.Context) (Inbound, error) {
	select {
	case in := <-l.in:
		return in, nil
	case <-ctx.Done():
		return Inbound{}, ctx.Err()
	case <-l.done:
		return Inbound{}, domain.ErrConnectionLost
	}
}

// Close tears this half down. Idempotent.
func (l *Loopback) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	return nil
}
