package accessor

import (
	"sync"

	"github.com/varmesh/varmesh-go/internal/core/domain"
)

// Remote is a buffered accessor for services reached over a transport. The
// buffer is installed from a full-state transfer and mutated afterwards by
// local writes and reconciled peer deltas.
type Remote struct {
	mu     sync.RWMutex
	buf    []byte
	closed bool
}

// NewRemote creates an empty remote accessor. SetContents installs the
// initial full-state payload.
func NewRemote() *Remote {
	return &Remote{}
}

// NewRemoteWithSize creates a zero-filled remote accessor of the given size.
func NewRemoteWithSize(size uint64) *Remote {
	return &Remote{buf: make([]byte, size)}
}

// SetContents replaces the whole buffer with data, taking ownership of it.
func (r *Remote) SetContents(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.ErrAccessorClosed
	}
	r.buf = data
	return nil
}

// ReadRange returns an owned copy of n bytes at off.
func (r *Remote) ReadRange(off, n uint64) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, domain.ErrAccessorClosed
	}
	if err := checkBounds(off, n, uint64(len(r.buf))); err != nil {
		return nil, err
	}

	out := make([]byte, n)
	copy(out, r.buf[off:off+n])
	return out, nil
}

// WriteRange writes p at off.
func (r *Remote) WriteRange(off uint64, p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.ErrAccessorClosed
	}
	if err := checkBounds(off, uint64(len(p)), uint64(len(r.buf))); err != nil {
		return err
	}

	copy(r.buf[off:], p)
	return nil
}

// Size returns the buffer length.
func (r *Remote) Size() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint64(len(r.buf))
}

// Resize grows or shrinks the buffer, zero-filling grown space.
func (r *Remote) Resize(newSize uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return domain.ErrAccessorClosed
	}

	switch {
	case newSize <= uint64(len(r.buf)):
		r.buf = r.buf[:newSize]
	case newSize <= uint64(cap(r.buf)):
		old := uint64(len(r.buf))
		r.buf = r.buf[:newSize]
		clear(r.buf[old:])
	default:
		grown := make([]byte, newSize)
		copy(grown, r.buf)
		r.buf = grown
	}
	return nil
}

// IsLocal reports false.
func (r *Remote) IsLocal() bool {
	return false
}

// Close drops the buffer. Close is idempotent.
func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.buf = nil
	return nil
}
