//go:build !unix

package accessor

import "github.com/varmesh/varmesh-go/internal/core/domain"

// Local is unavailable on platforms without mmap support; remote accessors
// still work everywhere.
type Local struct{}

// NewLocal always fails on this platform.
func NewLocal(path string, size uint64) (*Local, error) {
	return nil, domain.ErrAccessorUnavailable.WithDetails("memory mapping not supported on this platform")
}

// CreateLocal always fails on this platform.
func CreateLocal(dir, serviceID string, size uint64) (*Local, error) {
	return nil, domain.ErrAccessorUnavailable.WithDetails("memory mapping not supported on this platform")
}

func (l *Local) Path() string { return "" }

func (l *Local) ReadRange(off, n uint64) ([]byte, error) {
	return nil, domain.ErrAccessorUnavailable
}

func (l *Local) WriteRange(off uint64, p []byte) error { return domain.ErrAccessorUnavailable }

func (l *Local) Size() uint64 { return 0 }

func (l *Local) Resize(newSize uint64) error { return domain.ErrAccessorUnavailable }

func (l *Local) IsLocal() bool { return true }

func (l *Local) Sync() error { return domain.ErrAccessorUnavailable }

func (l *Local) Close() error { return nil }
