//go:build unix

package accessor

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/varmesh/varmesh-go/internal/core/domain"
)

// Local is a mapped-file accessor. The backing file is exclusively owned by
// the virtual file that created it for its lifetime; correctness is only
// guaranteed for one Local per path per process.
type Local struct {
	mu     sync.RWMutex
	path   string
	file   *os.File
	mem    []byte
	owned  bool // remove the backing file on Close
	closed bool
}

// NewLocal opens (creating if needed) the backing file at path, sizes it to
// at least size bytes, and maps it read-write.
func NewLocal(path string, size uint64) (*Local, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, FilePerm)
	if err != nil {
		return nil, domain.ErrAccessorUnavailable.WithCause(err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, domain.ErrAccessorUnavailable.WithCause(err)
	}
	if uint64(info.Size()) < size {
		if err := file.Truncate(int64(size)); err != nil {
			file.Close()
			return nil, domain.ErrAccessorUnavailable.WithCause(err)
		}
	} else {
		size = uint64(info.Size())
	}

	mem, err := mapFile(file, size)
	if err != nil {
		file.Close()
		return nil, err
	}

	return &Local{path: path, file: file, mem: mem}, nil
}

// CreateLocal creates a fresh backing file for serviceID inside dir and maps
// it. The file is removed again when the accessor is closed.
func CreateLocal(dir, serviceID string, size uint64) (*Local, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	l, err := NewLocal(ServiceFilePath(dir, serviceID), size)
	if err != nil {
		return nil, err
	}
	l.owned = true
	return l, nil
}

func mapFile(file *os.File, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	mem, err := unix.Mmap(int(file.Fd()), 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, domain.ErrAccessorUnavailable.WithCause(
			fmt.Errorf("mmap %s: %w", file.Name(), err))
	}
	return mem, nil
}

// Path returns the backing file path.
func (l *Local) Path() string {
	return l.path
}

// ReadRange copies n bytes at off out of the mapping.
func (l *Local) ReadRange(off, n uint64) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, domain.ErrAccessorClosed
	}
	if err := checkBounds(off, n, uint64(len(l.mem))); err != nil {
		return nil, err
	}

	out := make([]byte, n)
	copy(out, l.mem[off:off+n])
	return out, nil
}

// WriteRange writes p at off directly into the mapping.
func (l *Local) WriteRange(off uint64, p []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return domain.ErrAccessorClosed
	}
	if err := checkBounds(off, uint64(len(p)), uint64(len(l.mem))); err != nil {
		return err
	}

	copy(l.mem[off:], p)
	return nil
}

// Size returns the mapped length.
func (l *Local) Size() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return uint64(len(l.mem))
}

// Resize unmaps, truncates the backing file, and remaps.
func (l *Local) Resize(newSize uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return domain.ErrAccessorClosed
	}

	if l.mem != nil {
		if err := unix.Munmap(l.mem); err != nil {
			return domain.ErrAccessorUnavailable.WithCause(err)
		}
		l.mem = nil
	}
	if err := l.file.Truncate(int64(newSize)); err != nil {
		return domain.ErrAccessorUnavailable.WithCause(err)
	}

	mem, err := mapFile(l.file, newSize)
	if err != nil {
		return err
	}
	l.mem = mem
	return nil
}

// IsLocal reports true.
func (l *Local) IsLocal() bool {
	return true
}

// Sync flushes the mapping to the backing file.
func (l *Local) Sync() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return domain.ErrAccessorClosed
	}
	if l.mem == nil {
		return nil
	}
	if err := unix.Msync(l.mem, unix.MS_SYNC); err != nil {
		return domain.ErrAccessorUnavailable.WithCause(err)
	}
	return nil
}

// Close unmaps the region and closes the backing file. If the accessor
// created the file, the file is removed. Close is idempotent.
func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	var firstErr error
	if l.mem != nil {
		if err := unix.Munmap(l.mem); err != nil {
			firstErr = err
		}
		l.mem = nil
	}
	if err := l.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if l.owned {
		if err := os.Remove(l.path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return domain.ErrAccessorUnavailable.WithCause(firstErr)
	}
	return nil
}
