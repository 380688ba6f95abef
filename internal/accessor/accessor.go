package accessor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/varmesh/varmesh-go/internal/core/domain"
)

// Accessor is the capability contract for raw byte access to a service
// file, local or remote.
type Accessor interface {
	// ReadRange returns an owned copy of n bytes starting at off.
	ReadRange(off, n uint64) ([]byte, error)

	// WriteRange writes p at off. The write is rejected, not truncated,
	// if it extends past the current size.
	WriteRange(off uint64, p []byte) error

	// Size returns the current total byte size.
	Size() uint64

	// Resize grows or shrinks the region to newSize, zero-filling new space.
	Resize(newSize uint64) error

	// IsLocal reports whether the accessor is backed by a mapped file.
	IsLocal() bool

	// Close releases the underlying resources. Further access fails.
	Close() error
}

// checkBounds validates [off, off+n) against size.
func checkBounds(off, n, size uint64) error {
	end := off + n
	if end < off || end > size {
		return domain.ErrInvalidRange.WithDetails(
			fmt.Sprintf("[%d,%d) exceeds size %d", off, off+n, size))
	}
	return nil
}

// DirPerm and FilePerm restrict service files to the owning user.
const (
	DirPerm  = 0o700
	FilePerm = 0o600
)

// DefaultDir returns the per-user directory holding backing files for local
// service files.
func DefaultDir() (string, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", domain.ErrAccessorUnavailable.WithCause(err)
	}
	return filepath.Join(cache, "varmesh"), nil
}

// EnsureDir creates dir with owner-only permissions if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return domain.ErrAccessorUnavailable.WithCause(err)
	}
	return nil
}

// ServiceFilePath returns the backing file path for a service inside dir.
// Backing files follow the service_<id>.mem naming convention.
func ServiceFilePath(dir, serviceID string) string {
	return filepath.Join(dir, fmt.Sprintf("service_%s.mem", serviceID))
}
