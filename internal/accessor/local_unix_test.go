//go:build unix

package accessor

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/varmesh/varmesh-go/internal/core/domain"
)

func newTestLocal(t *testing.T, size uint64) *Local {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service_test.mem")
	l, err := NewLocal(path, size)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLocal_WriteReadConsistency(t *testing.T) {
	l := newTestLocal(t, 32)

	data := []byte{0, 0, 0, 0, 0, 0, 0, 42}
	if err := l.WriteRange(0, data); err != nil {
		t.Fatalf("WriteRange: %v", err)
	}

	got, err := l.ReadRange(0, 8)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("ReadRange = %v, want %v", got, data)
	}
}

func TestLocal_WritesReachBackingFile(t *testing.T) {
	l := newTestLocal(t, 8)

	if err := l.WriteRange(0, []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatalf("WriteRange: %v", err)
	}
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	onDisk, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(onDisk, []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("backing file = %v", onDisk)
	}
}

func TestLocal_BoundsRejection(t *testing.T) {
	l := newTestLocal(t, 8)

	if _, err := l.ReadRange(0, 9); !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("ReadRange err = %v, want ErrInvalidRange", err)
	}
	if err := l.WriteRange(8, []byte{1}); !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("WriteRange err = %v, want ErrInvalidRange", err)
	}
}

func TestLocal_Resize(t *testing.T) {
	l := newTestLocal(t, 8)
	if err := l.WriteRange(0, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteRange: %v", err)
	}

	if err := l.Resize(16); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if l.Size() != 16 {
		t.Fatalf("Size = %d, want 16", l.Size())
	}

	got, err := l.ReadRange(0, 16)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	want := []byte{1, 2, 3, 4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Fatalf("after Resize = %v, want %v", got, want)
	}
}

func TestLocal_AdoptsExistingFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service_existing.mem")
	if err := os.WriteFile(path, bytes.Repeat([]byte{7}, 24), FilePerm); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	l, err := NewLocal(path, 8)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	defer l.Close()

	if l.Size() != 24 {
		t.Fatalf("Size = %d, want existing 24", l.Size())
	}
}

func TestCreateLocal_OwnedFileLifecycle(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "varmesh")

	l, err := CreateLocal(dir, "svc9", 16)
	if err != nil {
		t.Fatalf("CreateLocal: %v", err)
	}

	info, err := os.Stat(l.Path())
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != FilePerm {
		t.Fatalf("file perm = %o, want %o", perm, FilePerm)
	}

	dirInfo, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Stat dir: %v", err)
	}
	if perm := dirInfo.Mode().Perm(); perm != DirPerm {
		t.Fatalf("dir perm = %o, want %o", perm, DirPerm)
	}

	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
		t.Fatalf("backing file still present after Close: %v", err)
	}
}

func TestLocal_CloseIdempotent(t *testing.T) {
	l := newTestLocal(t, 8)
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := l.ReadRange(0, 1); !errors.Is(err, domain.ErrAccessorClosed) {
		t.Fatalf("ReadRange after Close err = %v, want ErrAccessorClosed", err)
	}
}
