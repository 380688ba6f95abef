package accessor

import (
	"bytes"
	"errors"
	"testing"

	"github.com/varmesh/varmesh-go/internal/core/domain"
)

func TestRemote_WriteReadConsistency(t *testing.T) {
	r := NewRemoteWithSize(16)

	data := []byte{9, 8, 7, 6}
	if err := r.WriteRange(4, data); err != nil {
		t.Fatalf("WriteRange: %v", err)
	}

	got, err := r.ReadRange(4, 4)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("ReadRange = %v, want %v", got, data)
	}
}

func TestRemote_BoundsRejection(t *testing.T) {
	r := NewRemoteWithSize(8)

	if _, err := r.ReadRange(4, 8); !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("ReadRange err = %v, want ErrInvalidRange", err)
	}
	if err := r.WriteRange(7, []byte{1, 2}); !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("WriteRange err = %v, want ErrInvalidRange", err)
	}

	// Offset arithmetic must not wrap around.
	if _, err := r.ReadRange(^uint64(0), 2); !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("overflowing ReadRange err = %v, want ErrInvalidRange", err)
	}
}

func TestRemote_SetContents(t *testing.T) {
	r := NewRemote()
	if r.Size() != 0 {
		t.Fatalf("initial Size = %d, want 0", r.Size())
	}

	if err := r.SetContents([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("SetContents: %v", err)
	}
	if r.Size() != 4 {
		t.Fatalf("Size = %d, want 4", r.Size())
	}

	got, err := r.ReadRange(0, 4)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("ReadRange = %v", got)
	}
}

func TestRemote_ResizeZeroFills(t *testing.T) {
	r := NewRemoteWithSize(4)
	if err := r.WriteRange(0, []byte{1, 1, 1, 1}); err != nil {
		t.Fatalf("WriteRange: %v", err)
	}

	// Shrink, then grow back over the same capacity: the re-grown region
	// must read as zeroes, not stale bytes.
	if err := r.Resize(2); err != nil {
		t.Fatalf("Resize shrink: %v", err)
	}
	if err := r.Resize(4); err != nil {
		t.Fatalf("Resize grow: %v", err)
	}

	got, err := r.ReadRange(0, 4)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 1, 0, 0}) {
		t.Fatalf("after shrink+grow = %v, want [1 1 0 0]", got)
	}

	if err := r.Resize(8); err != nil {
		t.Fatalf("Resize beyond cap: %v", err)
	}
	got, err = r.ReadRange(0, 8)
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 1, 0, 0, 0, 0, 0, 0}) {
		t.Fatalf("after large grow = %v", got)
	}
}

func TestRemote_Close(t *testing.T) {
	r := NewRemoteWithSize(4)
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := r.ReadRange(0, 1); !errors.Is(err, domain.ErrAccessorClosed) {
		t.Fatalf("ReadRange after Close err = %v, want ErrAccessorClosed", err)
	}
	if r.IsLocal() {
		t.Fatal("Remote.IsLocal() = true")
	}
}

func TestServiceFilePath(t *testing.T) {
	got := ServiceFilePath("/tmp/varmesh", "svc1")
	want := "/tmp/varmesh/service_svc1.mem"
	if got != want {
		t.Fatalf("ServiceFilePath = %q, want %q", got, want)
	}
}
