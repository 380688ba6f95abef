package store

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/varmesh/varmesh-go/internal/core/domain"
)

// storeUnderTest runs the shared contract against any Store implementation.
func storeUnderTest(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.LoadServiceFile(ctx, "t1", "svc1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadServiceFile(missing) err = %v, want ErrNotFound", err)
	}

	content := []byte{1, 2, 3, 4}
	if err := s.SaveServiceFile(ctx, "t1", "svc1", content); err != nil {
		t.Fatalf("SaveServiceFile: %v", err)
	}
	if err := s.SaveServiceFile(ctx, "t1", "svc2", []byte{9}); err != nil {
		t.Fatalf("SaveServiceFile: %v", err)
	}
	if err := s.SaveServiceFile(ctx, "t2", "other", []byte{8}); err != nil {
		t.Fatalf("SaveServiceFile: %v", err)
	}

	got, err := s.LoadServiceFile(ctx, "t1", "svc1")
	if err != nil {
		t.Fatalf("LoadServiceFile: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("LoadServiceFile = %v, want %v", got, content)
	}

	services, err := s.ListServices(ctx, "t1")
	if err != nil {
		t.Fatalf("ListServices: %v", err)
	}
	sort.Strings(services)
	if len(services) != 2 || services[0] != "svc1" || services[1] != "svc2" {
		t.Fatalf("ListServices = %v, want [svc1 svc2]", services)
	}

	if err := s.DeleteServiceFile(ctx, "t1", "svc1"); err != nil {
		t.Fatalf("DeleteServiceFile: %v", err)
	}
	if _, err := s.LoadServiceFile(ctx, "t1", "svc1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadServiceFile(deleted) err = %v, want ErrNotFound", err)
	}

	// API keys.
	if _, err := s.Get(ctx, "vmk_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
	}

	key := &domain.APIKey{ID: "vmk_abc", SecretHash: "deadbeef", TenantID: "t1"}
	if err := s.Create(ctx, key); err != nil {
		t.Fatalf("Create: %v", err)
	}

	loaded, err := s.Get(ctx, "vmk_abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.SecretHash != "deadbeef" || loaded.TenantID != "t1" {
		t.Fatalf("Get = %+v", loaded)
	}

	keys, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("List len = %d, want 1", len(keys))
	}

	if err := s.Delete(ctx, "vmk_abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "vmk_abc"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(deleted) err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	storeUnderTest(t, s)
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.SaveServiceFile(context.Background(), "t1", "svc1", nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("SaveServiceFile after Close err = %v, want ErrClosed", err)
	}
}

func TestBadgerStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping badger store test in short mode")
	}

	s, err := NewBadgerStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	defer s.Close()

	storeUnderTest(t, s)
}

func TestBadgerStore_Persistence(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping badger store test in short mode")
	}

	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewBadgerStore(dir, nil)
	if err != nil {
		t.Fatalf("NewBadgerStore: %v", err)
	}
	if err := s.SaveServiceFile(ctx, "t1", "svc1", []byte{42}); err != nil {
		t.Fatalf("SaveServiceFile: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewBadgerStore(dir, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.LoadServiceFile(ctx, "t1", "svc1")
	if err != nil {
		t.Fatalf("LoadServiceFile after reopen: %v", err)
	}
	if !bytes.Equal(got, []byte{42}) {
		t.Fatalf("LoadServiceFile = %v, want [42]", got)
	}
}
