package store

import (
	"context"
	"sync"

	"github.com/varmesh/varmesh-go/internal/core/domain"
)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	files  map[string][]byte
	keys   map[string]*domain.APIKey
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		files: make(map[string][]byte),
		keys:  make(map[string]*domain.APIKey),
	}
}

// SaveServiceFile stores the current content of a service file.
func (s *MemoryStore) SaveServiceFile(_ context.Context, tenantID, serviceID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.files[string(serviceFileKey(tenantID, serviceID))] = buf
	return nil
}

// LoadServiceFile returns the stored content, or ErrNotFound.
func (s *MemoryStore) LoadServiceFile(_ context.Context, tenantID, serviceID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	data, ok := s.files[string(serviceFileKey(tenantID, serviceID))]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// DeleteServiceFile removes a service file.
func (s *MemoryStore) DeleteServiceFile(_ context.Context, tenantID, serviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.files, string(serviceFileKey(tenantID, serviceID)))
	return nil
}

// ListServices returns the service IDs stored for a tenant.
func (s *MemoryStore) ListServices(_ context.Context, tenantID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	prefix := prefixServiceFile + tenantID + "/"

	var services []string
	for key := range s.files {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			services = append(services, key[len(prefix):])
		}
	}
	return services, nil
}

// Get retrieves an API key by ID.
func (s *MemoryStore) Get(_ context.Context, keyID string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	key, ok := s.keys[keyID]
	if !ok {
		return nil, ErrNotFound
	}
	return key, nil
}

// Create stores a new API key.
func (s *MemoryStore) Create(_ context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.keys[key.ID] = key
	return nil
}

// Delete removes an API key.
func (s *MemoryStore) Delete(_ context.Context, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.keys, keyID)
	return nil
}

// List retrieves all API keys.
func (s *MemoryStore) List(_ context.Context) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	keys := make([]*domain.APIKey, 0, len(s.keys))
	for _, key := range s.keys {
		keys = append(keys, key)
	}
	return keys, nil
}

// Close marks the store closed. Idempotent.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
