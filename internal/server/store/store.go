package store

import (
	"context"
	"errors"

	"github.com/varmesh/varmesh-go/internal/core/domain"
)

// Common errors.
var (
	ErrNotFound = errors.New("store: not found")
	ErrClosed   = errors.New("store: closed")
)

// Store persists service file contents and API keys.
type Store interface {
	// SaveServiceFile stores the current content of a service file.
	SaveServiceFile(ctx context.Context, tenantID, serviceID string, data []byte) error

	// LoadServiceFile returns the stored content, or ErrNotFound.
	LoadServiceFile(ctx context.Context, tenantID, serviceID string) ([]byte, error)

	// DeleteServiceFile removes a service file.
	DeleteServiceFile(ctx context.Context, tenantID, serviceID string) error

	// ListServices returns the service IDs stored for a tenant.
	ListServices(ctx context.Context, tenantID string) ([]string, error)

	// Get retrieves an API key by ID, or ErrNotFound.
	Get(ctx context.Context, keyID string) (*domain.APIKey, error)

	// Create stores a new API key.
	Create(ctx context.Context, key *domain.APIKey) error

	// Delete removes an API key.
	Delete(ctx context.Context, keyID string) error

	// List retrieves all API keys.
	List(ctx context.Context) ([]*domain.APIKey, error)

	// Close releases resources.
	Close() error
}

// Key layout: one keyspace, prefix-separated record kinds.
const (
	prefixServiceFile = "svc/"
	prefixAPIKey      = "key/"
)

func serviceFileKey(tenantID, serviceID string) []byte {
	return []byte(prefixServiceFile + tenantID + "/" + serviceID)
}

func apiKeyKey(keyID string) []byte {
	return []byte(prefixAPIKey + keyID)
}
