package service

import (
	"context"
	"time"

	"github.com/varmesh/varmesh-go/internal/core/domain"
	"github.com/varmesh/varmesh-go/pkg/token"
)

// APIKeyRepository defines the storage interface for API key operations.
type APIKeyRepository interface {
	// Get retrieves an API key by ID.
	Get(ctx context.Context, keyID string) (*domain.APIKey, error)

	// Create creates a new API key.
	Create(ctx context.Context, key *domain.APIKey) error

	// Delete deletes an API key by ID.
	Delete(ctx context.Context, keyID string) error

	// List retrieves all API keys.
	List(ctx context.Context) ([]*domain.APIKey, error)
}

// AuthService handles API key authentication and access decisions.
type AuthService struct {
	repo APIKeyRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo APIKeyRepository) *AuthService {
	return &AuthService{repo: repo}
}

// Authenticate validates a key ID and secret. On success the resolved
// key carries the tenant scope and service allowlist for the connection.
func (s *AuthService) Authenticate(ctx context.Context, keyID, secret string) (*domain.APIKey, error) {
	if !token.IsKeyID(keyID) {
		return nil, domain.ErrNotAuthenticated.WithDetails("malformed key id")
	}

	key, err := s.repo.Get(ctx, keyID)
	if err != nil {
		// Hash anyway so lookup misses cost the same as mismatches.
		token.Verify(secret, token.Hash("varmesh"))
		return nil, domain.ErrNotAuthenticated.WithCause(err)
	}

	if !token.Verify(secret, key.SecretHash) {
		return nil, domain.ErrNotAuthenticated.WithDetails("secret mismatch")
	}
	if !key.IsActive() {
		return nil, domain.ErrNotAuthenticated.WithDetails("key disabled")
	}

	key.Touch()
	return key, nil
}

// Authorize checks that key may touch serviceID within tenantID.
func (s *AuthService) Authorize(key *domain.APIKey, tenantID, serviceID string) error {
	if key == nil {
		return domain.ErrNotAuthenticated
	}
	if !key.MayAccess(tenantID, serviceID) {
		return domain.ErrPermissionDenied.WithDetails(tenantID + "_" + serviceID)
	}
	return nil
}

// IssueKey creates and stores a new API key for a tenant, returning the
// key and its plaintext secret. The secret is shown exactly once.
func (s *AuthService) IssueKey(ctx context.Context, tenantID string, services []string) (*domain.APIKey, string, error) {
	keyID, err := token.NewKeyID()
	if err != nil {
		return nil, "", err
	}
	secret, err := token.NewSecret()
	if err != nil {
		return nil, "", err
	}

	key := &domain.APIKey{
		ID:         keyID,
		SecretHash: token.Hash(secret),
		TenantID:   tenantID,
		Services:   services,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return nil, "", err
	}
	return key, secret, nil
}
