package domain

import "time"

// APIKey is a client credential scoped to one tenant.
type APIKey struct {
	// ID is the public key identifier sent with requests.
	ID string

	// SecretHash is the hex SHA-256 of the key secret. The secret itself
	// is never stored.
	SecretHash string

	// TenantID scopes the key.
	TenantID string

	// Services lists the service IDs this key may touch. Empty means
	// every service of the tenant.
	Services []string

	// Disabled blocks all use of the key without deleting it.
	Disabled bool

	CreatedAt  time.Time
	LastUsedAt time.Time
}

// IsActive reports whether the key may be used.
func (k *APIKey) IsActive() bool {
	return !k.Disabled
}

// MayAccess reports whether the key covers tenantID and serviceID.
func (k *APIKey) MayAccess(tenantID, serviceID string) bool {
	if k.Disabled || k.TenantID != tenantID {
		return false
	}
	if len(k.Services) == 0 {
		return true
	}
	for _, s := range k.Services {
		if s == serviceID {
			return true
		}
	}
	return false
}

// Touch records use of the key.
func (k *APIKey) Touch() {
	k.LastUsedAt = time.Now()
}
