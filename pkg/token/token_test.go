package token

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestNewKeyID(t *testing.T) {
	id, err := NewKeyID()
	if err != nil {
		t.Fatalf("NewKeyID() error = %v", err)
	}

	if !strings.HasPrefix(id, KeyIDPrefix) {
		t.Errorf("NewKeyID() = %q, want prefix %q", id, KeyIDPrefix)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(id, KeyIDPrefix))
	if err != nil {
		t.Errorf("NewKeyID() body is not valid base64: %v", err)
	}
	if len(decoded) != KeyIDLength {
		t.Errorf("NewKeyID() decoded length = %d, want %d", len(decoded), KeyIDLength)
	}

	if !IsKeyID(id) {
		t.Errorf("IsKeyID(%q) = false, want true", id)
	}
}

func TestNewKeyID_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := NewKeyID()
		if err != nil {
			t.Fatalf("NewKeyID() error = %v", err)
		}
		if seen[id] {
			t.Errorf("NewKeyID() produced duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestNewSecret(t *testing.T) {
	secret, err := NewSecret()
	if err != nil {
		t.Fatalf("NewSecret() error = %v", err)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(secret)
	if err != nil {
		t.Errorf("NewSecret() is not valid base64: %v", err)
	}
	if len(decoded) != SecretLength {
		t.Errorf("NewSecret() decoded length = %d, want %d", len(decoded), SecretLength)
	}
}

func TestIsKeyID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"vmk_abc123", true},
		{"vmk_", false},
		{"tmk_abc123", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsKeyID(tt.in); got != tt.want {
			t.Errorf("IsKeyID(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHashVerify(t *testing.T) {
	secret, err := NewSecret()
	if err != nil {
		t.Fatalf("NewSecret() error = %v", err)
	}

	hash := Hash(secret)
	if len(hash) != 64 {
		t.Errorf("Hash() length = %d, want 64", len(hash))
	}

	if !Verify(secret, hash) {
		t.Error("Verify() rejected the matching secret")
	}
	if Verify("wrong-secret", hash) {
		t.Error("Verify() accepted a wrong secret")
	}
}

func TestHash_Deterministic(t *testing.T) {
	if Hash("abc") != Hash("abc") {
		t.Error("Hash() is not deterministic")
	}
	if Hash("abc") == Hash("abd") {
		t.Error("Hash() collided on different inputs")
	}
}
