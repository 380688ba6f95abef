// Package domain defines the core domain models for VarMesh.
//
// Domain models are pure value objects and entities without any
// IO dependencies or framework coupling. This package contains:
//
//   - Variable: Named byte-range metadata inside a service file
//   - ChangedRange: Half-open byte interval reported by a diff pass
//   - ChangeEvent: One debounced change notification for a service file
//   - Errors: Domain-specific error definitions
package domain
