// Package service provides domain services for varmesh.
//
// AuthService handles API key authentication and decides which services
// an authenticated client may touch.
package service
