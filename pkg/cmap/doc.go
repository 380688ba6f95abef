// Package cmap provides a concurrent-safe sharded map keyed by string.
//
// Sharding reduces lock contention compared to a single mutex-guarded map.
// Every key in this codebase is a file path or a service ID, so the map is
// specialized to string keys and uses maphash.String directly.
package cmap
