// Package client is the top-level entry point for sharing variable files.
//
// A Client owns the connection to the varmesh server, a file watcher, and
// a cache of open virtual files keyed by tenant and service. Local files
// are mmap-backed and watched for external writes; remote files live in
// memory and are initialized from a server snapshot. Every open goes
// through the permission gate first.
package client
