// Package transport defines the message vocabulary and delivery contract
// between a VarMesh client and its server.
//
// The core only assumes a transport that delivers byte payloads reliably
// and order-preserving per connection: a full-state snapshot to initialize
// a remote buffer, and variable-level delta messages in both directions.
// Two implementations ship here: a websocket transport speaking JSON
// frames, and an in-memory loopback pair for tests.
package transport
