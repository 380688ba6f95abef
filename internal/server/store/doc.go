// Package store persists server state: the last acknowledged content of
// every service file, and the API keys that may touch them.
//
// Two implementations share one interface. BadgerStore keeps state on
// disk so reconnecting clients get a faithful snapshot after a restart;
// MemoryStore keeps everything in process memory for tests and
// ephemeral deployments.
package store
