// Package sync reconciles a virtual file with its remote peer.
//
// Outbound, Push diffs current against shadow, ships the changed
// variables as a delta, and advances the shadow only after the server
// acknowledges. A failed send leaves the shadow alone so the same
// changes are picked up by the next push.
//
// Inbound, Apply writes a peer's delta into the file and advances the
// shadow over exactly the written ranges, so applied remote writes are
// never reported back while unpushed local edits stay visible to the
// next diff.
package sync
