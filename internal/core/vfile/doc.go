// Package vfile implements the virtual variable file: the in-memory
// abstraction exposing named byte-range variables over one service file,
// whether that file is memory-mapped locally or buffered from a remote peer.
//
// A virtual file holds a variable registry, the current buffer, and a shadow
// buffer. The shadow is the last reconciled state and serves as the baseline
// for change detection; it only advances on an explicit call, after the
// caller has durably propagated (or applied) a change.
package vfile
