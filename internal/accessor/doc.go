// Package accessor provides uniform byte-level access to a service file.
//
// Two implementations back the same capability contract:
//
//   - Local: a memory-mapped region of a backing file on disk. Reads and
//     writes act directly on mapped memory; a copy is made only when bytes
//     cross the API boundary as an owned value.
//   - Remote: an owned in-memory buffer, populated from a full-state
//     transfer and mutated by local writes and reconciled peer deltas.
//
// Callers hold the Accessor interface and never a concrete type. Any access
// past the current size fails with ErrInvalidRange rather than truncating.
package accessor
