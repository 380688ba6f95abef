// Package diff implements chunked change detection between two equal-length
// byte buffers.
//
// The buffer is partitioned into fixed-width chunks and each chunk is tested
// for equality as a single wide operation. The chunk width is probed once per
// process from hardware capability (widest vector compare first, then the
// native word, then single bytes) and treated as immutable configuration
// afterwards.
//
// Emitted ranges are chunk-aligned, strictly ascending, and pairwise
// disjoint. Adjacent differing chunks appear as separate ranges; callers that
// need coarser granularity map ranges onto variables instead of merging.
package diff
