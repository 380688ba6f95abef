package diff

import (
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// Comparison chunk widths in bytes, widest first.
const (
	WidthAVX512 = 64
	WidthAVX2   = 32
	WidthWord   = 8
	WidthByte   = 1
)

var (
	widthOnce  sync.Once
	chunkWidth int
)

// Width returns the process-wide comparison chunk width. It is probed once
// from CPU capability and never re-probed.
func Width() int {
	widthOnce.Do(func() {
		chunkWidth = probeWidth()
	})
	return chunkWidth
}

func probeWidth() int {
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512BW):
		return WidthAVX512
	case cpuid.CPU.Supports(cpuid.AVX2):
		return WidthAVX2
	default:
		return WidthWord
	}
}
