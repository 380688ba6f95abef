package diff

import (
	"bytes"
	"encoding/binary"

	"github.com/varmesh/varmesh-go/internal/core/domain"
)

// Ranges compares current against shadow and returns the chunk-aligned byte
// intervals that differ, using the process-wide chunk width.
//
// If the buffers have different lengths no finer diff is attempted: the
// whole of current, [0, len(current)), is reported changed. Empty input
// yields nil.
func Ranges(current, shadow []byte) []domain.ChangedRange {
	return RangesWidth(current, shadow, Width())
}

// RangesWidth is Ranges with an explicit chunk width. The width must be a
// positive power of two; widths other than the probed one are intended for
// tests and for the trailing-remainder path.
func RangesWidth(current, shadow []byte, width int) []domain.ChangedRange {
	if len(current) == 0 && len(shadow) == 0 {
		return nil
	}
	if len(current) != len(shadow) {
		return []domain.ChangedRange{{Start: 0, End: uint64(len(current))}}
	}

	var ranges []domain.ChangedRange
	n := len(current)
	i := 0

	switch {
	case width >= WidthAVX2:
		// Wide vector chunks. bytes.Equal compiles to the platform's
		// memequal, which uses the widest available loads.
		for ; i+width <= n; i += width {
			if !bytes.Equal(current[i:i+width], shadow[i:i+width]) {
				ranges = append(ranges, domain.ChangedRange{Start: uint64(i), End: uint64(i + width)})
			}
		}
	case width >= WidthWord:
		for ; i+WidthWord <= n; i += WidthWord {
			a := binary.NativeEndian.Uint64(current[i:])
			b := binary.NativeEndian.Uint64(shadow[i:])
			if a != b {
				ranges = append(ranges, domain.ChangedRange{Start: uint64(i), End: uint64(i + WidthWord)})
			}
		}
	}

	// Trailing remainder is always compared one byte at a time, regardless
	// of which width handled the body.
	for ; i < n; i++ {
		if current[i] != shadow[i] {
			ranges = append(ranges, domain.ChangedRange{Start: uint64(i), End: uint64(i + 1)})
		}
	}

	return ranges
}

// Equal reports whether the buffers are byte-identical. It is the cheap
// precheck a caller can run before a full range scan.
func Equal(current, shadow []byte) bool {
	return bytes.Equal(current, shadow)
}
