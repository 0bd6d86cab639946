package alloc

import (
	"github.com/wippyai/refbox/errors"
)

// wordSize is the minimum alignment and size granule of every allocator here.
const wordSize = 8

// normalizeAlign maps 0 to 1 and rejects alignments that are not powers of two.
func normalizeAlign(align uint32) (uint32, error) {
	if align == 0 {
		return 1, nil
	}
	if align&(align-1) != 0 {
		return 0, errors.New(errors.PhaseAlloc, errors.KindInvalidInput).
			Value(align).
			Detail("alignment %d is not a power of two", align).
			Build()
	}
	return align, nil
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
