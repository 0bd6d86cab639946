package box

import (
	"unsafe"

	"github.com/wippyai/refbox/errors"
)

// As reinterprets the handle's item storage as a *T.
// T must not contain Go pointers: the storage is not scanned by the GC.
// The pointer is valid until the block is released.
func As[T any](h *Handle) *T {
	buf := h.Get()
	var zero T
	size := unsafe.Sizeof(zero)
	if uintptr(len(buf)) < size {
		panic(errors.New(errors.PhaseGet, errors.KindOutOfBounds).
			Block(h.b.id).
			Size(uint32(len(buf))).
			Detail("item too small for %d-byte value", size).
			Build())
	}
	p := unsafe.Pointer(&buf[0])
	checkAlign(h, p, unsafe.Alignof(zero))
	return (*T)(p)
}

// AsSlice reinterprets the handle's item storage as a []T covering as many
// whole elements as fit. The same restrictions as As apply.
func AsSlice[T any](h *Handle) []T {
	buf := h.Get()
	var zero T
	size := unsafe.Sizeof(zero)
	if size == 0 {
		panic(errors.Unsupported(errors.PhaseGet, "zero-size element type"))
	}
	n := uintptr(len(buf)) / size
	if n == 0 {
		return nil
	}
	p := unsafe.Pointer(&buf[0])
	checkAlign(h, p, unsafe.Alignof(zero))
	return unsafe.Slice((*T)(p), n)
}

func checkAlign(h *Handle, p unsafe.Pointer, align uintptr) {
	if uintptr(p)%align != 0 {
		panic(errors.New(errors.PhaseGet, errors.KindUnsupported).
			Block(h.b.id).
			Detail("item storage not %d-byte aligned", align).
			Build())
	}
}
