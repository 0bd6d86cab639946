package alloc

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/refbox"
	"github.com/wippyai/refbox/errors"
)

// Heap allocates every region as its own Go heap object.
// Addresses are opaque region ids, regions are 8-byte aligned.
type Heap struct {
	regions map[uint32][]byte
	stats   refbox.Stats
	next    uint32
}

// NewHeap creates an empty heap allocator.
func NewHeap() *Heap {
	return &Heap{
		regions: make(map[uint32][]byte),
		next:    1,
	}
}

// Alloc reserves size bytes. Alignments above 8 are not supported.
func (h *Heap) Alloc(size, align uint32) (uint32, error) {
	if size == 0 {
		h.stats.Failures++
		return 0, errors.InvalidInput(errors.PhaseAlloc, "zero-size allocation")
	}
	align, err := normalizeAlign(align)
	if err != nil {
		h.stats.Failures++
		return 0, err
	}
	if align > wordSize {
		h.stats.Failures++
		return 0, errors.New(errors.PhaseAlloc, errors.KindUnsupported).
			Size(size).
			Detail("heap regions are at most %d-byte aligned, got align %d", wordSize, align).
			Build()
	}
	if h.next == 0 {
		h.stats.Failures++
		return 0, errors.New(errors.PhaseAlloc, errors.KindOutOfMemory).
			Size(size).
			Detail("region ids exhausted").
			Build()
	}

	// Backing the region with words pins its alignment to 8.
	words := make([]uint64, (uint64(size)+wordSize-1)/wordSize)
	buf := unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)

	ptr := h.next
	h.next++
	h.regions[ptr] = buf

	h.stats.Allocs++
	h.stats.Live++
	h.stats.LiveBytes += uint64(size)
	return ptr, nil
}

// Free releases a region. Unknown regions are logged and ignored.
func (h *Heap) Free(ptr, size, align uint32) {
	buf, ok := h.regions[ptr]
	if !ok {
		Logger().Warn("heap: free of unknown region",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size))
		return
	}
	if uint32(len(buf)) != size {
		Logger().Warn("heap: free size mismatch",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Int("allocated", len(buf)))
	}
	delete(h.regions, ptr)

	h.stats.Frees++
	h.stats.Live--
	h.stats.LiveBytes -= uint64(len(buf))
}

// View returns the first size bytes of a live region.
func (h *Heap) View(ptr, size uint32) ([]byte, error) {
	buf, ok := h.regions[ptr]
	if !ok {
		return nil, errors.New(errors.PhaseView, errors.KindOutOfBounds).
			Value(ptr).
			Detail("no live region at %d", ptr).
			Build()
	}
	if size > uint32(len(buf)) {
		return nil, errors.New(errors.PhaseView, errors.KindOutOfBounds).
			Size(size).
			Value(ptr).
			Detail("view exceeds region %d of %d bytes", ptr, len(buf)).
			Build()
	}
	return buf[:size:size], nil
}

// Stats returns a snapshot of heap usage.
func (h *Heap) Stats() refbox.Stats {
	return h.stats
}
