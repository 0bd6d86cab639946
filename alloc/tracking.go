package alloc

import (
	"sort"

	"github.com/wippyai/refbox"
)

// Region describes a live allocation seen by a Tracking allocator.
type Region struct {
	Ptr   uint32
	Size  uint32
	Align uint32
}

// Tracking records every live region of an underlying allocator.
// It is the tool for asserting that a sequence of operations leaks nothing.
type Tracking struct {
	inner refbox.Allocator
	live  map[uint32]Region
	stats refbox.Stats
}

// NewTracking wraps inner.
func NewTracking(inner refbox.Allocator) *Tracking {
	return &Tracking{
		inner: inner,
		live:  make(map[uint32]Region),
	}
}

func (t *Tracking) Alloc(size, align uint32) (uint32, error) {
	ptr, err := t.inner.Alloc(size, align)
	if err != nil {
		t.stats.Failures++
		return 0, err
	}
	t.live[ptr] = Region{Ptr: ptr, Size: size, Align: align}
	t.stats.Allocs++
	t.stats.Live++
	t.stats.LiveBytes += uint64(size)
	return ptr, nil
}

func (t *Tracking) Free(ptr, size, align uint32) {
	if r, ok := t.live[ptr]; ok {
		delete(t.live, ptr)
		t.stats.Frees++
		t.stats.Live--
		t.stats.LiveBytes -= uint64(r.Size)
	}
	t.inner.Free(ptr, size, align)
}

func (t *Tracking) View(ptr, size uint32) ([]byte, error) {
	return t.inner.View(ptr, size)
}

// Live returns the number of regions allocated and not yet freed.
func (t *Tracking) Live() int {
	return len(t.live)
}

// Regions returns the live regions ordered by address.
func (t *Tracking) Regions() []Region {
	out := make([]Region, 0, len(t.live))
	for _, r := range t.live {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ptr < out[j].Ptr })
	return out
}

// Stats returns a snapshot of usage observed through this wrapper.
func (t *Tracking) Stats() refbox.Stats {
	return t.stats
}
