package alloc

import (
	"github.com/wippyai/refbox"
	"github.com/wippyai/refbox/errors"
)

// Limited caps the number of bytes live in an underlying allocator.
// Requests that would exceed the budget fail with KindOutOfMemory without
// reaching the underlying allocator.
type Limited struct {
	inner refbox.Allocator
	sizes map[uint32]uint32
	limit uint64
	used  uint64
}

// NewLimited wraps inner with a budget of limit bytes.
func NewLimited(inner refbox.Allocator, limit uint64) *Limited {
	return &Limited{
		inner: inner,
		sizes: make(map[uint32]uint32),
		limit: limit,
	}
}

func (l *Limited) Alloc(size, align uint32) (uint32, error) {
	if l.used+uint64(size) > l.limit {
		return 0, errors.New(errors.PhaseAlloc, errors.KindOutOfMemory).
			Size(size).
			Detail("budget exhausted: %d of %d bytes in use", l.used, l.limit).
			Build()
	}
	ptr, err := l.inner.Alloc(size, align)
	if err != nil {
		return 0, err
	}
	l.sizes[ptr] = size
	l.used += uint64(size)
	return ptr, nil
}

func (l *Limited) Free(ptr, size, align uint32) {
	if n, ok := l.sizes[ptr]; ok {
		delete(l.sizes, ptr)
		l.used -= uint64(n)
	}
	l.inner.Free(ptr, size, align)
}

func (l *Limited) View(ptr, size uint32) ([]byte, error) {
	return l.inner.View(ptr, size)
}

// Used returns the bytes currently charged against the budget.
func (l *Limited) Used() uint64 {
	return l.used
}

// Limit returns the budget in bytes.
func (l *Limited) Limit() uint64 {
	return l.limit
}
