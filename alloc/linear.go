package alloc

import (
	"context"
	"slices"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/refbox"
	"github.com/wippyai/refbox/alloc/internal/wasmbin"
	"github.com/wippyai/refbox/errors"
)

// PageSize is the WebAssembly linear memory page size.
const PageSize = 1 << 16

// maxLinearPages keeps the memory size representable as uint32.
const maxLinearPages = 1<<16 - 1

// LinearConfig configures a Linear allocator.
type LinearConfig struct {
	InitialPages uint32
	MaxPages     uint32
}

// DefaultLinearConfig returns a one-page memory that may grow to 16 MiB.
func DefaultLinearConfig() LinearConfig {
	return LinearConfig{
		InitialPages: 1,
		MaxPages:     256,
	}
}

type span struct {
	off uint32
	len uint32
}

func (s span) end() uint64 {
	return uint64(s.off) + uint64(s.len)
}

// Linear allocates regions inside a WebAssembly linear memory owned by a
// private wazero runtime. Addresses are offsets into that memory, so a guest
// instantiated against the same memory sees the same bytes.
//
// Free space below the bump pointer is kept in an address-ordered free list
// and coalesced on release. The memory grows when neither fits a request.
type Linear struct {
	runtime  wazero.Runtime
	module   api.Module
	mem      api.Memory
	used     map[uint32]uint32
	free     []span
	stats    refbox.Stats
	top      uint32
	maxPages uint32
}

// NewLinear instantiates a memory-only module and returns an allocator over
// its memory. Close releases the runtime.
func NewLinear(ctx context.Context, cfg LinearConfig) (*Linear, error) {
	if cfg.InitialPages == 0 {
		cfg.InitialPages = 1
	}
	if cfg.MaxPages < cfg.InitialPages {
		return nil, errors.InvalidInput(errors.PhaseAlloc, "max pages below initial pages")
	}
	if cfg.MaxPages > maxLinearPages {
		return nil, errors.New(errors.PhaseAlloc, errors.KindInvalidInput).
			Value(cfg.MaxPages).
			Detail("max pages %d exceeds %d", cfg.MaxPages, maxLinearPages).
			Build()
	}

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().
		WithMemoryLimitPages(cfg.MaxPages))

	mod, err := rt.Instantiate(ctx, wasmbin.MemoryModule(cfg.InitialPages, cfg.MaxPages))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, errors.Wrap(errors.PhaseAlloc, errors.KindUnsupported, err, "instantiate linear memory")
	}

	mem := mod.ExportedMemory(wasmbin.MemoryExport)
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, errors.Unsupported(errors.PhaseAlloc, "module exports no memory")
	}

	return &Linear{
		runtime:  rt,
		module:   mod,
		mem:      mem,
		used:     make(map[uint32]uint32),
		top:      wordSize, // offset 0 stays unallocated
		maxPages: cfg.MaxPages,
	}, nil
}

// Alloc reserves size bytes aligned to align (at least 8).
func (l *Linear) Alloc(size, align uint32) (uint32, error) {
	if size == 0 {
		l.stats.Failures++
		return 0, errors.InvalidInput(errors.PhaseAlloc, "zero-size allocation")
	}
	align, err := normalizeAlign(align)
	if err != nil {
		l.stats.Failures++
		return 0, err
	}
	if align > PageSize {
		l.stats.Failures++
		return 0, errors.Unsupported(errors.PhaseAlloc, "alignment above page size")
	}
	align = max(align, wordSize)
	need := alignUp(uint64(size), wordSize)

	if ptr, ok := l.takeFree(need, align); ok {
		l.commit(ptr, need)
		return ptr, nil
	}

	start := alignUp(uint64(l.top), uint64(align))
	end := start + need
	if end > uint64(l.mem.Size()) {
		if !l.grow(end) {
			l.stats.Failures++
			return 0, errors.OutOfMemory(errors.PhaseAlloc, size, align)
		}
	}
	if start > uint64(l.top) {
		l.insertFree(span{off: l.top, len: uint32(start - uint64(l.top))})
	}
	l.top = uint32(end)

	l.commit(uint32(start), need)
	return uint32(start), nil
}

// Free releases a region. Unknown regions are logged and ignored.
func (l *Linear) Free(ptr, size, align uint32) {
	need, ok := l.used[ptr]
	if !ok {
		Logger().Warn("linear: free of unknown region",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size))
		return
	}
	if uint32(alignUp(uint64(size), wordSize)) != need {
		Logger().Warn("linear: free size mismatch",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Uint32("allocated", need))
	}
	delete(l.used, ptr)

	l.stats.Frees++
	l.stats.Live--
	l.stats.LiveBytes -= uint64(need)

	l.release(span{off: ptr, len: need})
}

// View returns the first size bytes of a live region as a view into the
// linear memory. Growth may move the memory and invalidate the view.
func (l *Linear) View(ptr, size uint32) ([]byte, error) {
	need, ok := l.used[ptr]
	if !ok {
		return nil, errors.New(errors.PhaseView, errors.KindOutOfBounds).
			Value(ptr).
			Detail("no live region at %d", ptr).
			Build()
	}
	if size > need {
		return nil, errors.OutOfBounds(errors.PhaseView, ptr, size, uint64(ptr)+uint64(need))
	}
	buf, ok := l.mem.Read(ptr, size)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseView, ptr, size, uint64(l.mem.Size()))
	}
	return buf, nil
}

// Pages returns the current memory size in pages.
func (l *Linear) Pages() uint32 {
	return l.mem.Size() / PageSize
}

// Memory exposes the underlying linear memory.
func (l *Linear) Memory() api.Memory {
	return l.mem
}

// Stats returns a snapshot of allocator usage.
func (l *Linear) Stats() refbox.Stats {
	return l.stats
}

// Close releases the wazero runtime. The allocator must not be used afterwards.
func (l *Linear) Close(ctx context.Context) error {
	l.used = nil
	l.free = nil
	return l.runtime.Close(ctx)
}

func (l *Linear) commit(ptr uint32, need uint64) {
	l.used[ptr] = uint32(need)
	l.stats.Allocs++
	l.stats.Live++
	l.stats.LiveBytes += need
}

// takeFree carves need bytes from the first free span that fits.
func (l *Linear) takeFree(need uint64, align uint32) (uint32, bool) {
	for i, s := range l.free {
		start := alignUp(uint64(s.off), uint64(align))
		if start+need > s.end() {
			continue
		}
		var pieces []span
		if start > uint64(s.off) {
			pieces = append(pieces, span{off: s.off, len: uint32(start - uint64(s.off))})
		}
		if rest := s.end() - (start + need); rest > 0 {
			pieces = append(pieces, span{off: uint32(start + need), len: uint32(rest)})
		}
		l.free = slices.Replace(l.free, i, i+1, pieces...)
		return uint32(start), true
	}
	return 0, false
}

func (l *Linear) release(s span) {
	if s.end() == uint64(l.top) {
		l.top = s.off
		for n := len(l.free); n > 0 && l.free[n-1].end() == uint64(l.top); n = len(l.free) {
			l.top = l.free[n-1].off
			l.free = l.free[:n-1]
		}
		return
	}
	l.insertFree(s)
}

// insertFree adds s to the address-ordered free list, merging neighbours.
func (l *Linear) insertFree(s span) {
	i := sort.Search(len(l.free), func(i int) bool { return l.free[i].off > s.off })
	l.free = slices.Insert(l.free, i, s)

	if i+1 < len(l.free) && l.free[i].end() == uint64(l.free[i+1].off) {
		l.free[i].len += l.free[i+1].len
		l.free = slices.Delete(l.free, i+1, i+2)
	}
	if i > 0 && l.free[i-1].end() == uint64(l.free[i].off) {
		l.free[i-1].len += l.free[i].len
		l.free = slices.Delete(l.free, i, i+1)
	}
}

// grow extends the memory so that it covers at least end bytes.
func (l *Linear) grow(end uint64) bool {
	pages := l.mem.Size() / PageSize
	want := alignUp(end, PageSize) / PageSize
	if want > uint64(l.maxPages) {
		return false
	}
	delta := uint32(want) - pages
	if _, ok := l.mem.Grow(delta); !ok {
		return false
	}
	Logger().Debug("linear: memory grown",
		zap.Uint32("from_pages", pages),
		zap.Uint32("to_pages", uint32(want)))
	return true
}
