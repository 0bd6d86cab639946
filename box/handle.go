package box

import (
	"encoding/binary"
	"math"

	"github.com/wippyai/refbox/errors"
)

// Destructor releases whatever an item owns. It is called once, when the
// last handle is destroyed, while the item storage is still allocated.
type Destructor func(item []byte)

type block struct {
	store   *Store
	destroy Destructor
	id      uint64
	header  uint32
	item    uint32
	size    uint32
	freed   bool
}

func (b *block) headerView(phase errors.Phase) []byte {
	buf, err := b.store.alloc.View(b.header, headerSize)
	if err != nil {
		panic(errors.New(phase, errors.KindUseAfterFree).
			Block(b.id).
			Detail("control header unreadable").
			Cause(err).
			Build())
	}
	return buf
}

func (b *block) refs(phase errors.Phase) int32 {
	return int32(binary.LittleEndian.Uint32(b.headerView(phase)))
}

func (b *block) setRefs(phase errors.Phase, n int32) {
	binary.LittleEndian.PutUint32(b.headerView(phase), uint32(n))
}

func (b *block) itemView(phase errors.Phase) []byte {
	buf, err := b.store.alloc.View(b.item, b.size)
	if err != nil {
		panic(errors.New(phase, errors.KindUseAfterFree).
			Block(b.id).
			Size(b.size).
			Detail("item storage unreadable").
			Cause(err).
			Build())
	}
	return buf
}

// Handle is one owner of a shared block. Handles are created by Store.New
// and Clone, and must not be copied by value.
type Handle struct {
	_ noCopy
	b *block
}

// live returns the handle's block and its count, panicking on any
// contract violation before state is touched.
func (h *Handle) live(phase errors.Phase) (*block, int32) {
	if h == nil {
		panic(errors.InvalidHandle(phase, "nil handle"))
	}
	b := h.b
	if b == nil {
		panic(errors.InvalidHandle(phase, "handle not initialized or already destroyed"))
	}
	if b.freed {
		panic(errors.UseAfterFree(phase, b.id))
	}
	n := b.refs(phase)
	if n < 1 {
		panic(errors.Underflow(phase, b.id, n))
	}
	return b, n
}

// Clone returns a new handle to the same block and increments its count.
func (h *Handle) Clone() *Handle {
	b, n := h.live(errors.PhaseClone)
	if n == math.MaxInt32 {
		panic(errors.Overflow(errors.PhaseClone, b.id, n))
	}
	b.setRefs(errors.PhaseClone, n+1)
	b.store.notify(Event{Type: EventCloned, Block: b.id, Refs: n + 1, Size: b.size})
	return &Handle{b: b}
}

// Get returns the item storage. The slice is shared by every handle to the
// block and must not be used after the block is released.
func (h *Handle) Get() []byte {
	b, _ := h.live(errors.PhaseGet)
	return b.itemView(errors.PhaseGet)
}

// Destroy gives up this handle's ownership. The handle becomes invalid.
// If it was the last owner, the destructor runs and the storage is freed.
func (h *Handle) Destroy() {
	b, n := h.live(errors.PhaseDestroy)
	h.b = nil

	n--
	b.setRefs(errors.PhaseDestroy, n)
	if n > 0 {
		b.store.notify(Event{Type: EventDestroyed, Block: b.id, Refs: n, Size: b.size})
		return
	}
	b.store.release(b)
}

// Valid reports whether the handle may still be used. It never panics.
func (h *Handle) Valid() bool {
	return h != nil && h.b != nil && !h.b.freed
}

// Refs returns the number of live handles sharing the block.
func (h *Handle) Refs() int32 {
	_, n := h.live(errors.PhaseGet)
	return n
}

// Size returns the item size in bytes.
func (h *Handle) Size() uint32 {
	b, _ := h.live(errors.PhaseGet)
	return b.size
}

// Addr returns the item's address in the store's allocator.
// Handles to the same block return the same address.
func (h *Handle) Addr() uint32 {
	b, _ := h.live(errors.PhaseGet)
	return b.item
}

// ID returns the block's store-unique id.
func (h *Handle) ID() uint64 {
	b, _ := h.live(errors.PhaseGet)
	return b.id
}
