package box

import (
	"encoding/binary"
	"sort"

	"go.uber.org/zap"

	"github.com/wippyai/refbox"
	"github.com/wippyai/refbox/errors"
)

// headerSize is the size of a block's control header:
// refs (int32 LE) followed by the item size (uint32 LE).
const headerSize = 8

// Info describes a live block.
type Info struct {
	ID   uint64
	Refs int32
	Size uint32
	Addr uint32
}

// Store creates handles and tracks the blocks they share.
// Not safe for concurrent use.
type Store struct {
	alloc     refbox.Allocator
	live      map[uint64]*block
	observers []Observer
	nextID    uint64
	align     uint32
	closed    bool
}

// NewStore creates a store that allocates through a.
func NewStore(a refbox.Allocator, opts Options) *Store {
	align := opts.Align
	if align == 0 || align&(align-1) != 0 {
		if align != 0 {
			Logger().Warn("box: alignment is not a power of two, using default",
				zap.Uint32("align", align))
		}
		align = DefaultOptions().Align
	}
	s := &Store{
		alloc: a,
		live:  make(map[uint64]*block),
		align: align,
	}
	s.observers = append(s.observers, opts.Observers...)
	return s
}

// New creates a store with default options on a and constructs one handle.
func New(a refbox.Allocator, size uint32, destroy Destructor) (*Handle, error) {
	return NewStore(a, DefaultOptions()).New(size, destroy)
}

// New allocates a block of size item bytes with refs == 1 and returns the
// first handle to it. destroy may be nil.
//
// On failure nothing stays allocated and the returned handle is nil.
func (s *Store) New(size uint32, destroy Destructor) (*Handle, error) {
	if s.closed {
		return nil, errors.Closed(errors.PhaseConstruct)
	}
	if size == 0 {
		return nil, errors.InvalidInput(errors.PhaseConstruct, "item size must be positive")
	}

	header, err := s.alloc.Alloc(headerSize, s.align)
	if err != nil {
		return nil, errors.New(errors.PhaseConstruct, errors.KindOutOfMemory).
			Size(size).
			Detail("control header allocation failed").
			Cause(err).
			Build()
	}

	item, err := s.alloc.Alloc(size, s.align)
	if err != nil {
		s.alloc.Free(header, headerSize, s.align)
		return nil, errors.New(errors.PhaseConstruct, errors.KindOutOfMemory).
			Size(size).
			Detail("item allocation failed").
			Cause(err).
			Build()
	}

	hv, err := s.alloc.View(header, headerSize)
	if err != nil {
		s.alloc.Free(item, size, s.align)
		s.alloc.Free(header, headerSize, s.align)
		return nil, errors.Wrap(errors.PhaseConstruct, errors.KindOutOfBounds, err, "control header unreadable")
	}
	binary.LittleEndian.PutUint32(hv[0:4], 1)
	binary.LittleEndian.PutUint32(hv[4:8], size)

	s.nextID++
	b := &block{
		store:   s,
		destroy: destroy,
		id:      s.nextID,
		header:  header,
		item:    item,
		size:    size,
	}
	s.live[b.id] = b

	Logger().Debug("box: block created",
		zap.Uint64("block", b.id),
		zap.Uint32("size", size),
		zap.Uint32("addr", item))
	s.notify(Event{Type: EventCreated, Block: b.id, Refs: 1, Size: size})

	return &Handle{b: b}, nil
}

// Allocator returns the allocator blocks are carved from.
func (s *Store) Allocator() refbox.Allocator {
	return s.alloc
}

// Len returns the number of live blocks.
func (s *Store) Len() int {
	return len(s.live)
}

// Each calls fn for every live block in creation order until fn returns false.
func (s *Store) Each(fn func(Info) bool) {
	ids := make([]uint64, 0, len(s.live))
	for id := range s.live {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		b := s.live[id]
		info := Info{
			ID:   b.id,
			Refs: b.refs(errors.PhaseStore),
			Size: b.size,
			Addr: b.item,
		}
		if !fn(info) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events.
func (s *Store) Subscribe(o Observer) {
	s.observers = append(s.observers, o)
}

// Unsubscribe removes an observer.
func (s *Store) Unsubscribe(o Observer) {
	for i, obs := range s.observers {
		if obs == o {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// Close stops the store from creating new blocks. Live blocks are not freed;
// their handles stay usable. Close reports them as a KindLeak error.
func (s *Store) Close() error {
	s.closed = true
	if n := len(s.live); n > 0 {
		return errors.Leak(n)
	}
	return nil
}

// release runs the destructor and frees the block. Storage is freed even if
// the destructor panics; the panic is then propagated.
func (s *Store) release(b *block) {
	defer s.free(b)
	if b.destroy == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			Logger().Warn("box: destructor panicked",
				zap.Uint64("block", b.id),
				zap.Any("panic", r))
			panic(r)
		}
	}()
	b.destroy(b.itemView(errors.PhaseDestroy))
}

func (s *Store) free(b *block) {
	s.alloc.Free(b.item, b.size, s.align)
	s.alloc.Free(b.header, headerSize, s.align)
	b.freed = true
	delete(s.live, b.id)

	Logger().Debug("box: block released",
		zap.Uint64("block", b.id),
		zap.Uint32("size", b.size))
	s.notify(Event{Type: EventReleased, Block: b.id, Size: b.size})
}

func (s *Store) notify(e Event) {
	for _, o := range s.observers {
		o.OnBoxEvent(e)
	}
}
