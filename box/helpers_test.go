package box

import (
	"testing"

	"github.com/wippyai/refbox"
	"github.com/wippyai/refbox/alloc"
	"github.com/wippyai/refbox/errors"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnBoxEvent(e Event) {
	o.events = append(o.events, e)
}

func (o *testObserver) types() []EventType {
	out := make([]EventType, len(o.events))
	for i, e := range o.events {
		out[i] = e.Type
	}
	return out
}

// failingAllocator fails the n-th Alloc call (1-based) and forwards the rest.
type failingAllocator struct {
	refbox.Allocator
	failOn int
	calls  int
}

func (f *failingAllocator) Alloc(size, align uint32) (uint32, error) {
	f.calls++
	if f.calls == f.failOn {
		return 0, errors.OutOfMemory(errors.PhaseAlloc, size, align)
	}
	return f.Allocator.Alloc(size, align)
}

func newTrackedStore(t *testing.T) (*Store, *alloc.Tracking) {
	t.Helper()
	tr := alloc.NewTracking(alloc.NewHeap())
	return NewStore(tr, DefaultOptions()), tr
}

func mustNew(t *testing.T, s *Store, size uint32, destroy Destructor) *Handle {
	t.Helper()
	h, err := s.New(size, destroy)
	if err != nil {
		t.Fatalf("New(%d) failed: %v", size, err)
	}
	return h
}

func expectPanic(t *testing.T, kind errors.Kind, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic with kind %s", kind)
		}
		err, ok := r.(*errors.Error)
		if !ok {
			t.Fatalf("panic value %T (%v), want *errors.Error", r, r)
		}
		if err.Kind != kind {
			t.Fatalf("panic kind = %s, want %s (%v)", err.Kind, kind, err)
		}
	}()
	fn()
}
