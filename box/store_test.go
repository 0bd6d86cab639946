package box

import (
	"slices"
	"testing"

	"github.com/wippyai/refbox/alloc"
	"github.com/wippyai/refbox/errors"
)

func TestStore_Observer(t *testing.T) {
	s, _ := newTrackedStore(t)
	obs := &testObserver{}
	s.Subscribe(obs)

	h := mustNew(t, s, 8, nil)
	h2 := h.Clone()
	h.Destroy()
	h2.Destroy()

	want := []EventType{EventCreated, EventCloned, EventDestroyed, EventReleased}
	if got := obs.types(); !slices.Equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	refs := []int32{1, 2, 1, 0}
	for i, e := range obs.events {
		if e.Refs != refs[i] {
			t.Errorf("event %d (%s): Refs = %d, want %d", i, e.Type, e.Refs, refs[i])
		}
		if e.Size != 8 || e.Block != obs.events[0].Block {
			t.Errorf("event %d: unexpected %+v", i, e)
		}
	}

	s.Unsubscribe(obs)
	mustNew(t, s, 8, nil).Destroy()
	if len(obs.events) != 4 {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestStore_ObserversFromOptions(t *testing.T) {
	obs := &testObserver{}
	opts := DefaultOptions()
	opts.Observers = []Observer{obs}
	s := NewStore(alloc.NewHeap(), opts)

	mustNew(t, s, 1, nil).Destroy()
	if len(obs.events) != 2 {
		t.Fatalf("got %d events, want 2", len(obs.events))
	}
}

func TestStore_EachAndLen(t *testing.T) {
	s, _ := newTrackedStore(t)
	a := mustNew(t, s, 4, nil)
	b := mustNew(t, s, 12, nil)
	b2 := b.Clone()

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}

	var infos []Info
	s.Each(func(i Info) bool {
		infos = append(infos, i)
		return true
	})
	if len(infos) != 2 {
		t.Fatalf("Each visited %d blocks, want 2", len(infos))
	}
	if infos[0].ID != a.ID() || infos[0].Refs != 1 || infos[0].Size != 4 || infos[0].Addr != a.Addr() {
		t.Errorf("first info = %+v", infos[0])
	}
	if infos[1].ID != b.ID() || infos[1].Refs != 2 || infos[1].Size != 12 {
		t.Errorf("second info = %+v", infos[1])
	}

	visited := 0
	s.Each(func(Info) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Fatalf("Each ignored stop request, visited %d", visited)
	}

	a.Destroy()
	b.Destroy()
	b2.Destroy()
	if s.Len() != 0 {
		t.Fatalf("Len = %d after releasing all", s.Len())
	}
}

func TestStore_Close(t *testing.T) {
	s, tr := newTrackedStore(t)
	h := mustNew(t, s, 8, nil)

	err := s.Close()
	if !errors.IsKind(err, errors.KindLeak) {
		t.Fatalf("Close with live block: got %v, want leak", err)
	}

	if _, err := s.New(8, nil); !errors.IsKind(err, errors.KindClosed) {
		t.Fatalf("New after Close: got %v, want closed", err)
	}

	// Existing handles stay usable.
	h.Get()[0] = 1
	h.Destroy()
	if tr.Live() != 0 {
		t.Fatalf("%d regions leaked", tr.Live())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close with no live blocks: %v", err)
	}
}

func TestStore_NewValidation(t *testing.T) {
	s, tr := newTrackedStore(t)
	h, err := s.New(0, nil)
	if h != nil || !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("New(0) = %v, %v", h, err)
	}
	if tr.Stats().Allocs != 0 {
		t.Fatal("New(0) reached the allocator")
	}
}

func TestStore_AlignOption(t *testing.T) {
	tr := alloc.NewTracking(alloc.NewHeap())
	s := NewStore(tr, Options{Align: 3})
	mustNew(t, s, 4, nil).Destroy()

	s = NewStore(tr, Options{Align: 4})
	h := mustNew(t, s, 4, nil)
	for _, r := range tr.Regions() {
		if r.Align != 4 {
			t.Fatalf("region %+v requested with align %d, want 4", r, r.Align)
		}
	}
	h.Destroy()
}

func TestNew_Convenience(t *testing.T) {
	heap := alloc.NewHeap()
	h, err := New(heap, 8, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if h.Refs() != 1 {
		t.Fatalf("Refs = %d, want 1", h.Refs())
	}
	h.Destroy()
	if heap.Stats().Live != 0 {
		t.Fatal("regions leaked")
	}
}

func TestEventType_String(t *testing.T) {
	tests := map[EventType]string{
		EventCreated:   "created",
		EventCloned:    "cloned",
		EventDestroyed: "destroyed",
		EventReleased:  "released",
		EventType(99):  "unknown",
	}
	for et, want := range tests {
		if et.String() != want {
			t.Errorf("%d.String() = %q, want %q", et, et.String(), want)
		}
	}
}
