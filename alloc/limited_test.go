package alloc

import (
	"testing"

	"github.com/wippyai/refbox/errors"
)

func TestLimited_Budget(t *testing.T) {
	inner := NewHeap()
	l := NewLimited(inner, 32)

	a, err := l.Alloc(24, 8)
	if err != nil {
		t.Fatalf("Alloc within budget failed: %v", err)
	}

	if _, err := l.Alloc(16, 8); !errors.IsKind(err, errors.KindOutOfMemory) {
		t.Fatalf("expected out_of_memory over budget, got %v", err)
	}
	if inner.Stats().Allocs != 1 {
		t.Fatal("rejected request reached the inner allocator")
	}

	l.Free(a, 24, 8)
	if l.Used() != 0 {
		t.Fatalf("Used = %d after Free, want 0", l.Used())
	}

	if _, err := l.Alloc(32, 8); err != nil {
		t.Fatalf("Alloc of full budget failed: %v", err)
	}
	if l.Used() != l.Limit() {
		t.Fatalf("Used = %d, want %d", l.Used(), l.Limit())
	}
}

func TestLimited_PropagatesInnerFailure(t *testing.T) {
	l := NewLimited(NewHeap(), 1024)
	if _, err := l.Alloc(8, 64); !errors.IsKind(err, errors.KindUnsupported) {
		t.Fatalf("expected inner unsupported error, got %v", err)
	}
	if l.Used() != 0 {
		t.Fatalf("failed Alloc charged %d bytes", l.Used())
	}
}
