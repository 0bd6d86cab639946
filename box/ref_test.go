package box

import (
	"testing"

	"github.com/wippyai/refbox/errors"
)

type conn struct {
	name  string
	drops *int
}

func (c *conn) Drop() {
	*c.drops++
}

type token struct {
	drops *int
}

func (t token) Drop() {
	*t.drops++
}

func TestRef_DropsOnce(t *testing.T) {
	drops := 0
	r := NewRef(conn{name: "db", drops: &drops})
	r2 := r.Clone()
	r3 := r2.Clone()

	if r.Refs() != 3 {
		t.Fatalf("Refs = %d, want 3", r.Refs())
	}
	if r.Get() != r3.Get() {
		t.Fatal("clones point at different values")
	}

	r.Destroy()
	r3.Destroy()
	if drops != 0 {
		t.Fatalf("dropped early: %d", drops)
	}
	if r2.Get().name != "db" {
		t.Fatal("value changed while referenced")
	}

	v := r2.Get()
	r2.Destroy()
	if drops != 1 {
		t.Fatalf("drops = %d, want 1", drops)
	}
	if v.name != "" {
		t.Fatal("value not zeroed after final drop")
	}
}

func TestRef_ValueReceiverDropper(t *testing.T) {
	drops := 0
	r := NewRef(token{drops: &drops})
	r.Clone().Destroy()
	r.Destroy()
	if drops != 1 {
		t.Fatalf("drops = %d, want 1", drops)
	}
}

func TestRef_PlainValue(t *testing.T) {
	r := NewRef([]float64{1.5, -2.5})
	r2 := r.Clone()
	r.Destroy()

	got := *r2.Get()
	if got[0] != 1.5 || got[1] != -2.5 {
		t.Fatalf("values = %v", got)
	}
	r2.Destroy()
	if r2.Valid() {
		t.Fatal("destroyed ref reports valid")
	}
}

func TestRef_ContractViolations(t *testing.T) {
	var nilRef *Ref[int]
	expectPanic(t, errors.KindInvalidHandle, func() { nilRef.Get() })

	r := NewRef(1)
	stale := &Ref[int]{c: r.c}
	r.Destroy()
	expectPanic(t, errors.KindInvalidHandle, func() { r.Destroy() })
	expectPanic(t, errors.KindUseAfterFree, func() { stale.Get() })
	expectPanic(t, errors.KindUseAfterFree, func() { stale.Clone() })
}
