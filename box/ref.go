package box

import (
	"math"

	"github.com/wippyai/refbox/errors"
)

// Dropper is optionally implemented by values held in a Ref that need
// cleanup when the last reference goes away.
type Dropper interface {
	Drop()
}

// Ref is a reference-counted Go value. It follows the same ownership rules as
// Handle: share with Clone, give up with Destroy, never copy by value.
// If *T or T implements Dropper, Drop runs exactly once, on the final
// Destroy, after which the value is zeroed.
type Ref[T any] struct {
	_ noCopy
	c *counted[T]
}

type counted[T any] struct {
	value    T
	refs     int32
	released bool
}

// NewRef wraps v with a count of one.
func NewRef[T any](v T) *Ref[T] {
	return &Ref[T]{c: &counted[T]{value: v, refs: 1}}
}

func (r *Ref[T]) live(phase errors.Phase) *counted[T] {
	if r == nil {
		panic(errors.InvalidHandle(phase, "nil ref"))
	}
	c := r.c
	if c == nil {
		panic(errors.InvalidHandle(phase, "ref not initialized or already destroyed"))
	}
	if c.released {
		panic(errors.UseAfterFree(phase, 0))
	}
	if c.refs < 1 {
		panic(errors.Underflow(phase, 0, c.refs))
	}
	return c
}

// Clone returns a new reference to the same value.
func (r *Ref[T]) Clone() *Ref[T] {
	c := r.live(errors.PhaseClone)
	if c.refs == math.MaxInt32 {
		panic(errors.Overflow(errors.PhaseClone, 0, c.refs))
	}
	c.refs++
	return &Ref[T]{c: c}
}

// Get returns a pointer to the shared value.
func (r *Ref[T]) Get() *T {
	return &r.live(errors.PhaseGet).value
}

// Destroy gives up this reference. The last Destroy drops the value.
func (r *Ref[T]) Destroy() {
	c := r.live(errors.PhaseDestroy)
	r.c = nil

	c.refs--
	if c.refs > 0 {
		return
	}
	c.released = true
	defer func() {
		var zero T
		c.value = zero
	}()
	drop(&c.value)
}

// Refs returns the number of live references.
func (r *Ref[T]) Refs() int32 {
	return r.live(errors.PhaseGet).refs
}

// Valid reports whether the reference may still be used. It never panics.
func (r *Ref[T]) Valid() bool {
	return r != nil && r.c != nil && !r.c.released
}

func drop[T any](v *T) {
	if d, ok := any(v).(Dropper); ok {
		d.Drop()
		return
	}
	if d, ok := any(*v).(Dropper); ok {
		d.Drop()
	}
}
