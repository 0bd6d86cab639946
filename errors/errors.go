package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates which operation produced the error
type Phase string

const (
	PhaseConstruct Phase = "construct" // handle construction
	PhaseClone     Phase = "clone"     // handle cloning
	PhaseGet       Phase = "get"       // item access
	PhaseDestroy   Phase = "destroy"   // handle destruction
	PhaseAlloc     Phase = "alloc"     // allocator Alloc
	PhaseFree      Phase = "free"      // allocator Free
	PhaseView      Phase = "view"      // allocator View
	PhaseStore     Phase = "store"     // store lifecycle
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfMemory   Kind = "out_of_memory"
	KindInvalidInput  Kind = "invalid_input"
	KindInvalidHandle Kind = "invalid_handle"
	KindUseAfterFree  Kind = "use_after_free"
	KindUnderflow     Kind = "underflow"
	KindOverflow      Kind = "overflow"
	KindOutOfBounds   Kind = "out_of_bounds"
	KindUnsupported   Kind = "unsupported"
	KindLeak          Kind = "leak"
	KindClosed        Kind = "closed"
)

// Error is the structured error type used throughout refbox
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Block  uint64
	Size   uint32
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Block != 0 {
		b.WriteString(" at block #")
		b.WriteString(strconv.FormatUint(e.Block, 10))
	}

	if e.Size != 0 {
		b.WriteString(" (")
		b.WriteString(strconv.FormatUint(uint64(e.Size), 10))
		b.WriteString(" bytes)")
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether any *Error in err's chain has the given kind,
// regardless of phase.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Cause
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Block sets the block id
func (b *Builder) Block(id uint64) *Builder {
	b.err.Block = id
	return b
}

// Size sets the byte size involved
func (b *Builder) Size(n uint32) *Builder {
	b.err.Size = n
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// OutOfMemory creates an allocation failure error
func OutOfMemory(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfMemory,
		Size:   size,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidHandle creates an error for a nil or already destroyed handle
func InvalidHandle(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidHandle,
		Detail: detail,
	}
}

// UseAfterFree creates an error for access to a released block
func UseAfterFree(phase Phase, block uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUseAfterFree,
		Block:  block,
		Detail: "block already released",
	}
}

// Underflow creates a reference count underflow error
func Underflow(phase Phase, block uint64, refs int32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnderflow,
		Block:  block,
		Detail: fmt.Sprintf("reference count %d below 1 on a live handle", refs),
		Value:  refs,
	}
}

// Overflow creates a reference count overflow error
func Overflow(phase Phase, block uint64, refs int32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Block:  block,
		Detail: fmt.Sprintf("reference count %d cannot be incremented", refs),
		Value:  refs,
	}
}

// OutOfBounds creates an out of bounds error for a memory range
func OutOfBounds(phase Phase, ptr, length uint32, limit uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Size:   length,
		Detail: fmt.Sprintf("range [%d, %d) exceeds %d", ptr, uint64(ptr)+uint64(length), limit),
		Value:  ptr,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Leak creates an error reporting blocks still referenced at close time
func Leak(live int) *Error {
	return &Error{
		Phase:  PhaseStore,
		Kind:   KindLeak,
		Detail: fmt.Sprintf("%d block(s) still referenced", live),
		Value:  live,
	}
}

// Closed creates an error for operations on a closed store
func Closed(phase Phase) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: "store closed",
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
