// Package errors provides structured error types for refbox.
//
// Errors are categorized by Phase (which operation failed) and Kind (error category).
// The Error type carries the block id and size involved, a detail message, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConstruct, errors.KindOutOfMemory).
//		Block(7).
//		Size(64).
//		Detail("item allocation failed").
//		Cause(allocErr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfMemory(errors.PhaseAlloc, 64, 8)
//	err := errors.UseAfterFree(errors.PhaseGet, 7)
//
// Contract violations (invalid handles, use after free, count underflow) are
// raised as panics carrying an *Error, so they can be recovered and inspected
// with errors.As like any returned error.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
