// Package box implements reference-counted shared handles over
// allocator-backed byte storage.
//
// # Handles
//
// A Store creates handles. Each handle refers to a shared block made of a
// control header (the reference count) and the item storage, both obtained
// from the store's refbox.Allocator:
//
//	store := box.NewStore(alloc.NewHeap(), box.DefaultOptions())
//
//	h, err := store.New(16, nil)   // refs == 1
//	h2 := h.Clone()                // refs == 2, h2.Addr() == h.Addr()
//	h.Destroy()                    // refs == 1, h is now invalid
//	h2.Destroy()                   // refs == 0, destructor runs, storage freed
//
// Sharing only happens through Clone. Every successful New or Clone must be
// paired with exactly one Destroy.
//
// # Destructors
//
// A Destructor runs once, on the Destroy that releases the block, against the
// still-allocated item. The item storage is freed after it returns, then the
// control header.
//
// # Typed Access
//
// As and AsSlice reinterpret item storage as pointer-free Go values:
//
//	vals := box.AsSlice[float64](h)   // 16 bytes -> 2 float64
//
// Ref is the typed counterpart for ordinary Go values. Its destructor is the
// value's own Drop method when it implements Dropper.
//
// # Contract Violations
//
// Calling Clone, Get or Destroy on a nil or destroyed handle, or on a handle
// whose block has been released, panics with an *errors.Error. So does a
// reference count below one or at its maximum. Allocation failure is a
// returned error and leaves nothing allocated.
//
// Nothing in this package is safe for concurrent use.
package box
