// Package refbox provides manually reference-counted shared handles over
// caller-sized byte storage.
//
// A handle wraps one allocation. Cloning a handle increments a shared count;
// destroying a handle decrements it, and the last destroy runs the optional
// destructor against the still-allocated item before releasing its storage.
//
// # Architecture Overview
//
//	refbox/            Root package with the Allocator interface
//	├── box/           Store, Handle, typed views and the generic Ref
//	├── alloc/         Allocator backends (Go heap, wazero linear memory,
//	│                  byte budgets, allocation tracking)
//	├── errors/        Structured error types
//	├── internal/shell Command interpreter used by the CLI
//	└── cmd/refbox/    CLI and interactive console
//
// # Quick Start
//
//	store := box.NewStore(alloc.NewHeap(), box.DefaultOptions())
//	defer store.Close()
//
//	h, err := store.New(16, func(item []byte) {
//	    // release anything the item owns
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	h2 := h.Clone()     // refs == 2, same storage
//	copy(h2.Get(), "hello")
//	h.Destroy()         // refs == 1, storage still live
//	h2.Destroy()        // destructor runs, storage freed
//
// # Thread Safety
//
// Stores and handles are NOT thread-safe. The reference count is a plain
// integer; a store and every handle created from it must be used by a single
// goroutine, or access must be synchronized by the caller.
//
// # Contract Violations
//
// Using a handle after Destroy, destroying it twice, or passing a nil handle
// panics with an *errors.Error. These are programming errors, not runtime
// conditions. Allocation failure is reported as a returned error.
package refbox
