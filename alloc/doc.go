// Package alloc provides refbox.Allocator implementations.
//
//   - Heap places each region in its own Go heap allocation.
//   - Linear carves regions out of a WebAssembly linear memory hosted by a
//     wazero runtime, growing the memory page by page up to a limit.
//   - Limited enforces a byte budget on top of another allocator.
//   - Tracking records live regions of another allocator for leak checks.
//
// None of the allocators are safe for concurrent use.
package alloc
