// Package heap is the concrete stand-in for the shared-memory allocator,
// string interner, and hash-table primitives that the store's design treats
// as external collaborators (see SPEC_FULL.md, "heap primitives"). A real
// deployment would back this with an actual shared-memory segment so worker
// processes can see writes without IPC; here a single in-process arena plays
// that role, which is sufficient to exercise every transactional rule above
// it because none of those rules depend on the segment actually being
// cross-process shared.
package heap

// Handle is an opaque, stable index into an Arena. The zero value, NilHandle,
// represents "no record" (spec's `None`). A Handle assigned to a record never
// changes for the lifetime of that record (I1); only the data an Entity
// points to may advance.
type Handle uint32

// NilHandle is the handle equivalent of None.
const NilHandle Handle = 0
