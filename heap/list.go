package heap

// ListLinks is the intrusive link pair a record embeds to participate in a
// ProviderList. Callers supply an accessor that, given a Handle, returns a
// pointer to that record's embedded ListLinks so the list itself never
// needs to know the record's concrete type.
type ListLinks struct {
	Next Handle
	Prev Handle
}

// Links is the accessor signature ProviderList methods take: given a
// record's Handle, return the address of its embedded ListLinks.
type Links func(Handle) *ListLinks

// IsLive is a caller-supplied liveness predicate. Whether a provider is
// logically deleted depends on the owning file's committed/latest parse
// state relative to the module (I4), which the list itself has no way to
// know — so every traversal that needs to filter deleted entries takes
// one of these instead of consulting a flag on the node.
type IsLive func(Handle) bool

// ProviderList is the intrusive doubly-linked list of module providers
// threaded through Parse records (via FileModuleLinks/HasteModuleLinks).
// Head/Tail are themselves Handles rather than a separate list object so
// the list can live inline in a module record.
//
// Deletion is lazy: nothing about removing a provider touches the list at
// the time its owning file changes — the node simply becomes logically
// dead under IsLive, and stays physically linked until the next exclusive
// traversal (CompactLive) passes over it. This is what lets workers update
// different files without contending on a shared module's list.
type ProviderList struct {
	Head Handle
	Tail Handle
}

// PushBack appends h to the list. Callers must hold the owning module's
// exclusive lock (Heap.LockModule) — list mutation is an exclusive-access
// operation (I7).
func (l *ProviderList) PushBack(h Handle, links Links) {
	node := links(h)
	node.Next = NilHandle
	node.Prev = l.Tail
	if l.Tail != NilHandle {
		links(l.Tail).Next = h
	} else {
		l.Head = h
	}
	l.Tail = h
}

// Unlink physically removes h from the list immediately, regardless of
// liveness. Used for the rollback path's "physically remove this file
// from the module's all-providers list" step, which must take effect
// unconditionally rather than waiting for the next exclusive traversal.
// Safe to call on a handle not currently in the list (no-op).
func (l *ProviderList) Unlink(h Handle, links Links) {
	if h == NilHandle {
		return
	}
	node := links(h)
	if l.Head != h && l.Tail != h && node.Prev == NilHandle && node.Next == NilHandle {
		return // not linked
	}
	if node.Prev != NilHandle {
		links(node.Prev).Next = node.Next
	} else if l.Head == h {
		l.Head = node.Next
	}
	if node.Next != NilHandle {
		links(node.Next).Prev = node.Prev
	} else if l.Tail == h {
		l.Tail = node.Prev
	}
	node.Next, node.Prev = NilHandle, NilHandle
}

// EachLive walks the list front to back, invoking f for every node for
// which live reports true. Dead nodes are skipped but left linked — this
// never mutates the list, matching the "traverse must filter logically
// deleted entries" rule without performing the GC itself. f returning
// false stops the walk early. Requires the module's exclusive lock (I7).
func (l *ProviderList) EachLive(links Links, live IsLive, f func(Handle) bool) {
	for cur := l.Head; cur != NilHandle; {
		node := links(cur)
		next := node.Next
		if live(cur) {
			if !f(cur) {
				return
			}
		}
		cur = next
	}
}

// CompactLive is get_all_providers_exclusive: it returns the live
// providers in declaration order while physically unlinking any
// logically-dead node it encounters along the way. This is the lazy GC
// that keeps list length bounded by live providers plus in-flight
// changes — the only place dead nodes are ever actually spliced out.
// Requires the module's exclusive lock (I7).
func (l *ProviderList) CompactLive(links Links, live IsLive) []Handle {
	var alive []Handle
	cur := l.Head
	l.Head = NilHandle
	l.Tail = NilHandle
	for cur != NilHandle {
		node := links(cur)
		next := node.Next
		if live(cur) {
			node.Prev = l.Tail
			node.Next = NilHandle
			if l.Tail != NilHandle {
				links(l.Tail).Next = cur
			} else {
				l.Head = cur
			}
			l.Tail = cur
			alive = append(alive, cur)
		} else {
			node.Next, node.Prev = NilHandle, NilHandle
		}
		cur = next
	}
	return alive
}
