// Package filegraph is the file record manager: it creates and updates
// file records, attaches typed or untyped parse records, wires files into
// module provider lists, and computes dirty-module sets. It is the core
// this specification is about; everything in heap, loc, storekey, and txn
// exists to support it.
package filegraph

import (
	"context"
	"sync"
	"time"

	"github.com/mgmuesuu/flow/heap"
	"github.com/mgmuesuu/flow/observability"
	"github.com/mgmuesuu/flow/record"
	"github.com/mgmuesuu/flow/storekey"
)

// Event types emitted by the store. Source is always "filegraph".
const (
	EventFileAdded     observability.EventType = "filegraph.file.added"
	EventFileCleared   observability.EventType = "filegraph.file.cleared"
	EventModuleDropped observability.EventType = "filegraph.module.dropped"
)

// Store holds the two global key→module tables plus the file table, all
// backed by the given heap's arenas. A Store is process-shared state:
// every mutator and reader holding the same *Store sees the same records.
type Store struct {
	H *heap.Heap

	Files        *heap.Arena[record.File]
	Parses       *heap.Arena[record.Parse]
	FileModules  *heap.Arena[record.FileModule]
	HasteModules *heap.Arena[record.HasteModule]

	Observer observability.Observer

	mu               sync.RWMutex
	fileTable        map[storekey.FileKey]heap.Handle
	fileModuleTable  map[storekey.FileKey]heap.Handle
	hasteModuleTable map[string]heap.Handle
}

// NewStore returns an empty store over a fresh heap with the given byte
// capacity (0 for unbounded). Events are discarded until an Observer is
// attached via SetObserver.
func NewStore(capacityBytes int64) *Store {
	return &Store{
		H:                heap.NewHeap(capacityBytes),
		Files:            heap.NewArena[record.File](),
		Parses:           heap.NewArena[record.Parse](),
		FileModules:      heap.NewArena[record.FileModule](),
		HasteModules:     heap.NewArena[record.HasteModule](),
		Observer:         observability.NoOpObserver{},
		fileTable:        make(map[storekey.FileKey]heap.Handle),
		fileModuleTable:  make(map[storekey.FileKey]heap.Handle),
		hasteModuleTable: make(map[string]heap.Handle),
	}
}

// SetObserver replaces the store's observer. Passing nil restores the
// no-op default rather than leaving callers to guard every emit call.
func (s *Store) SetObserver(o observability.Observer) {
	if o == nil {
		o = observability.NoOpObserver{}
	}
	s.Observer = o
}

func (s *Store) emit(typ observability.EventType, level observability.Level, data map[string]any) {
	s.Observer.OnEvent(context.Background(), observability.Event{
		Type:      typ,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "filegraph",
		Data:      data,
	})
}

// lookupFile returns the File handle for key, if a record has been
// created for it.
func (s *Store) lookupFile(key storekey.FileKey) (heap.Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.fileTable[key]
	return h, ok
}

// LookupFile is the exported form of lookupFile, for readers.
func (s *Store) LookupFile(key storekey.FileKey) (heap.Handle, bool) {
	return s.lookupFile(key)
}

// LookupFileModule is the exported form of lookupFileModule, for readers.
func (s *Store) LookupFileModule(key storekey.FileKey) (heap.Handle, bool) {
	return s.lookupFileModule(key)
}

// LookupHasteModule is the exported form of lookupHasteModule, for
// readers.
func (s *Store) LookupHasteModule(name string) (heap.Handle, bool) {
	return s.lookupHasteModule(name)
}

// RemoveNotFoundFiles deletes file records for keys from the file table.
// This is the only point at which a File record itself disappears,
// invoked by the Reparse mutator's commit hook for files its workers
// reported NotFound.
func (s *Store) RemoveNotFoundFiles(keys []storekey.FileKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.fileTable, k)
	}
}

// lookupFileModule returns the FileModule handle for key's eponymous
// module, if one has been created.
func (s *Store) lookupFileModule(key storekey.FileKey) (heap.Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.fileModuleTable[key]
	return h, ok
}

// lookupHasteModule returns the HasteModule handle for name, if one has
// been created.
func (s *Store) lookupHasteModule(name string) (heap.Handle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hasteModuleTable[name]
	return h, ok
}

// getOrCreateFileModule returns the eponymous FileModule handle for key,
// creating it on first need. Per I3, Lib (and Builtins) keys never get
// one; ok is false in that case.
func (s *Store) getOrCreateFileModule(key storekey.FileKey) (h heap.Handle, ok bool) {
	if key.Kind() == storekey.Lib || key.Kind() == storekey.Builtins {
		return heap.NilHandle, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, exists := s.fileModuleTable[key]; exists {
		return h, true
	}
	h = s.FileModules.Alloc(record.FileModule{})
	s.fileModuleTable[key] = h
	return h, true
}

// getOrCreateHasteModule returns the HasteModule handle for name,
// creating it on first need.
func (s *Store) getOrCreateHasteModule(name string) heap.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, exists := s.hasteModuleTable[name]; exists {
		return h
	}
	nameHandle := s.H.Strings.Intern(name)
	h := s.HasteModules.Alloc(record.HasteModule{Name: nameHandle})
	s.hasteModuleTable[name] = h
	return h
}

// hasteModuleName returns the ModuleName for an already-resolved
// HasteModule handle.
func (s *Store) hasteModuleName(ref heap.Handle) storekey.ModuleName {
	hm := s.HasteModules.Get(ref)
	return storekey.Haste(s.H.Strings.Lookup(hm.Name))
}

// requireStorable panics with an InvariantError if key violates I(Builtins)
// or the "file kind without a name" rule — both are programmer errors,
// never a runtime condition a caller should branch on.
func requireStorable(key storekey.FileKey) {
	if key.Kind() == storekey.Builtins {
		invariantViolation("attempted to store a Builtins key; Builtins is not storable")
	}
	if key.Path() == "" {
		invariantViolation("file kind %v stored without a name", key.Kind())
	}
}
