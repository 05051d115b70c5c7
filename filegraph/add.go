package filegraph

import (
	"fmt"

	"github.com/mgmuesuu/flow/codec"
	"github.com/mgmuesuu/flow/heap"
	"github.com/mgmuesuu/flow/loc"
	"github.com/mgmuesuu/flow/observability"
	"github.com/mgmuesuu/flow/record"
	"github.com/mgmuesuu/flow/storekey"
	"github.com/mgmuesuu/flow/txn"
)

// ParsedArtifacts is the payload a worker hands to AddCheckedFile: the
// parser, type-signature encoder, and location-table packer are external
// collaborators, so by the time this reaches the store their outputs are
// already-produced blobs (or, for AST/Exports, opaque in-memory values the
// store serializes itself via codec.Encode before ever touching the heap —
// the store never interprets either, it only round-trips them).
type ParsedArtifacts struct {
	Hash      uint64
	HasteName string // "" means no haste name declared
	Docblock  []byte
	AST       any
	Spans     []loc.Span
	FileSig   []byte
	TypeSig   []byte
	Exports   any
}

// UnparsedArtifacts is the payload for AddUnparsedFile: a worker that
// could not produce a typed parse still reports a content hash and an
// optional haste name.
type UnparsedArtifacts struct {
	Hash      uint64
	HasteName string
}

// recordHeaderSize is the flat per-record overhead budgeted for each of
// the up-to-5 records an add_checked_file/add_unparsed_file call may
// touch (file, parse, file-module, haste-module, entity), per §4.3 step 3.
const recordHeaderSize = 64

// encodeBlob serializes v with the opaque artifact codec, returning a nil
// blob for a nil value so HasAST/GetExports-style nil-checks keep working
// on the stored record.
func encodeBlob(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return codec.Encode(v)
}

// AddCheckedFile implements add_checked_file: publish a typed parse for
// key and return the set of dirty modules. The unchanged-hash fast path
// returns an empty DirtySet and performs no allocation. If the heap's
// capacity would be exceeded, the reservation fails before anything is
// written and ErrOutOfSpace is returned — the caller's transaction is
// expected to roll back.
func (s *Store) AddCheckedFile(t *txn.Txn, key storekey.FileKey, args ParsedArtifacts) (*DirtySet, error) {
	requireStorable(key)

	fileHandle, existed := s.lookupFile(key)
	var file *record.File
	var oldHaste heap.Handle
	if existed {
		file = s.Files.Get(fileHandle)
		if latest := file.Parse.ReadLatest(); latest != heap.NilHandle {
			lp := s.Parses.Get(latest)
			if lp.IsTyped && lp.FileHash == args.Hash {
				return NewDirtySet(), nil
			}
			oldHaste = lp.HasteModuleRef
		}
	}

	astBlob, err := encodeBlob(args.AST)
	if err != nil {
		return nil, fmt.Errorf("filegraph: encoding AST for %s: %w", key, err)
	}
	exportsBlob, err := encodeBlob(args.Exports)
	if err != nil {
		return nil, fmt.Errorf("filegraph: encoding exports for %s: %w", key, err)
	}
	table, _ := loc.Compactify(args.Spans)

	size := s.reservationSize(len(args.Docblock)+len(astBlob)+len(args.FileSig)+len(args.TypeSig)+len(exportsBlob), args.HasteName)

	var dirty *DirtySet
	_, err = s.H.Alloc(size, func(*heap.Chunk) (heap.Handle, error) {
		if !existed {
			fileHandle, file = s.createFile(key)
		}

		var hasteRef heap.Handle
		if args.HasteName != "" {
			hasteRef = s.getOrCreateHasteModule(args.HasteName)
		}

		parseHandle := s.Parses.Alloc(record.Parse{
			IsTyped:        true,
			FileHash:       args.Hash,
			OwnerFile:      fileHandle,
			HasteModuleRef: hasteRef,
			Docblock:       args.Docblock,
			ASTBlob:        astBlob,
			AlocTable:      table,
			FileSig:        args.FileSig,
			TypeSig:        args.TypeSig,
			ExportsBlob:    exportsBlob,
		})
		file.Parse.Advance(t.Generation(), parseHandle)

		dirty = NewDirtySet()
		freshFileModuleRef := heap.NilHandle
		if !existed {
			freshFileModuleRef = file.FileModuleRef
		}
		s.wireProvidersAndDirty(dirty, key, freshFileModuleRef, parseHandle, oldHaste, hasteRef)
		return parseHandle, nil
	})
	if err != nil {
		return nil, fmt.Errorf("filegraph: adding %s: %w", key, err)
	}

	s.emit(EventFileAdded, observability.LevelVerbose, map[string]any{"file": key.String(), "typed": true, "dirty": dirty.Len()})
	return dirty, nil
}

// AddUnparsedFile implements add_unparsed_file: same shape as
// AddCheckedFile but allocates an untyped parse record (no AST/sig
// blobs).
func (s *Store) AddUnparsedFile(t *txn.Txn, key storekey.FileKey, args UnparsedArtifacts) (*DirtySet, error) {
	requireStorable(key)

	fileHandle, existed := s.lookupFile(key)
	var file *record.File
	var oldHaste heap.Handle
	if existed {
		file = s.Files.Get(fileHandle)
		if latest := file.Parse.ReadLatest(); latest != heap.NilHandle {
			lp := s.Parses.Get(latest)
			if !lp.IsTyped && lp.FileHash == args.Hash {
				return NewDirtySet(), nil
			}
			oldHaste = lp.HasteModuleRef
		}
	}

	size := s.reservationSize(0, args.HasteName)

	var dirty *DirtySet
	_, err := s.H.Alloc(size, func(*heap.Chunk) (heap.Handle, error) {
		if !existed {
			fileHandle, file = s.createFile(key)
		}

		var hasteRef heap.Handle
		if args.HasteName != "" {
			hasteRef = s.getOrCreateHasteModule(args.HasteName)
		}

		parseHandle := s.Parses.Alloc(record.Parse{
			IsTyped:        false,
			FileHash:       args.Hash,
			OwnerFile:      fileHandle,
			HasteModuleRef: hasteRef,
		})
		file.Parse.Advance(t.Generation(), parseHandle)

		dirty = NewDirtySet()
		freshFileModuleRef := heap.NilHandle
		if !existed {
			freshFileModuleRef = file.FileModuleRef
		}
		s.wireProvidersAndDirty(dirty, key, freshFileModuleRef, parseHandle, oldHaste, hasteRef)
		return parseHandle, nil
	})
	if err != nil {
		return nil, fmt.Errorf("filegraph: adding %s: %w", key, err)
	}

	s.emit(EventFileAdded, observability.LevelVerbose, map[string]any{"file": key.String(), "typed": false, "dirty": dirty.Len()})
	return dirty, nil
}

// reservationSize implements §4.3 step 3: 5 record headers (file, parse,
// file-module, haste-module, entity — whether or not all 5 end up
// touched this call) + the sized blobs already measured by the caller +
// the content hash +, if name names a haste module not yet known to the
// store, the haste-module record plus its interned string.
func (s *Store) reservationSize(blobBytes int, name string) int {
	n := 5*recordHeaderSize + blobBytes + 8 // hash
	if name != "" {
		if _, exists := s.lookupHasteModule(name); !exists {
			n += recordHeaderSize + len(name)
		}
	}
	return n
}

// ClearFile implements clear_file: advance the file's parse-entity to
// None without physically unlinking it from any provider list (deletion
// is deferred, per the lazy-GC discipline). Calling ClearFile twice in a
// row is idempotent: the second call observes latest already None and
// returns an empty dirty set. ClearFile never grows the heap, so it has
// no reservation to make and cannot fail with ErrOutOfSpace.
func (s *Store) ClearFile(t *txn.Txn, key storekey.FileKey) *DirtySet {
	dirty := NewDirtySet()

	fileHandle, ok := s.lookupFile(key)
	if !ok {
		return dirty
	}
	file := s.Files.Get(fileHandle)
	latest := file.Parse.ReadLatest()
	if latest == heap.NilHandle {
		return dirty
	}
	oldHaste := s.Parses.Get(latest).HasteModuleRef

	file.Parse.Advance(t.Generation(), heap.NilHandle)

	if file.FileModuleRef != heap.NilHandle {
		dirty.Add(storekey.File(key))
	}
	if oldHaste != heap.NilHandle {
		dirty.Add(s.hasteModuleName(oldHaste))
	}
	s.emit(EventFileCleared, observability.LevelVerbose, map[string]any{"file": key.String(), "dirty": dirty.Len()})
	return dirty
}

// createFile allocates a new File record for key and, unless key is Lib
// or Builtins, its eponymous FileModule.
func (s *Store) createFile(key storekey.FileKey) (heap.Handle, *record.File) {
	name := s.H.Strings.Intern(key.Path())
	fileModuleRef := heap.NilHandle
	if fm, ok := s.getOrCreateFileModule(key); ok {
		fileModuleRef = fm
	}

	s.mu.Lock()
	if h, exists := s.fileTable[key]; exists {
		// Lost the race with a concurrent creator for the same key; the
		// ordering guarantee (one worker per key per transaction) means
		// this can only happen across transactions, and the existing
		// record is authoritative.
		s.mu.Unlock()
		return h, s.Files.Get(h)
	}
	h := s.Files.Alloc(record.File{Kind: key, Name: name, FileModuleRef: fileModuleRef})
	s.fileTable[key] = h
	s.mu.Unlock()
	return h, s.Files.Get(h)
}

// wireProvidersAndDirty implements §4.5's dirty-module computation and
// registers the new parse as a provider of whichever modules it now
// belongs to. freshFileModuleRef is the file's eponymous FileModule ref
// only when this call just created it (the "Nf present" fresh-path case
// of §4.5) — on the update path it is always NilHandle, since an already-
// registered file module never needs (or gets) a second provider node
// for the same file per update.
func (s *Store) wireProvidersAndDirty(dirty *DirtySet, key storekey.FileKey, freshFileModuleRef, parseHandle, oldHaste, newHaste heap.Handle) {
	// Lib files have no eponymous file module (I3), so only the haste
	// side can make them dirty.
	if key.Kind() != storekey.Lib {
		dirty.Add(storekey.File(key))
	}

	switch {
	case oldHaste == heap.NilHandle && newHaste == heap.NilHandle:
		// no haste-module dirtiness
	case oldHaste == heap.NilHandle:
		s.addHasteProvider(newHaste, parseHandle)
		dirty.Add(s.hasteModuleName(newHaste))
	case newHaste == heap.NilHandle:
		dirty.Add(s.hasteModuleName(oldHaste))
	case oldHaste == newHaste:
		dirty.Add(s.hasteModuleName(newHaste))
	default:
		s.addHasteProvider(newHaste, parseHandle)
		dirty.Add(s.hasteModuleName(oldHaste))
		dirty.Add(s.hasteModuleName(newHaste))
	}

	if freshFileModuleRef != heap.NilHandle {
		s.addFileProvider(freshFileModuleRef, parseHandle)
	}
}

func (s *Store) addHasteProvider(ref, parseHandle heap.Handle) {
	lock := s.H.LockModule(ref)
	defer lock.Unlock()
	hm := s.HasteModules.Get(ref)
	hm.AllProviders.PushBack(parseHandle, record.HasteLinks(s.Parses))
}

func (s *Store) addFileProvider(ref, parseHandle heap.Handle) {
	lock := s.H.LockModule(ref)
	defer lock.Unlock()
	fm := s.FileModules.Get(ref)
	fm.AllProviders.PushBack(parseHandle, record.FileLinks(s.Parses))
}
