// Package reader is the store's public read API: Mutator readers (see
// latest), Committed readers (see committed), and a Dispatcher that picks
// between the two per call. All three share one implementation — a
// single Kind-tagged Reader type with one function per operation that
// dispatches once at the entry point, per the design note against
// per-record vtables.
package reader

import (
	"fmt"

	"github.com/mgmuesuu/flow/codec"
	"github.com/mgmuesuu/flow/filegraph"
	"github.com/mgmuesuu/flow/heap"
	"github.com/mgmuesuu/flow/loc"
	"github.com/mgmuesuu/flow/record"
	"github.com/mgmuesuu/flow/storekey"
	"github.com/mgmuesuu/flow/txn"
)

// decodeBlob decodes a codec-serialized AST/exports blob back into its
// opaque value. A blob the store wrote itself failing to decode means the
// heap is corrupt, not a missing artifact — that is not a condition a
// caller can branch on, so it panics rather than returning a LookupError.
func decodeBlob(blob []byte) any {
	if blob == nil {
		return nil
	}
	v, err := codec.Decode[any](blob)
	if err != nil {
		panic(fmt.Sprintf("reader: corrupt artifact blob: %v", err))
	}
	return v
}

// ReaderKind selects which entity slot a Reader resolves to.
type ReaderKind int

const (
	// Latest reads the latest slot of every entity — the view inside an
	// active transaction.
	Latest ReaderKind = iota
	// Committed reads the committed slot — the view outside transactions,
	// and for "old" lookups made while a reparse is in flight.
	Committed
)

// Reader is a uniform read view over a *filegraph.Store. Construct one
// with NewMutator, NewCommitted, or NewDispatcher.
type Reader struct {
	store  *filegraph.Store
	kind   ReaderKind
	caches *Caches
	// dynamic, if non-nil, overrides kind per call — this is the
	// Dispatcher flavor. It still only ever resolves to Latest or
	// Committed; there is no third case.
	dynamic func() ReaderKind
}

// NewMutator returns a reader that always sees the latest slot, backed by
// caches the mutator (see mutator.Reparse) clears on every commit/
// rollback.
func NewMutator(store *filegraph.Store, caches *Caches) *Reader {
	return &Reader{store: store, kind: Latest, caches: caches}
}

// NewCommitted returns a reader that always sees the committed slot,
// backed by caches invalidated per commit for the changed-file set only.
func NewCommitted(store *filegraph.Store, caches *Caches) *Reader {
	return &Reader{store: store, kind: Committed, caches: caches}
}

// NewDispatcher returns a reader that resolves Latest or Committed afresh
// on every call by invoking inTxn — true for Latest, false for Committed.
// A typical inTxn closure checks whether the calling goroutine currently
// holds an active *txn.Txn.
func NewDispatcher(store *filegraph.Store, caches *Caches, inTxn func() bool) *Reader {
	return &Reader{store: store, caches: caches, dynamic: func() ReaderKind {
		if inTxn() {
			return Latest
		}
		return Committed
	}}
}

func (r *Reader) resolvedKind() ReaderKind {
	if r.dynamic != nil {
		return r.dynamic()
	}
	return r.kind
}

// parseHandleForFile resolves the File's parse-entity to the handle this
// reader should see.
func (r *Reader) parseHandleForFile(file *record.File) heap.Handle {
	switch r.resolvedKind() {
	case Latest:
		return file.Parse.ReadLatest()
	default:
		return file.Parse.ReadCommitted(txn.LastCommitted())
	}
}

func (r *Reader) providerHandleForModule(entity *heap.Entity) heap.Handle {
	switch r.resolvedKind() {
	case Latest:
		return entity.ReadLatest()
	default:
		return entity.ReadCommitted(txn.LastCommitted())
	}
}

// GetParse returns the Parse artifact for key, or (nil, false) if the
// file has no record, or has one with no current parse.
func (r *Reader) GetParse(key storekey.FileKey) (*record.Parse, bool) {
	fileHandle, ok := r.store.LookupFile(key)
	if !ok {
		return nil, false
	}
	parseHandle := r.parseHandleForFile(r.store.Files.Get(fileHandle))
	if parseHandle == heap.NilHandle {
		return nil, false
	}
	return r.store.Parses.Get(parseHandle), true
}

// GetParseUnsafe is GetParse's *_unsafe variant.
func (r *Reader) GetParseUnsafe(key storekey.FileKey) (*record.Parse, error) {
	fileHandle, ok := r.store.LookupFile(key)
	if !ok {
		return nil, &LookupError{Kind: FileNotFound, Key: key.String()}
	}
	parseHandle := r.parseHandleForFile(r.store.Files.Get(fileHandle))
	if parseHandle == heap.NilHandle {
		return nil, &LookupError{Kind: FileNotParsed, Key: key.String()}
	}
	return r.store.Parses.Get(parseHandle), nil
}

// GetTypedParse returns the Parse artifact for key if present and typed.
func (r *Reader) GetTypedParse(key storekey.FileKey) (*record.Parse, bool) {
	p, ok := r.GetParse(key)
	if !ok || !p.IsTyped {
		return nil, false
	}
	return p, true
}

// GetTypedParseUnsafe is GetTypedParse's *_unsafe variant.
func (r *Reader) GetTypedParseUnsafe(key storekey.FileKey) (*record.Parse, error) {
	p, err := r.GetParseUnsafe(key)
	if err != nil {
		return nil, err
	}
	if !p.IsTyped {
		return nil, &LookupError{Kind: FileNotTyped, Key: key.String()}
	}
	return p, nil
}

// IsTypedFile reports whether key currently has a typed parse. Unlike the
// artifact getters this is a plain boolean query with no unsafe variant.
func (r *Reader) IsTypedFile(key storekey.FileKey) bool {
	_, ok := r.GetTypedParse(key)
	return ok
}

// HasAST reports whether key currently has a typed parse carrying a
// non-nil AST.
func (r *Reader) HasAST(key storekey.FileKey) bool {
	p, ok := r.GetTypedParse(key)
	return ok && p.ASTBlob != nil
}

// GetAST returns the AST for key, decoded from its stored blob, serving
// from the AST cache when possible.
func (r *Reader) GetAST(key storekey.FileKey) (any, bool) {
	if r.caches != nil {
		if v, ok := r.caches.AST.Get(key); ok {
			return v, true
		}
	}
	p, ok := r.GetTypedParse(key)
	if !ok || p.ASTBlob == nil {
		return nil, false
	}
	v := decodeBlob(p.ASTBlob)
	if r.caches != nil {
		r.caches.AST.Put(key, v)
	}
	return v, true
}

// GetASTUnsafe is GetAST's *_unsafe variant.
func (r *Reader) GetASTUnsafe(key storekey.FileKey) (any, error) {
	p, err := r.GetTypedParseUnsafe(key)
	if err != nil {
		return nil, err
	}
	if p.ASTBlob == nil {
		return nil, &LookupError{Kind: AstNotFound, Key: key.String()}
	}
	return decodeBlob(p.ASTBlob), nil
}

// GetAlocTable returns the per-file abstract-location table for key,
// serving from the aloc-table cache when possible.
func (r *Reader) GetAlocTable(key storekey.FileKey) (*loc.AlocTable, bool) {
	if r.caches != nil {
		if v, ok := r.caches.ALocs.Get(key); ok {
			return v.(*loc.AlocTable), true
		}
	}
	p, ok := r.GetTypedParse(key)
	if !ok || p.AlocTable == nil {
		return nil, false
	}
	if r.caches != nil {
		r.caches.ALocs.Put(key, p.AlocTable)
	}
	return p.AlocTable, true
}

// GetAlocTableUnsafe is GetAlocTable's *_unsafe variant.
func (r *Reader) GetAlocTableUnsafe(key storekey.FileKey) (*loc.AlocTable, error) {
	p, err := r.GetTypedParseUnsafe(key)
	if err != nil {
		return nil, err
	}
	if p.AlocTable == nil {
		return nil, &LookupError{Kind: AlocTableNotFound, Key: key.String()}
	}
	return p.AlocTable, nil
}

// LocOfAloc lazily resolves a into a concrete loc.Loc against src, using
// key's aloc-table. This is the one read-API operation that also needs
// the original source text, which the store itself never stores.
func (r *Reader) LocOfAloc(key storekey.FileKey, src string, a loc.ALoc) (loc.Loc, bool) {
	table, ok := r.GetAlocTable(key)
	if !ok {
		return loc.Loc{}, false
	}
	return table.LocOf(src, a), true
}

// GetDocblock returns the docblock blob for key.
func (r *Reader) GetDocblock(key storekey.FileKey) ([]byte, bool) {
	p, ok := r.GetTypedParse(key)
	if !ok || p.Docblock == nil {
		return nil, false
	}
	return p.Docblock, true
}

// GetDocblockUnsafe is GetDocblock's *_unsafe variant.
func (r *Reader) GetDocblockUnsafe(key storekey.FileKey) ([]byte, error) {
	p, err := r.GetTypedParseUnsafe(key)
	if err != nil {
		return nil, err
	}
	if p.Docblock == nil {
		return nil, &LookupError{Kind: DocblockNotFound, Key: key.String()}
	}
	return p.Docblock, nil
}

// GetExports returns the exports artifact for key, decoded from its
// stored blob.
func (r *Reader) GetExports(key storekey.FileKey) (any, bool) {
	p, ok := r.GetTypedParse(key)
	if !ok || p.ExportsBlob == nil {
		return nil, false
	}
	return decodeBlob(p.ExportsBlob), true
}

// GetExportsUnsafe is GetExports's *_unsafe variant.
func (r *Reader) GetExportsUnsafe(key storekey.FileKey) (any, error) {
	p, err := r.GetTypedParseUnsafe(key)
	if err != nil {
		return nil, err
	}
	if p.ExportsBlob == nil {
		return nil, &LookupError{Kind: RequiresNotFound, Key: key.String()}
	}
	return decodeBlob(p.ExportsBlob), nil
}

// GetFileSig returns the file-signature blob for key.
func (r *Reader) GetFileSig(key storekey.FileKey) ([]byte, bool) {
	p, ok := r.GetTypedParse(key)
	if !ok || p.FileSig == nil {
		return nil, false
	}
	return p.FileSig, true
}

// GetFileSigUnsafe is GetFileSig's *_unsafe variant.
func (r *Reader) GetFileSigUnsafe(key storekey.FileKey) ([]byte, error) {
	p, err := r.GetTypedParseUnsafe(key)
	if err != nil {
		return nil, err
	}
	if p.FileSig == nil {
		return nil, &LookupError{Kind: TypeSigNotFound, Key: key.String()}
	}
	return p.FileSig, nil
}

// GetTolerableFileSig returns the same blob as GetFileSig — the store
// keeps one file-signature payload per parse and serves it under both
// read-API names.
func (r *Reader) GetTolerableFileSig(key storekey.FileKey) ([]byte, bool) {
	return r.GetFileSig(key)
}

// GetTolerableFileSigUnsafe is GetTolerableFileSig's *_unsafe variant.
func (r *Reader) GetTolerableFileSigUnsafe(key storekey.FileKey) ([]byte, error) {
	return r.GetFileSigUnsafe(key)
}

// GetTypeSig returns the type-signature blob for key.
func (r *Reader) GetTypeSig(key storekey.FileKey) ([]byte, bool) {
	p, ok := r.GetTypedParse(key)
	if !ok || p.TypeSig == nil {
		return nil, false
	}
	return p.TypeSig, true
}

// GetTypeSigUnsafe is GetTypeSig's *_unsafe variant.
func (r *Reader) GetTypeSigUnsafe(key storekey.FileKey) ([]byte, error) {
	p, err := r.GetTypedParseUnsafe(key)
	if err != nil {
		return nil, err
	}
	if p.TypeSig == nil {
		return nil, &LookupError{Kind: TypeSigNotFound, Key: key.String()}
	}
	return p.TypeSig, nil
}

// GetFileHash returns the content hash recorded for key's current parse,
// typed or untyped.
func (r *Reader) GetFileHash(key storekey.FileKey) (uint64, bool) {
	p, ok := r.GetParse(key)
	if !ok {
		return 0, false
	}
	return p.FileHash, true
}

// GetFileHashUnsafe is GetFileHash's *_unsafe variant.
func (r *Reader) GetFileHashUnsafe(key storekey.FileKey) (uint64, error) {
	p, err := r.GetParseUnsafe(key)
	if err != nil {
		return 0, err
	}
	return p.FileHash, nil
}

// GetProvider returns the File currently chosen as the provider of name,
// if any.
func (r *Reader) GetProvider(name storekey.ModuleName) (*record.File, bool) {
	ref, entity, ok := r.moduleEntity(name)
	if !ok {
		return nil, false
	}
	fileHandle := r.providerHandleForModule(entity)
	_ = ref
	if fileHandle == heap.NilHandle {
		return nil, false
	}
	return r.store.Files.Get(fileHandle), true
}

// GetProviderUnsafe is GetProvider's *_unsafe variant.
func (r *Reader) GetProviderUnsafe(name storekey.ModuleName) (*record.File, error) {
	missingKind := HasteModuleNotFound
	if name.Kind() == storekey.FileName {
		missingKind = FileModuleNotFound
	}
	_, entity, ok := r.moduleEntity(name)
	if !ok {
		return nil, &LookupError{Kind: missingKind, Key: name.String()}
	}
	fileHandle := r.providerHandleForModule(entity)
	if fileHandle == heap.NilHandle {
		return nil, &LookupError{Kind: missingKind, Key: name.String()}
	}
	return r.store.Files.Get(fileHandle), nil
}

func (r *Reader) moduleEntity(name storekey.ModuleName) (heap.Handle, *heap.Entity, bool) {
	switch name.Kind() {
	case storekey.HasteName:
		ref, ok := r.store.LookupHasteModule(name.HasteValue())
		if !ok {
			return heap.NilHandle, nil, false
		}
		return ref, &r.store.HasteModules.Get(ref).ProviderEntity, true
	case storekey.FileName:
		ref, ok := r.store.LookupFileModule(name.FileKey())
		if !ok {
			return heap.NilHandle, nil, false
		}
		return ref, &r.store.FileModules.Get(ref).ProviderEntity, true
	default:
		return heap.NilHandle, nil, false
	}
}
