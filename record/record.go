// Package record defines the heap-resident record types the store builds
// on top of the heap primitives: File, Parse, FileModule, and
// HasteModule. Each lives in its own heap.Arena and is addressed by a
// stable heap.Handle for the record's whole lifetime.
package record

import (
	"github.com/mgmuesuu/flow/heap"
	"github.com/mgmuesuu/flow/loc"
	"github.com/mgmuesuu/flow/storekey"
)

// File is created once per FileKey and never deallocated by the core —
// only its ParseEntity's two slots ever change.
type File struct {
	Kind FileKey
	// Name is the interned path this file was created for (Builtins keys
	// are never stored, so every File has a non-empty path).
	Name heap.Handle
	// FileModuleRef is the FileModule record this file is the eponymous
	// provider candidate for, or NilHandle for kinds that never get one
	// (Lib, Builtins; see I3).
	FileModuleRef heap.Handle
	// Parse is the two-slot committed/latest cell holding Parse handles.
	Parse heap.Entity
}

// FileKey is a re-export alias kept local to this package so callers that
// only need the record layer don't also have to import storekey directly
// for this one type; the tagged-union behavior is unchanged.
type FileKey = storekey.FileKey

// Parse is the unified record for both typed and untyped parse results.
// Untyped parses (kind Unparsed per the worker interface) leave the
// typed-only fields at their zero value.
type Parse struct {
	IsTyped  bool
	FileHash uint64

	// OwnerFile is the File this parse belongs to. Module provider
	// entities point at a File (not a Parse), so resolving "which file is
	// this module's chosen provider" needs the reverse link stored here.
	OwnerFile heap.Handle

	// HasteModuleRef is the HasteModule this parse declares itself a
	// provider for, or NilHandle if the parse declared no haste name.
	HasteModuleRef heap.Handle

	// Typed-only artifacts. Out-of-scope encoders (the type-signature
	// binary encoder, the location-table packer) are treated as already
	// having run by the time a Parse reaches the store, so these are
	// opaque payloads the store never interprets. ASTBlob and ExportsBlob
	// are the codec-serialized form of whatever value the worker produced
	// — the store only ever stores and returns bytes, never the live
	// value, matching the other blob fields.
	Docblock    []byte
	ASTBlob     []byte
	AlocTable   *loc.AlocTable
	FileSig     []byte
	TypeSig     []byte
	ExportsBlob []byte

	// FileModuleLinks threads this parse through its owning FileModule's
	// all-providers list; HasteModuleLinks does the same for the
	// HasteModule, if any. A single parse can be linked into both lists
	// at once (a file can provide both a file module and a haste module
	// simultaneously).
	FileModuleLinks  heap.ListLinks
	HasteModuleLinks heap.ListLinks
}

// TolerableFileSig returns FileSig as the "tolerable" variant read API
// callers ask for; the store keeps only one file-signature payload per
// parse and exposes it under both names, matching the worker interface
// which produces a single file-sig per Parsed result.
func (p *Parse) TolerableFileSig() []byte { return p.FileSig }

// FileModule is created on first need and removed only at commit if no
// providers remain.
type FileModule struct {
	// ProviderEntity holds the currently-selected provider File for this
	// module, as a two-slot committed/latest cell.
	ProviderEntity heap.Entity
	// AllProviders threads Parse handles (via Parse.FileModuleLinks) that
	// currently or formerly provided this module.
	AllProviders heap.ProviderList
}

// HasteModule is created on first need and removed only at commit if no
// providers remain.
type HasteModule struct {
	Name heap.Handle

	ProviderEntity heap.Entity
	AllProviders   heap.ProviderList
}

// FileLinks returns the accessor for a Parse's membership in a
// FileModule's AllProviders list, for use with heap.ProviderList methods.
func FileLinks(arena *heap.Arena[Parse]) heap.Links {
	return func(h heap.Handle) *heap.ListLinks {
		return &arena.Get(h).FileModuleLinks
	}
}

// HasteLinks returns the accessor for a Parse's membership in a
// HasteModule's AllProviders list.
func HasteLinks(arena *heap.Arena[Parse]) heap.Links {
	return func(h heap.Handle) *heap.ListLinks {
		return &arena.Get(h).HasteModuleLinks
	}
}
