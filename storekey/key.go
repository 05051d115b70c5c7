// Package storekey defines the tagged-union key types used to address
// files and modules in the store: FileKey (what on disk a file record
// corresponds to) and ModuleName (what a module is imported by).
package storekey

// FileKind discriminates the variants of FileKey.
type FileKind uint8

const (
	// Source is an ordinary parseable source file at Path.
	Source FileKind = iota
	// Json is a JSON file at Path, parsed as data rather than code.
	Json
	// Resource is a non-source asset (image, font, ...) at Path, tracked
	// for dependency purposes but never parsed.
	Resource
	// Lib is a declarations-only library file at Path. Per I3, a Lib file
	// never has an eponymous file module of its own.
	Lib
	// Builtins is the single well-known synthetic file of ambient
	// declarations. It has no Path and is never itself storable as a
	// dependency target — see I(Builtins) in the invariants.
	Builtins
)

// FileKey identifies a file record. The zero value is the invalid key
// (Kind Source, empty Path); callers construct one of the named
// constructors below rather than building a FileKey literal.
type FileKey struct {
	kind FileKind
	path string
}

// SourceKey returns the FileKey for an ordinary source file at path.
func SourceKey(path string) FileKey { return FileKey{kind: Source, path: path} }

// JsonKey returns the FileKey for a JSON file at path.
func JsonKey(path string) FileKey { return FileKey{kind: Json, path: path} }

// ResourceKey returns the FileKey for a non-source asset at path.
func ResourceKey(path string) FileKey { return FileKey{kind: Resource, path: path} }

// LibKey returns the FileKey for a declarations-only library file at path.
func LibKey(path string) FileKey { return FileKey{kind: Lib, path: path} }

// BuiltinsKey returns the single well-known Builtins FileKey.
func BuiltinsKey() FileKey { return FileKey{kind: Builtins} }

// Kind reports which variant k is.
func (k FileKey) Kind() FileKind { return k.kind }

// Path returns the filesystem path for Source/Json/Resource/Lib keys, and
// "" for Builtins.
func (k FileKey) Path() string { return k.path }

// HasHasteName reports whether files of this kind may declare a haste
// module name of their own (only Source files do; JSON, resources, libs,
// and Builtins never do).
func (k FileKey) HasHasteName() bool { return k.kind == Source }

// String renders k for logs and error messages.
func (k FileKey) String() string {
	switch k.kind {
	case Source:
		return "source:" + k.path
	case Json:
		return "json:" + k.path
	case Resource:
		return "resource:" + k.path
	case Lib:
		return "lib:" + k.path
	case Builtins:
		return "builtins"
	default:
		return "invalid-file-key"
	}
}

// NameKind discriminates the variants of ModuleName.
type NameKind uint8

const (
	// HasteName is a module addressed by its declared haste name.
	HasteName NameKind = iota
	// FileName is a module addressed by the FileKey it lives in (the
	// file's own eponymous module).
	FileName
)

// ModuleName identifies a module record: either by a haste name declared
// somewhere in the project, or by the FileKey of the file it is the
// eponymous module of.
type ModuleName struct {
	kind  NameKind
	haste string
	file  FileKey
}

// Haste returns the ModuleName for a module declared under the given
// haste name.
func Haste(name string) ModuleName { return ModuleName{kind: HasteName, haste: name} }

// File returns the ModuleName for the eponymous module of key. Per I3,
// key must not be a Lib key — callers constructing one from a Lib FileKey
// have a bug, not a runtime condition to branch on.
func File(key FileKey) ModuleName { return ModuleName{kind: FileName, file: key} }

// Kind reports which variant n is.
func (n ModuleName) Kind() NameKind { return n.kind }

// HasteValue returns the declared name for a HasteName, and "" otherwise.
func (n ModuleName) HasteValue() string { return n.haste }

// FileKey returns the backing FileKey for a FileName, and the zero FileKey
// otherwise.
func (n ModuleName) FileKey() FileKey { return n.file }

// String renders n for logs and error messages.
func (n ModuleName) String() string {
	switch n.kind {
	case HasteName:
		return "haste:" + n.haste
	case FileName:
		return "file:" + n.file.String()
	default:
		return "invalid-module-name"
	}
}
