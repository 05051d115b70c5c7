package reader

import "fmt"

// Kind enumerates the lookup-miss error kinds surfaced to callers, exactly
// as named in the public read API.
type Kind int

const (
	FileNotFound Kind = iota
	FileNotParsed
	FileNotTyped
	AstNotFound
	AlocTableNotFound
	DocblockNotFound
	RequiresNotFound
	TypeSigNotFound
	HasteModuleNotFound
	FileModuleNotFound
)

func (k Kind) String() string {
	switch k {
	case FileNotFound:
		return "FileNotFound"
	case FileNotParsed:
		return "FileNotParsed"
	case FileNotTyped:
		return "FileNotTyped"
	case AstNotFound:
		return "AstNotFound"
	case AlocTableNotFound:
		return "AlocTableNotFound"
	case DocblockNotFound:
		return "DocblockNotFound"
	case RequiresNotFound:
		return "RequiresNotFound"
	case TypeSigNotFound:
		return "TypeSigNotFound"
	case HasteModuleNotFound:
		return "HasteModuleNotFound"
	case FileModuleNotFound:
		return "FileModuleNotFound"
	default:
		return "UnknownLookupError"
	}
}

// LookupError is returned by every *_unsafe read operation when the
// requested artifact is absent. Defensive callers use the non-unsafe,
// optional-returning form instead and never see this type; callers with a
// proved precondition (e.g. "we just parsed this file") use *_unsafe and
// treat a LookupError as a programmer error.
//
// file-sig and tolerable-file-sig misses are reported as TypeSigNotFound:
// the public error vocabulary enumerated for this API has no dedicated
// kind for them, and both are signature blobs produced alongside the type
// signature, so that is the closest existing kind rather than inventing
// a new one.
type LookupError struct {
	Kind Kind
	Key  string // the FileKey/ModuleName string this lookup was for
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("reader: %s: %s", e.Kind, e.Key)
}

// Is lets errors.Is(err, SomeKind) work by matching on Kind; callers
// typically compare via a sentinel constructed with that Kind and an
// empty Key.
func (e *LookupError) Is(target error) bool {
	other, ok := target.(*LookupError)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}
