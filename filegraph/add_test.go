package filegraph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/mgmuesuu/flow/record"
	"github.com/mgmuesuu/flow/storekey"
	"github.com/mgmuesuu/flow/txn"
)

func namesOf(d *DirtySet) []string {
	var out []string
	for _, n := range d.Names() {
		out = append(out, n.String())
	}
	return out
}

func containsName(d *DirtySet, n string) bool {
	for _, got := range namesOf(d) {
		if got == n {
			return true
		}
	}
	return false
}

func mustAddChecked(t *testing.T, s *Store, tr *txn.Txn, key storekey.FileKey, args ParsedArtifacts) *DirtySet {
	t.Helper()
	dirty, err := s.AddCheckedFile(tr, key, args)
	if err != nil {
		t.Fatalf("AddCheckedFile(%s): %v", key, err)
	}
	return dirty
}

func TestAddCheckedFile_FreshFileDirtiesItsOwnFileModule(t *testing.T) {
	s := NewStore(0)
	key := storekey.SourceKey("a.js")
	tr := txn.Begin()

	dirty := mustAddChecked(t, s, tr, key, ParsedArtifacts{Hash: 1})
	if dirty.Len() != 1 || !containsName(dirty, storekey.File(key).String()) {
		t.Fatalf("dirty = %v, want exactly [%s]", namesOf(dirty), storekey.File(key).String())
	}
}

func TestAddCheckedFile_DeclaringHasteNameDirtiesBoth(t *testing.T) {
	s := NewStore(0)
	key := storekey.SourceKey("a.js")
	tr := txn.Begin()

	dirty := mustAddChecked(t, s, tr, key, ParsedArtifacts{Hash: 1, HasteName: "Widget"})
	want := []string{storekey.File(key).String(), storekey.Haste("Widget").String()}
	for _, w := range want {
		if !containsName(dirty, w) {
			t.Fatalf("dirty = %v, want it to contain %s", namesOf(dirty), w)
		}
	}
	if dirty.Len() != 2 {
		t.Fatalf("dirty.Len() = %d, want 2", dirty.Len())
	}
}

func TestAddCheckedFile_UnchangedHashIsNoOp(t *testing.T) {
	s := NewStore(0)
	key := storekey.SourceKey("a.js")
	tr1 := txn.Begin()
	mustAddChecked(t, s, tr1, key, ParsedArtifacts{Hash: 42, HasteName: "Widget"})
	if err := tr1.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tr2 := txn.Begin()
	dirty := mustAddChecked(t, s, tr2, key, ParsedArtifacts{Hash: 42, HasteName: "Widget"})
	if dirty.Len() != 0 {
		t.Fatalf("unchanged-hash AddCheckedFile dirty = %v, want empty", namesOf(dirty))
	}
}

func TestAddCheckedFile_HasteNameChangeDirtiesOldAndNew(t *testing.T) {
	s := NewStore(0)
	key := storekey.SourceKey("a.js")
	tr1 := txn.Begin()
	mustAddChecked(t, s, tr1, key, ParsedArtifacts{Hash: 1, HasteName: "Old"})
	if err := tr1.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tr2 := txn.Begin()
	dirty := mustAddChecked(t, s, tr2, key, ParsedArtifacts{Hash: 2, HasteName: "New"})
	for _, w := range []string{storekey.Haste("Old").String(), storekey.Haste("New").String(), storekey.File(key).String()} {
		if !containsName(dirty, w) {
			t.Fatalf("dirty = %v, want it to contain %s", namesOf(dirty), w)
		}
	}
	if dirty.Len() != 3 {
		t.Fatalf("dirty.Len() = %d, want 3", dirty.Len())
	}
}

func TestAddCheckedFile_DroppingHasteNameDirtiesOnlyOld(t *testing.T) {
	s := NewStore(0)
	key := storekey.SourceKey("a.js")
	tr1 := txn.Begin()
	mustAddChecked(t, s, tr1, key, ParsedArtifacts{Hash: 1, HasteName: "Old"})
	if err := tr1.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tr2 := txn.Begin()
	dirty := mustAddChecked(t, s, tr2, key, ParsedArtifacts{Hash: 2})
	if dirty.Len() != 2 {
		t.Fatalf("dirty.Len() = %d, want 2 (file + dropped haste module)", dirty.Len())
	}
	if !containsName(dirty, storekey.Haste("Old").String()) {
		t.Fatalf("dirty = %v, want it to contain Old", namesOf(dirty))
	}
}

func TestClearFile_IdempotentSecondCallReturnsEmpty(t *testing.T) {
	s := NewStore(0)
	key := storekey.SourceKey("a.js")
	tr1 := txn.Begin()
	mustAddChecked(t, s, tr1, key, ParsedArtifacts{Hash: 1, HasteName: "Widget"})
	if err := tr1.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tr2 := txn.Begin()
	first := s.ClearFile(tr2, key)
	if first.Len() == 0 {
		t.Fatal("first ClearFile of a populated file returned an empty dirty set")
	}
	second := s.ClearFile(tr2, key)
	if second.Len() != 0 {
		t.Fatalf("second ClearFile in the same transaction = %v, want empty", namesOf(second))
	}
}

func TestAddCheckedFile_HasteNameChangeDirtySetIsExactlyOldNewAndFile(t *testing.T) {
	s := NewStore(0)
	key := storekey.SourceKey("a.js")
	tr1 := txn.Begin()
	mustAddChecked(t, s, tr1, key, ParsedArtifacts{Hash: 1, HasteName: "Old"})
	if err := tr1.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tr2 := txn.Begin()
	dirty := mustAddChecked(t, s, tr2, key, ParsedArtifacts{Hash: 2, HasteName: "New"})

	got := namesOf(dirty)
	want := []string{storekey.File(key).String(), storekey.Haste("Old").String(), storekey.Haste("New").String()}
	if diff := cmp.Diff(want, got, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("dirty set mismatch (-want +got):\n%s", diff)
	}
}

func TestAddCheckedFile_ReparseDoesNotDuplicateFileModuleProvider(t *testing.T) {
	s := NewStore(0)
	key := storekey.SourceKey("a.js")
	tr1 := txn.Begin()
	mustAddChecked(t, s, tr1, key, ParsedArtifacts{Hash: 1})
	if err := tr1.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tr2 := txn.Begin()
	mustAddChecked(t, s, tr2, key, ParsedArtifacts{Hash: 2})
	if err := tr2.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	fileHandle, ok := s.lookupFile(key)
	if !ok {
		t.Fatal("file not found after reparse")
	}
	file := s.Files.Get(fileHandle)
	fm := s.FileModules.Get(file.FileModuleRef)
	live := fm.AllProviders.CompactLive(record.FileLinks(s.Parses), s.liveInFileModule())
	if len(live) != 1 {
		t.Fatalf("live file-module providers after reparse = %d, want 1 (reparsing must not register a second provider node)", len(live))
	}
}

func TestClearFile_OfUnknownFileIsEmpty(t *testing.T) {
	s := NewStore(0)
	tr := txn.Begin()
	dirty := s.ClearFile(tr, storekey.SourceKey("never-added.js"))
	if dirty.Len() != 0 {
		t.Fatalf("ClearFile of an unknown key = %v, want empty", namesOf(dirty))
	}
}

func TestRequireStorable_PanicsOnBuiltinsAndUnnamedKinds(t *testing.T) {
	s := NewStore(0)
	tr := txn.Begin()

	assertPanics(t, func() {
		s.AddCheckedFile(tr, storekey.BuiltinsKey(), ParsedArtifacts{Hash: 1})
	})
	assertPanics(t, func() {
		s.AddCheckedFile(tr, storekey.SourceKey(""), ParsedArtifacts{Hash: 1})
	})
}

func TestAddCheckedFile_OutOfSpaceReturnsErrAndWritesNothing(t *testing.T) {
	s := NewStore(1)
	key := storekey.SourceKey("a.js")
	tr := txn.Begin()

	dirty, err := s.AddCheckedFile(tr, key, ParsedArtifacts{Hash: 1, HasteName: "Widget"})
	if err == nil {
		t.Fatal("expected ErrOutOfSpace, got nil")
	}
	if dirty != nil {
		t.Fatalf("dirty = %v, want nil on a failed allocation", dirty)
	}
	if _, ok := s.lookupFile(key); ok {
		t.Fatal("file table has an entry after a failed allocation")
	}
}

func assertPanics(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic, got none")
		}
	}()
	f()
}
