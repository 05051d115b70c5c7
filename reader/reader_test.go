package reader

import (
	"errors"
	"testing"

	"github.com/mgmuesuu/flow/filegraph"
	"github.com/mgmuesuu/flow/loc"
	"github.com/mgmuesuu/flow/storekey"
	"github.com/mgmuesuu/flow/txn"
)

func TestReader_GetParseUnsafe_FileNotFound(t *testing.T) {
	s := filegraph.NewStore(0)
	r := NewCommitted(s, NewCaches(16))

	_, err := r.GetParseUnsafe(storekey.SourceKey("missing.js"))
	var le *LookupError
	if !errors.As(err, &le) || le.Kind != FileNotFound {
		t.Fatalf("err = %v, want LookupError{Kind: FileNotFound}", err)
	}
}

func TestReader_MutatorSeesLatestBeforeCommit(t *testing.T) {
	s := filegraph.NewStore(0)
	caches := NewCaches(16)
	mut := NewMutator(s, caches)
	key := storekey.SourceKey("a.js")

	tr := txn.Begin()
	s.AddCheckedFile(tr, key, filegraph.ParsedArtifacts{Hash: 7, AST: "ast-blob"})

	ast, ok := mut.GetAST(key)
	if !ok || ast != "ast-blob" {
		t.Fatalf("mutator reader GetAST = (%v, %v), want (\"ast-blob\", true) before commit", ast, ok)
	}

	if err := tr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestReader_CommittedDoesNotSeeUncommittedWrite(t *testing.T) {
	s := filegraph.NewStore(0)
	caches := NewCaches(16)
	committed := NewCommitted(s, caches)
	key := storekey.SourceKey("a.js")

	tr := txn.Begin()
	s.AddCheckedFile(tr, key, filegraph.ParsedArtifacts{Hash: 7})

	if _, ok := committed.GetParse(key); ok {
		t.Fatal("committed reader saw an in-flight (uncommitted) parse")
	}

	if err := tr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, ok := committed.GetParse(key); !ok {
		t.Fatal("committed reader did not see the parse after commit")
	}
}

func TestReader_DispatcherSwitchesOnInTxn(t *testing.T) {
	s := filegraph.NewStore(0)
	caches := NewCaches(16)
	key := storekey.SourceKey("a.js")

	inTxn := false
	disp := NewDispatcher(s, caches, func() bool { return inTxn })

	tr := txn.Begin()
	inTxn = true
	s.AddCheckedFile(tr, key, filegraph.ParsedArtifacts{Hash: 1})

	if _, ok := disp.GetParse(key); !ok {
		t.Fatal("dispatcher while inTxn=true did not see the in-flight write")
	}

	inTxn = false
	if _, ok := disp.GetParse(key); ok {
		t.Fatal("dispatcher while inTxn=false saw the not-yet-committed write")
	}

	inTxn = true
	if err := tr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	inTxn = false
	if _, ok := disp.GetParse(key); !ok {
		t.Fatal("dispatcher while inTxn=false did not see the write once committed")
	}
}

func TestReader_GetASTUnsafe_AstNotFoundWhenTypedButNilAST(t *testing.T) {
	s := filegraph.NewStore(0)
	caches := NewCaches(16)
	mut := NewMutator(s, caches)
	key := storekey.SourceKey("a.js")

	tr := txn.Begin()
	s.AddCheckedFile(tr, key, filegraph.ParsedArtifacts{Hash: 1})

	_, err := mut.GetASTUnsafe(key)
	var le *LookupError
	if !errors.As(err, &le) || le.Kind != AstNotFound {
		t.Fatalf("err = %v, want LookupError{Kind: AstNotFound}", err)
	}
}

func TestReader_GetParseUnsafe_FileNotTypedForUnparsedFile(t *testing.T) {
	s := filegraph.NewStore(0)
	caches := NewCaches(16)
	mut := NewMutator(s, caches)
	key := storekey.SourceKey("a.js")

	tr := txn.Begin()
	s.AddUnparsedFile(tr, key, filegraph.UnparsedArtifacts{Hash: 1})

	_, err := mut.GetTypedParseUnsafe(key)
	var le *LookupError
	if !errors.As(err, &le) || le.Kind != FileNotTyped {
		t.Fatalf("err = %v, want LookupError{Kind: FileNotTyped}", err)
	}
}

func TestReader_GetProviderUnsafe_HasteModuleNotFound(t *testing.T) {
	s := filegraph.NewStore(0)
	r := NewCommitted(s, NewCaches(16))

	_, err := r.GetProviderUnsafe(storekey.Haste("Nope"))
	var le *LookupError
	if !errors.As(err, &le) || le.Kind != HasteModuleNotFound {
		t.Fatalf("err = %v, want LookupError{Kind: HasteModuleNotFound}", err)
	}
}

func TestReader_GetProviderUnsafe_FileModuleNotFound(t *testing.T) {
	s := filegraph.NewStore(0)
	r := NewCommitted(s, NewCaches(16))

	_, err := r.GetProviderUnsafe(storekey.File(storekey.SourceKey("nope.js")))
	var le *LookupError
	if !errors.As(err, &le) || le.Kind != FileModuleNotFound {
		t.Fatalf("err = %v, want LookupError{Kind: FileModuleNotFound}", err)
	}
}

func TestReader_LocOfAlocResolvesThroughCache(t *testing.T) {
	s := filegraph.NewStore(0)
	caches := NewCaches(16)
	mut := NewMutator(s, caches)
	key := storekey.SourceKey("a.js")
	src := "let x = 1\nlet y = 2"

	tr := txn.Begin()
	s.AddCheckedFile(tr, key, filegraph.ParsedArtifacts{
		Hash:  1,
		Spans: []loc.Span{{Start: 10, End: 19}},
	})

	table, ok := mut.GetAlocTable(key)
	if !ok {
		t.Fatal("GetAlocTable = false, want true")
	}
	alocs := []loc.ALoc{0}
	_ = table

	l, ok := mut.LocOfAloc(key, src, alocs[0])
	if !ok || l.Line != 2 || l.Col != 1 {
		t.Fatalf("LocOfAloc = %+v, ok=%v, want line 2 col 1", l, ok)
	}
}

func TestLookupError_IsMatchesByKindOnly(t *testing.T) {
	a := &LookupError{Kind: FileNotFound, Key: "x.js"}
	b := &LookupError{Kind: FileNotFound, Key: "y.js"}
	c := &LookupError{Kind: FileNotParsed, Key: "x.js"}

	if !errors.Is(a, b) {
		t.Fatal("two LookupErrors with the same Kind but different Key should match errors.Is")
	}
	if errors.Is(a, c) {
		t.Fatal("two LookupErrors with different Kinds should not match errors.Is")
	}
}
