package filegraph

import (
	"testing"

	"github.com/mgmuesuu/flow/storekey"
	"github.com/mgmuesuu/flow/txn"
)

func TestSelectProvider_FirstRegisteredProviderWinsInDeclarationOrder(t *testing.T) {
	s := NewStore(0)
	f1, f2 := storekey.SourceKey("f1.js"), storekey.SourceKey("f2.js")
	name := storekey.Haste("Widget")

	tr := txn.Begin()
	s.AddCheckedFile(tr, f1, ParsedArtifacts{Hash: 1, HasteName: "Widget"})
	s.AddCheckedFile(tr, f2, ParsedArtifacts{Hash: 2, HasteName: "Widget"})

	if pending := s.SelectProvider(tr, name); pending != nil {
		t.Fatalf("SelectProvider with two live providers = %+v, want nil", pending)
	}
	if err := tr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	f1Handle, _ := s.LookupFile(f1)
	ref, _ := s.LookupHasteModule("Widget")
	hm := s.HasteModules.Get(ref)
	if got := hm.ProviderEntity.ReadCommitted(txn.LastCommitted()); got != f1Handle {
		t.Fatalf("provider = %v, want f1 (%v), the first to register", got, f1Handle)
	}
}

func TestSelectProvider_FallsBackToRemainingLiveProviderAfterClear(t *testing.T) {
	s := NewStore(0)
	f1, f2 := storekey.SourceKey("f1.js"), storekey.SourceKey("f2.js")
	name := storekey.Haste("Widget")

	tr1 := txn.Begin()
	s.AddCheckedFile(tr1, f1, ParsedArtifacts{Hash: 1, HasteName: "Widget"})
	s.AddCheckedFile(tr1, f2, ParsedArtifacts{Hash: 2, HasteName: "Widget"})
	s.SelectProvider(tr1, name)
	if err := tr1.Commit(); err != nil {
		t.Fatalf("commit 1: %v", err)
	}

	tr2 := txn.Begin()
	s.ClearFile(tr2, f1)
	pending := s.SelectProvider(tr2, name)
	if pending != nil {
		t.Fatalf("SelectProvider with f2 still live = %+v, want nil", pending)
	}
	if err := tr2.Commit(); err != nil {
		t.Fatalf("commit 2: %v", err)
	}

	f2Handle, _ := s.LookupFile(f2)
	ref, _ := s.LookupHasteModule("Widget")
	hm := s.HasteModules.Get(ref)
	if got := hm.ProviderEntity.ReadCommitted(txn.LastCommitted()); got != f2Handle {
		t.Fatalf("provider after clearing f1 = %v, want f2 (%v)", got, f2Handle)
	}
}

func TestSelectProvider_NoLiveProvidersYieldsPendingRemoval(t *testing.T) {
	s := NewStore(0)
	f1 := storekey.SourceKey("f1.js")
	name := storekey.Haste("Widget")

	tr1 := txn.Begin()
	s.AddCheckedFile(tr1, f1, ParsedArtifacts{Hash: 1, HasteName: "Widget"})
	s.SelectProvider(tr1, name)
	if err := tr1.Commit(); err != nil {
		t.Fatalf("commit 1: %v", err)
	}

	tr2 := txn.Begin()
	s.ClearFile(tr2, f1)
	pending := s.SelectProvider(tr2, name)
	if pending == nil {
		t.Fatal("SelectProvider with zero live providers = nil, want a PendingRemoval")
	}
	if err := s.CommitModules([]PendingRemoval{*pending}); err != nil {
		t.Fatalf("CommitModules: %v", err)
	}
	if err := tr2.Commit(); err != nil {
		t.Fatalf("commit 2: %v", err)
	}

	if _, ok := s.LookupHasteModule("Widget"); ok {
		t.Fatal("HasteModule record still present after CommitModules removed its last provider")
	}
}

func TestSelectProvider_OfUnknownModuleIsNilNotPanic(t *testing.T) {
	s := NewStore(0)
	tr := txn.Begin()
	if got := s.SelectProvider(tr, storekey.Haste("Nope")); got != nil {
		t.Fatalf("SelectProvider of an unknown module = %+v, want nil", got)
	}
	if got := s.SelectProvider(tr, storekey.File(storekey.SourceKey("nope.js"))); got != nil {
		t.Fatalf("SelectProvider of an unknown file module = %+v, want nil", got)
	}
}

func TestCommitModules_EmptyPendingIsNoOp(t *testing.T) {
	s := NewStore(0)
	if err := s.CommitModules(nil); err != nil {
		t.Fatalf("CommitModules(nil) = %v, want nil", err)
	}
}
