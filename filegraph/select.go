package filegraph

import (
	"github.com/mgmuesuu/flow/heap"
	"github.com/mgmuesuu/flow/observability"
	"github.com/mgmuesuu/flow/record"
	"github.com/mgmuesuu/flow/storekey"
	"github.com/mgmuesuu/flow/txn"
)

// liveInHaste returns the I4 liveness predicate for a provider-list node
// belonging to the HasteModule moduleRef: a node (a Parse handle) is live
// iff its owning file's current latest parse still points at moduleRef.
func (s *Store) liveInHaste(moduleRef heap.Handle) heap.IsLive {
	return func(parseHandle heap.Handle) bool {
		owner := s.Parses.Get(parseHandle).OwnerFile
		file := s.Files.Get(owner)
		latest := file.Parse.ReadLatest()
		if latest == heap.NilHandle {
			return false
		}
		return s.Parses.Get(latest).HasteModuleRef == moduleRef
	}
}

// liveInFileModule returns the I4 liveness predicate for a node belonging
// to a FileModule: live iff the owning file's latest parse is non-None.
func (s *Store) liveInFileModule() heap.IsLive {
	return func(parseHandle heap.Handle) bool {
		owner := s.Parses.Get(parseHandle).OwnerFile
		file := s.Files.Get(owner)
		return file.Parse.ReadLatest() != heap.NilHandle
	}
}

// PendingRemoval names a module found to have zero live providers during
// selection. It is not removed from its key→module table immediately;
// that only happens in CommitModules, once the surrounding transaction is
// known to commit rather than roll back.
type PendingRemoval struct {
	IsHaste   bool
	HasteName string
	FileKey   storekey.FileKey
	Ref       heap.Handle
}

// SelectProvider runs provider selection for one dirty module: it
// materializes deferred deletions via the exclusive live-provider walk,
// advances the module's provider entity to the first live provider's
// owning file (declaration order — the first file to have registered as
// a provider wins), and reports a PendingRemoval if no live provider
// remains.
func (s *Store) SelectProvider(t *txn.Txn, name storekey.ModuleName) *PendingRemoval {
	switch name.Kind() {
	case storekey.HasteName:
		ref, ok := s.lookupHasteModule(name.HasteValue())
		if !ok {
			return nil
		}
		return s.selectHasteProvider(t, ref, name.HasteValue())
	case storekey.FileName:
		ref, ok := s.lookupFileModule(name.FileKey())
		if !ok {
			return nil
		}
		return s.selectFileProvider(t, ref, name.FileKey())
	default:
		return nil
	}
}

func (s *Store) selectHasteProvider(t *txn.Txn, ref heap.Handle, name string) *PendingRemoval {
	lock := s.H.LockModule(ref)
	hm := s.HasteModules.Get(ref)
	live := hm.AllProviders.CompactLive(record.HasteLinks(s.Parses), s.liveInHaste(ref))
	lock.Unlock()

	if len(live) == 0 {
		hm.ProviderEntity.Advance(t.Generation(), heap.NilHandle)
		return &PendingRemoval{IsHaste: true, HasteName: name, Ref: ref}
	}
	owner := s.Parses.Get(live[0]).OwnerFile
	hm.ProviderEntity.Advance(t.Generation(), owner)
	return nil
}

func (s *Store) selectFileProvider(t *txn.Txn, ref heap.Handle, key storekey.FileKey) *PendingRemoval {
	lock := s.H.LockModule(ref)
	fm := s.FileModules.Get(ref)
	live := fm.AllProviders.CompactLive(record.FileLinks(s.Parses), s.liveInFileModule())
	lock.Unlock()

	if len(live) == 0 {
		fm.ProviderEntity.Advance(t.Generation(), heap.NilHandle)
		return &PendingRemoval{IsHaste: false, FileKey: key, Ref: ref}
	}
	owner := s.Parses.Get(live[0]).OwnerFile
	fm.ProviderEntity.Advance(t.Generation(), owner)
	return nil
}

// CommitModules implements §4.7: remove every pending module from its
// key→module table. This is the only point at which module records
// disappear. mutator.Reparse calls it from its own "reparse" commit hook,
// after running provider selection over the batch's dirty set.
func (s *Store) CommitModules(pending []PendingRemoval) error {
	if len(pending) == 0 {
		return nil
	}
	s.mu.Lock()
	for _, p := range pending {
		if p.IsHaste {
			delete(s.hasteModuleTable, p.HasteName)
		} else {
			delete(s.fileModuleTable, p.FileKey)
		}
	}
	s.mu.Unlock()

	for _, p := range pending {
		name := p.HasteName
		if !p.IsHaste {
			name = p.FileKey.String()
		}
		s.emit(EventModuleDropped, observability.LevelVerbose, map[string]any{"module": name, "haste": p.IsHaste})
	}
	return nil
}
