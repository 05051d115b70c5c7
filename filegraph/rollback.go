package filegraph

import (
	"github.com/mgmuesuu/flow/heap"
	"github.com/mgmuesuu/flow/record"
	"github.com/mgmuesuu/flow/storekey"
	"github.com/mgmuesuu/flow/txn"
)

// RollbackReparsedFile applies §4.6 to one file marked changed by a
// reparse transaction being rolled back. If the file's parse-entity was
// never touched in t (latest == committed already), this is a no-op.
//
// Ordering is load-bearing and must not be reordered: step 3 (rolling
// back the file's own parse-entity) must sit strictly between step 2
// (removing the file from its new module lists) and step 4 (re-adding it
// to its old module lists) — while latest still holds the new value, the
// file's entry in the old lists would read as logically deleted; once
// rollback makes committed==latest again, re-adding succeeds.
func (s *Store) RollbackReparsedFile(t *txn.Txn, key storekey.FileKey) {
	fileHandle, ok := s.lookupFile(key)
	if !ok {
		return
	}
	file := s.Files.Get(fileHandle)

	op := file.Parse.ReadCommitted(txn.LastCommitted())
	np := file.Parse.ReadLatest()
	if op == np {
		return
	}

	var oldFileModule, newFileModule heap.Handle
	switch {
	case op != heap.NilHandle && np == heap.NilHandle:
		oldFileModule = file.FileModuleRef
	case op == heap.NilHandle && np != heap.NilHandle:
		newFileModule = file.FileModuleRef
	}

	var oldHaste, newHaste heap.Handle
	if op != heap.NilHandle {
		oldHaste = s.Parses.Get(op).HasteModuleRef
	}
	if np != heap.NilHandle {
		newHaste = s.Parses.Get(np).HasteModuleRef
	}
	if oldHaste == newHaste {
		oldHaste = heap.NilHandle
		newHaste = heap.NilHandle
	}

	// Step 1: rollback provider entity + materialize deferred deletions
	// for the modules this file used to belong to.
	if oldFileModule != heap.NilHandle {
		s.rollbackModuleEntityAndCompact(t, oldFileModule, false)
	}
	if oldHaste != heap.NilHandle {
		s.rollbackModuleEntityAndCompact(t, oldHaste, true)
	}

	// Step 2: rollback provider entity + physically remove this file from
	// the modules it newly belonged to.
	if newFileModule != heap.NilHandle {
		s.rollbackModuleEntityAndRemove(t, newFileModule, false, np)
	}
	if newHaste != heap.NilHandle {
		s.rollbackModuleEntityAndRemove(t, newHaste, true, np)
	}

	// Step 3: rollback the file's own parse-entity.
	file.Parse.Rollback(t.Generation())

	// Step 4: re-add the file to its old module lists, now that
	// committed == latest again.
	if oldFileModule != heap.NilHandle {
		s.addFileProvider(oldFileModule, op)
	}
	if oldHaste != heap.NilHandle {
		s.addHasteProvider(oldHaste, op)
	}
}

func (s *Store) rollbackModuleEntityAndCompact(t *txn.Txn, moduleRef heap.Handle, isHaste bool) {
	lock := s.H.LockModule(moduleRef)
	defer lock.Unlock()
	if isHaste {
		hm := s.HasteModules.Get(moduleRef)
		hm.ProviderEntity.Rollback(t.Generation())
		hm.AllProviders.CompactLive(record.HasteLinks(s.Parses), s.liveInHaste(moduleRef))
	} else {
		fm := s.FileModules.Get(moduleRef)
		fm.ProviderEntity.Rollback(t.Generation())
		fm.AllProviders.CompactLive(record.FileLinks(s.Parses), s.liveInFileModule())
	}
}

func (s *Store) rollbackModuleEntityAndRemove(t *txn.Txn, moduleRef heap.Handle, isHaste bool, parseHandle heap.Handle) {
	lock := s.H.LockModule(moduleRef)
	defer lock.Unlock()
	if isHaste {
		hm := s.HasteModules.Get(moduleRef)
		hm.ProviderEntity.Rollback(t.Generation())
		hm.AllProviders.Unlink(parseHandle, record.HasteLinks(s.Parses))
	} else {
		fm := s.FileModules.Get(moduleRef)
		fm.ProviderEntity.Rollback(t.Generation())
		fm.AllProviders.Unlink(parseHandle, record.FileLinks(s.Parses))
	}
}
