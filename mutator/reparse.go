package mutator

import (
	"fmt"

	"github.com/mgmuesuu/flow/filegraph"
	"github.com/mgmuesuu/flow/reader"
	"github.com/mgmuesuu/flow/storekey"
	"github.com/mgmuesuu/flow/txn"
)

// Reparse is the transactional mutator: created with the set of files a
// worker batch is about to reparse, it tracks which of them actually
// changed and which were not found, registers a single "reparse"
// transaction hook, and on commit runs provider selection and the
// commit-modules step; on rollback it undoes every per-file change via
// §4.6.
type Reparse struct {
	store  *filegraph.Store
	txn    *txn.Txn
	caches *reader.Caches

	changedFiles map[storekey.FileKey]bool
	changedOrder []storekey.FileKey

	notFoundFiles []storekey.FileKey

	dirty *filegraph.DirtySet
}

// NewReparse creates a Reparse mutator for t, initially marking every key
// in files as changed, and registers its transaction hook. t must not
// already have a hook named "reparse" registered (Txn.Add enforces the
// singleton rule).
func NewReparse(store *filegraph.Store, caches *reader.Caches, t *txn.Txn, files []storekey.FileKey) (*Reparse, error) {
	m := &Reparse{
		store:        store,
		txn:          t,
		caches:       caches,
		changedFiles: make(map[storekey.FileKey]bool, len(files)),
		dirty:        filegraph.NewDirtySet(),
	}
	for _, k := range files {
		if !m.changedFiles[k] {
			m.changedFiles[k] = true
			m.changedOrder = append(m.changedOrder, k)
		}
	}
	if err := t.Add("reparse", m.commit, m.rollback); err != nil {
		return nil, fmt.Errorf("mutator: registering reparse hook: %w", err)
	}
	return m, nil
}

// AddParsed publishes a typed parse for key and folds its dirty set into
// the batch total. An error (heap exhaustion, or a codec failure
// serializing the worker's AST/exports value) leaves key still marked
// changed; rollback of an untouched file is already a no-op, so the
// caller only needs to abandon the batch and roll back its transaction.
func (m *Reparse) AddParsed(key storekey.FileKey, args filegraph.ParsedArtifacts) (*filegraph.DirtySet, error) {
	d, err := m.store.AddCheckedFile(m.txn, key, args)
	if err != nil {
		return nil, err
	}
	m.dirty.Union(d)
	return d, nil
}

// AddUnparsed publishes an untyped parse for key and folds its dirty set
// into the batch total.
func (m *Reparse) AddUnparsed(key storekey.FileKey, args filegraph.UnparsedArtifacts) (*filegraph.DirtySet, error) {
	d, err := m.store.AddUnparsedFile(m.txn, key, args)
	if err != nil {
		return nil, err
	}
	m.dirty.Union(d)
	return d, nil
}

// RecordUnchanged removes key from the changed-file set: the worker
// discovered the existing hash still matches, so there is nothing for
// commit/rollback bookkeeping to do for it.
func (m *Reparse) RecordUnchanged(key storekey.FileKey) {
	if m.changedFiles[key] {
		delete(m.changedFiles, key)
		m.removeFromOrder(key)
	}
}

// RecordNotFound marks key as not found by its worker: its parse is
// cleared, it stays in the changed-file set (so a rollback restores the
// cleared parse via §4.6), and it is queued for removal from the file
// table at commit.
func (m *Reparse) RecordNotFound(key storekey.FileKey) *filegraph.DirtySet {
	d := m.store.ClearFile(m.txn, key)
	m.dirty.Union(d)
	m.notFoundFiles = append(m.notFoundFiles, key)
	return d
}

func (m *Reparse) removeFromOrder(key storekey.FileKey) {
	for i, k := range m.changedOrder {
		if k == key {
			m.changedOrder = append(m.changedOrder[:i], m.changedOrder[i+1:]...)
			return
		}
	}
}

// DirtyModules returns the dirty set accumulated so far across every
// AddParsed/AddUnparsed/RecordNotFound call in this batch.
func (m *Reparse) DirtyModules() *filegraph.DirtySet {
	return m.dirty
}

// commit runs provider selection over the accumulated dirty set, removes
// now-empty modules from their tables (§4.7), clears the mutator-reader
// caches, invalidates the committed-reader caches for the changed-file
// set, and removes not-found files from the file table.
func (m *Reparse) commit() error {
	var pending []filegraph.PendingRemoval
	for _, name := range m.dirty.Names() {
		if p := m.store.SelectProvider(m.txn, name); p != nil {
			pending = append(pending, *p)
		}
	}
	if err := m.store.CommitModules(pending); err != nil {
		return err
	}

	if m.caches != nil {
		m.caches.ClearAll()
		m.caches.InvalidateFiles(m.changedOrder)
	}

	m.store.RemoveNotFoundFiles(m.notFoundFiles)
	return nil
}

// rollback clears caches and applies §4.6 to every file still marked
// changed, in the order they were recorded.
func (m *Reparse) rollback() error {
	if m.caches != nil {
		m.caches.ClearAll()
	}
	for _, key := range m.changedOrder {
		m.store.RollbackReparsedFile(m.txn, key)
	}
	return nil
}
