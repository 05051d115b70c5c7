// Package mutator implements the three mutator flavors that publish
// worker results into a filegraph.Store: Parse (fresh, no rollback),
// Reparse (transactional, supports rollback), and SavedStateLoader (a
// restricted startup-only path).
package mutator

import (
	"github.com/mgmuesuu/flow/filegraph"
	"github.com/mgmuesuu/flow/storekey"
	"github.com/mgmuesuu/flow/txn"
)

// Parse is the fresh-parsing mutator: it has no rollback support and
// registers no transaction hooks, matching the "populate an empty store
// from scratch" use case where there is nothing to roll back to.
type Parse struct {
	store *filegraph.Store
	txn   *txn.Txn
}

// NewParse returns a Parse mutator bound to t. t still supplies the
// generation number entities need, even though Parse never registers a
// commit/rollback hook against it.
func NewParse(store *filegraph.Store, t *txn.Txn) *Parse {
	return &Parse{store: store, txn: t}
}

// AddParsed publishes a typed parse for key. An error here (heap
// exhaustion, or a worker-supplied AST/exports value the codec cannot
// serialize) means nothing was written.
func (m *Parse) AddParsed(key storekey.FileKey, args filegraph.ParsedArtifacts) (*filegraph.DirtySet, error) {
	return m.store.AddCheckedFile(m.txn, key, args)
}

// AddUnparsed publishes an untyped parse for key.
func (m *Parse) AddUnparsed(key storekey.FileKey, args filegraph.UnparsedArtifacts) (*filegraph.DirtySet, error) {
	return m.store.AddUnparsedFile(m.txn, key, args)
}

// ClearNotFound is a no-op for the Parse mutator: a fresh parse never has
// anything to clear, so it always returns an empty dirty set.
func (m *Parse) ClearNotFound(storekey.FileKey) *filegraph.DirtySet {
	return filegraph.NewDirtySet()
}
