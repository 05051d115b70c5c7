package mutator

import (
	"fmt"

	"github.com/mgmuesuu/flow/filegraph"
	"github.com/mgmuesuu/flow/storekey"
	"github.com/mgmuesuu/flow/txn"
)

// SavedStateLoader is the restricted create path used exactly once during
// startup to populate a store from a saved-state snapshot: it directly
// allocates typed-parse records and exposes no rollback. Saved-state
// decoding itself is an external collaborator; this type only owns
// publishing already-decoded artifacts into the store.
type SavedStateLoader struct {
	store *filegraph.Store
	txn   *txn.Txn
}

// NewSavedStateLoader opens the one-shot loading transaction.
func NewSavedStateLoader(store *filegraph.Store) *SavedStateLoader {
	return &SavedStateLoader{store: store, txn: txn.Begin()}
}

// LoadTypedParse publishes one file's saved-state parse. An error here
// (heap exhaustion, or a corrupt snapshot value the codec cannot
// serialize) is expected to abort startup; the caller should not call
// Finish after one.
func (l *SavedStateLoader) LoadTypedParse(key storekey.FileKey, args filegraph.ParsedArtifacts) error {
	if _, err := l.store.AddCheckedFile(l.txn, key, args); err != nil {
		return fmt.Errorf("mutator: loading saved state for %s: %w", key, err)
	}
	return nil
}

// Finish commits the load. There is no corresponding Abort: a failure
// partway through saved-state loading is expected to be fatal to process
// startup, not something the store recovers from.
func (l *SavedStateLoader) Finish() error {
	return l.txn.Commit()
}
