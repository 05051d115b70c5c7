// Package worker is the parsing worker pool: it fans a batch of file keys
// out across goroutines (one per key, bounded by a concurrency limit via
// golang.org/x/sync/errgroup), each producing one of the three results
// the core's mutator interface expects — Parsed, Unparsed, or NotFound —
// and feeds them into a mutator.Reparse batch. Modeled directly on the
// per-file goroutine fan-out in the pack's parallel-diagnose reference.
package worker

import (
	"context"

	"github.com/mgmuesuu/flow/filegraph"
	"github.com/mgmuesuu/flow/storekey"
)

// ResultKind discriminates the three shapes a worker may report for one
// file key.
type ResultKind int

const (
	Parsed ResultKind = iota
	Unparsed
	NotFound
)

// Result is the outcome a Worker reports for one file key: exactly one of
// Parsed (typed artifacts attached), Unparsed (hash and optional haste
// name only), or NotFound.
type Result struct {
	Key  storekey.FileKey
	Kind ResultKind

	Parsed   filegraph.ParsedArtifacts
	Unparsed filegraph.UnparsedArtifacts
}

// Worker parses one file key and reports its outcome. Implementations
// wrap the out-of-scope parser, type-signature encoder, and location-
// table packer; this interface is the seam between them and the store.
type Worker interface {
	Parse(ctx context.Context, key storekey.FileKey) (Result, error)
}

// WorkerFunc adapts a plain function to the Worker interface.
type WorkerFunc func(ctx context.Context, key storekey.FileKey) (Result, error)

// Parse implements Worker.
func (f WorkerFunc) Parse(ctx context.Context, key storekey.FileKey) (Result, error) {
	return f(ctx, key)
}
