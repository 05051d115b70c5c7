package worker

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mgmuesuu/flow/ctxguard"
	"github.com/mgmuesuu/flow/mutator"
	"github.com/mgmuesuu/flow/storekey"
)

// Pipeline runs w over every key in files concurrently (bounded by
// limit, or unbounded if limit <= 0), then, once every worker has
// finished, publishes the results into m one by one in the order of
// files. Each file key is parsed by at most one goroutine,
// satisfying the "each file key written by at most one worker per
// transaction" ordering guarantee by construction — the partitioning is
// the one-goroutine-per-key fan-out itself, not an extra lock.
//
// Every worker's parse runs inside a no-cancellation region: once a
// worker has started touching the heap, ctx being cancelled defers the
// cancellation until that worker's Parse call returns, matching the
// "every operation that touches the heap runs to completion" guarantee.
// If any worker returns an error, Pipeline stops launching new ones,
// waits for in-flight workers to finish, and returns the first error —
// callers are expected to roll back the surrounding transaction.
func Pipeline(ctx context.Context, w Worker, m *mutator.Reparse, files []storekey.FileKey, limit int) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	results := make([]Result, len(files))
	for i, key := range files {
		i, key := i, key
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return ctxguard.NoCancel(gctx, func(inner context.Context) error {
				res, err := w.Parse(inner, key)
				if err != nil {
					return err
				}
				res.Key = key
				results[i] = res
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, res := range results {
		var err error
		switch res.Kind {
		case Parsed:
			_, err = m.AddParsed(res.Key, res.Parsed)
		case Unparsed:
			_, err = m.AddUnparsed(res.Key, res.Unparsed)
		case NotFound:
			m.RecordNotFound(res.Key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// PipelineWithHashCheck is Pipeline's variant for the common reparse
// shape where the caller already knows each file's previously committed
// hash: before launching a worker it compares against knownHashes and
// calls RecordUnchanged directly, skipping the worker entirely — the
// batch never even asks the out-of-scope parser to re-read a file whose
// content hash the caller already knows hasn't moved.
func PipelineWithHashCheck(ctx context.Context, w Worker, m *mutator.Reparse, files []storekey.FileKey, limit int, knownHashes func(storekey.FileKey) (uint64, bool), currentHash func(storekey.FileKey) (uint64, error)) error {
	var toParse []storekey.FileKey
	var mu sync.Mutex
	var unchanged []storekey.FileKey

	g, _ := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, key := range files {
		key := key
		g.Go(func() error {
			h, err := currentHash(key)
			if err != nil {
				return err
			}
			if old, ok := knownHashes(key); ok && old == h {
				mu.Lock()
				unchanged = append(unchanged, key)
				mu.Unlock()
				return nil
			}
			mu.Lock()
			toParse = append(toParse, key)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sort.Slice(unchanged, func(i, j int) bool { return unchanged[i].String() < unchanged[j].String() })
	for _, key := range unchanged {
		m.RecordUnchanged(key)
	}
	return Pipeline(ctx, w, m, toParse, limit)
}
