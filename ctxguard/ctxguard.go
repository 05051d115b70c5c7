// Package ctxguard provides the no-cancellation region every mutator entry
// point runs inside of: once a worker has started touching the heap, a
// cancellation request from the caller's context must be deferred until
// the operation returns rather than interrupting it mid-mutation.
package ctxguard

import "context"

// NoCancel runs f to completion against a context derived from ctx that
// never carries ctx's own cancellation or deadline, then returns f's
// error. If the caller's ctx is cancelled while f is running, f is
// unaffected; callers that need to notice the cancellation afterward
// should check ctx.Err() themselves once NoCancel returns.
func NoCancel(ctx context.Context, f func(context.Context) error) error {
	return f(context.WithoutCancel(ctx))
}
