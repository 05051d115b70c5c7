package observability

import "context"

// NoOpObserver discards all events with zero overhead. Stores that are not
// given an observer fall back to this, so every emission site can call
// OnEvent unconditionally.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}
