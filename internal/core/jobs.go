package core

import "context"

// JobDispatcher accepts canonical events and queues them for asynchronous
// processing. Dispatch returns ErrQueueFull when the bounded queue cannot
// accept more work, giving the webhook layer backpressure instead of an
// unbounded fire-and-forget.
type JobDispatcher interface {
	Dispatch(ctx context.Context, event *CanonicalEvent) error
}

// Job is one executable unit of work triggered by a canonical event.
type Job interface {
	Run(ctx context.Context, event *CanonicalEvent) error
}
