package store

import (
	"context"
	"sync"
)

// Subscription represents an active subscription to an area's change feed.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *ChangeBatch
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of change batches.
// The channel is closed when the subscription is closed or its context is cancelled.
func (s *Subscription) Events() <-chan *ChangeBatch {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors are non-fatal: the offending message is skipped and delivery continues.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// pump forwards batches from in to out, queueing without bound so a slow
// reader never blocks a writer. It closes out when ctx is done.
func pump(ctx context.Context, in <-chan *ChangeBatch, out chan<- *ChangeBatch) {
	defer close(out)

	var queue []*ChangeBatch
	for {
		var send chan<- *ChangeBatch
		var next *ChangeBatch
		if len(queue) > 0 {
			send = out
			next = queue[0]
		}

		select {
		case <-ctx.Done():
			return
		case b := <-in:
			queue = append(queue, b)
		case send <- next:
			queue[0] = nil
			queue = queue[1:]
		}
	}
}
