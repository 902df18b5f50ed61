package journal

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/louisbranch/solarfield/internal/field/event"
)

// Notifier wakes waiters when the journal advances.
type Notifier struct {
	mu     sync.Mutex
	ch     chan struct{}
	closed bool
}

// NewNotifier returns a notifier with no pending wakeups.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{})}
}

// Wait returns a channel that is closed on the next Notify or Close.
// Callers must take the channel before checking for new events so an
// append between the check and the wait is not missed.
func (n *Notifier) Wait() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ch
}

// Notify wakes every current waiter.
func (n *Notifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	close(n.ch)
	n.ch = make(chan struct{})
}

// Close wakes every waiter permanently.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	close(n.ch)
}

// Closed reports whether Close was called.
func (n *Notifier) Closed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

// FollowOptions configures Follow.
type FollowOptions struct {
	// PageSize bounds each ListEvents call; DefaultPageSize when zero.
	PageSize int
	// PollInterval re-checks the lister periodically in addition to
	// notifications, for journals that other processes may append to.
	PollInterval time.Duration
	// Retryable marks list errors that are retried after the next wakeup
	// instead of ending the sequence.
	Retryable func(error) bool
}

// Follow pages through lister after afterSeq and then waits on notifier for
// more. It backs the Events method of the journal implementations.
func Follow(ctx context.Context, lister Lister, notifier *Notifier, afterSeq uint64, options FollowOptions) iter.Seq2[event.Event, error] {
	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return func(yield func(event.Event, error) bool) {
		last := afterSeq
		for {
			ready := notifier.Wait()
			if notifier.Closed() {
				yield(event.Event{}, ErrClosed)
				return
			}
			page, err := lister.ListEvents(ctx, last, pageSize)
			if err != nil {
				if ctx.Err() != nil || options.Retryable == nil || !options.Retryable(err) {
					yield(event.Event{}, err)
					return
				}
				if err := waitForMore(ctx, ready, options.PollInterval); err != nil {
					yield(event.Event{}, err)
					return
				}
				continue
			}
			for _, evt := range page {
				if !yield(evt, nil) {
					return
				}
				last = evt.Seq
			}
			if len(page) == pageSize {
				continue
			}

			if err := waitForMore(ctx, ready, options.PollInterval); err != nil {
				yield(event.Event{}, err)
				return
			}
		}
	}
}

func waitForMore(ctx context.Context, ready <-chan struct{}, pollInterval time.Duration) error {
	var poll <-chan time.Time
	if pollInterval > 0 {
		timer := time.NewTimer(pollInterval)
		defer timer.Stop()
		poll = timer.C
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ready:
	case <-poll:
	}
	return nil
}
