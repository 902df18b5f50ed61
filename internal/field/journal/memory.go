package journal

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/louisbranch/solarfield/internal/field/event"
	apperrors "github.com/louisbranch/solarfield/internal/platform/errors"
)

// Memory is an in-process journal. It is safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	events   []event.Event
	notifier *Notifier
	validate func(event.Event) error
}

// MemoryOption configures a Memory journal.
type MemoryOption func(*Memory)

// WithAppendValidator installs a check run before every append; a non-nil
// error rejects the append.
func WithAppendValidator(validate func(event.Event) error) MemoryOption {
	return func(m *Memory) {
		m.validate = validate
	}
}

// NewMemory creates an empty in-memory journal.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{notifier: NewNotifier()}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Append assigns the next sequence and chain hash to evt and stores it.
func (m *Memory) Append(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if m.notifier.Closed() {
		return event.Event{}, apperrors.Wrap(apperrors.CodeAppendRejected, "append event", ErrClosed)
	}
	if !evt.Type.IsValid() {
		return event.Event{}, apperrors.New(apperrors.CodeAppendRejected, "event type is required")
	}
	if evt.Seq != 0 {
		return event.Event{}, apperrors.New(apperrors.CodeAppendRejected, "event is already journaled")
	}
	if m.validate != nil {
		if err := m.validate(evt); err != nil {
			return event.Event{}, apperrors.Wrap(apperrors.CodeAppendRejected, "append event", err)
		}
	}

	m.mu.Lock()
	prevChain := ""
	if n := len(m.events); n > 0 {
		prevChain = m.events[n-1].ChainHash
	}
	sealed, err := event.Seal(evt, uint64(len(m.events)+1), prevChain)
	if err != nil {
		m.mu.Unlock()
		return event.Event{}, apperrors.Wrap(apperrors.CodeAppendRejected, "seal event", err)
	}
	m.events = append(m.events, sealed)
	m.mu.Unlock()

	m.notifier.Notify()
	return sealed, nil
}

// ListEvents returns up to limit events after afterSeq.
func (m *Memory) ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if afterSeq >= uint64(len(m.events)) {
		return nil, nil
	}
	end := afterSeq + uint64(limit)
	if end > uint64(len(m.events)) {
		end = uint64(len(m.events))
	}
	page := make([]event.Event, end-afterSeq)
	copy(page, m.events[afterSeq:end])
	return page, nil
}

// Events follows the journal after afterSeq.
func (m *Memory) Events(ctx context.Context, afterSeq uint64) iter.Seq2[event.Event, error] {
	return Follow(ctx, m, m.notifier, afterSeq, FollowOptions{})
}

// Len returns the number of journaled events.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Close stops every follower. Appends after Close are rejected.
func (m *Memory) Close() error {
	m.notifier.Close()
	return nil
}
