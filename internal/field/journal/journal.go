// Package journal defines the event log the projection engine consumes and
// ships an in-memory implementation. The durable SQLite journal lives in the
// sqlite subpackage.
package journal

import (
	"context"
	"errors"
	"iter"

	"github.com/louisbranch/solarfield/internal/field/event"
)

// DefaultPageSize bounds the number of events read per page during replay.
const DefaultPageSize = 200

// ErrClosed indicates the journal was closed.
var ErrClosed = errors.New("journal is closed")

// Lister pages through the journal in sequence order.
type Lister interface {
	// ListEvents returns up to limit events with Seq > afterSeq, ascending.
	ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error)
}

// Source is the read side of the log.
type Source interface {
	Lister
	// Events returns a lazy, unbounded sequence of events with Seq > afterSeq.
	// It blocks waiting for new appends and ends when ctx is done (yielding
	// ctx.Err()) or the journal closes (yielding ErrClosed). A fresh call
	// with afterSeq 0 restarts from the beginning.
	Events(ctx context.Context, afterSeq uint64) iter.Seq2[event.Event, error]
}

// Log is an append-only event log with a single logical writer.
type Log interface {
	event.Appender
	Source
}
