package projection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/louisbranch/solarfield/internal/field/event"
	apperrors "github.com/louisbranch/solarfield/internal/platform/errors"
	"github.com/louisbranch/solarfield/internal/platform/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrStoreRequired is returned when a nil store is passed where one is
// needed.
var ErrStoreRequired = errors.New("projection store is required")

// Snapshot is a published table together with the journal position it
// reflects.
type Snapshot struct {
	Table Table
	// Position is the Seq of the last folded event.
	Position uint64
	// Epoch increments on Reset. Positions are only comparable within an
	// epoch.
	Epoch uint64
}

// After reports whether s reflects a later store state than other.
func (s Snapshot) After(other Snapshot) bool {
	if s.Epoch != other.Epoch {
		return s.Epoch > other.Epoch
	}
	return s.Position > other.Position
}

// Store holds the current projection. Folds are serialized; reads are
// lock-free against the last published snapshot.
type Store struct {
	foldMu  sync.Mutex
	current atomic.Pointer[Snapshot]

	watchMu   sync.Mutex
	watchers  map[uint64]func(Snapshot)
	nextWatch uint64
}

// NewStore returns an empty store at position 0.
func NewStore() *Store {
	s := &Store{watchers: make(map[uint64]func(Snapshot))}
	s.current.Store(&Snapshot{})
	return s
}

// Snapshot returns the last published snapshot.
func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// Position returns the Seq of the last folded event.
func (s *Store) Position() uint64 {
	return s.current.Load().Position
}

// Get looks up a row by id.
func (s *Store) Get(id string) (Row, bool) {
	return s.current.Load().Table.Get(id)
}

// Scan returns the rows matching pred from one consistent snapshot.
func (s *Store) Scan(pred Predicate) []Row {
	return s.current.Load().Table.Scan(pred)
}

// Fold applies events in order. Each event must carry the next journal
// position. On the first failure folding stops; the events before it stay
// applied and the failing one leaves no trace. Watchers are notified once
// if anything was applied.
func (s *Store) Fold(ctx context.Context, events ...event.Event) (Snapshot, error) {
	if s == nil {
		return Snapshot{}, ErrStoreRequired
	}
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	_, span := otel.Tracer("projection").Start(ctx, "projection.Fold")
	defer span.End()
	span.SetAttributes(attribute.Int("field.events", len(events)))

	s.foldMu.Lock()
	defer s.foldMu.Unlock()

	base := *s.current.Load()
	staged := base.Table.clone()
	position := base.Position

	var foldErr error
	for _, evt := range events {
		if err := checkSequence(position, evt); err != nil {
			foldErr = err
			break
		}
		m, err := Materialize(staged, evt)
		if err != nil {
			foldErr = fmt.Errorf("fold seq %d: %w", evt.Seq, err)
			break
		}
		staged.mutate(m)
		position = evt.Seq
	}

	if position != base.Position {
		next := &Snapshot{Table: staged, Position: position, Epoch: base.Epoch}
		s.current.Store(next)
		s.notify(*next)
	}
	span.SetAttributes(attribute.Int64("field.position", int64(position)))
	if foldErr != nil {
		span.RecordError(foldErr)
		span.SetStatus(codes.Error, foldErr.Error())
	}
	return *s.current.Load(), foldErr
}

func checkSequence(position uint64, evt event.Event) error {
	if evt.Seq == 0 {
		return apperrors.New(apperrors.CodeSequenceGap, "event has no journal position")
	}
	if evt.Seq != position+1 {
		return apperrors.WithMetadata(apperrors.CodeSequenceGap,
			fmt.Sprintf("expected seq %d, got %d", position+1, evt.Seq),
			map[string]string{"position": fmt.Sprint(position), "seq": fmt.Sprint(evt.Seq)})
	}
	return nil
}

// Reset discards the table so the journal can be replayed from the start.
// The new snapshot starts a new epoch.
func (s *Store) Reset() Snapshot {
	s.foldMu.Lock()
	defer s.foldMu.Unlock()

	next := &Snapshot{Epoch: s.current.Load().Epoch + 1}
	s.current.Store(next)
	s.notify(*next)
	return *next
}

// Watch registers fn to run after every published snapshot, in publication
// order. fn runs on the folding goroutine while folds are blocked, so it
// must return quickly and must not call Fold or Reset. The returned func
// unregisters fn; after it returns fn is not called again.
func (s *Store) Watch(fn func(Snapshot)) (cancel func()) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	return func() {
		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		delete(s.watchers, id)
	}
}

func (s *Store) notify(snapshot Snapshot) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, fn := range s.watchers {
		fn(snapshot)
	}
}
