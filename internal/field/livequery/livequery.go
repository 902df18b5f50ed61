// Package livequery keeps filtered reads of the projection store fresh.
//
// A Subscription re-runs its predicate after every published snapshot and
// delivers the full result only when the set of matching ids changed.
// Intermediate snapshots may be coalesced when folds outpace the consumer;
// the latest state is always delivered.
package livequery

import (
	"errors"
	"sync"

	"github.com/louisbranch/solarfield/internal/field/filter"
	"github.com/louisbranch/solarfield/internal/field/projection"
)

// ErrStoreRequired is returned when Subscribe is called without a store.
var ErrStoreRequired = errors.New("projection store is required")

// Result is the output of one evaluation.
type Result struct {
	Rows []projection.Row
	// Position and Epoch identify the snapshot the rows were read from.
	Position uint64
	Epoch    uint64
}

// IDs returns the ids of the result rows in order.
func (r Result) IDs() []string {
	ids := make([]string, len(r.Rows))
	for i, row := range r.Rows {
		ids[i] = row.ID
	}
	return ids
}

func (r Result) snapshotMark() projection.Snapshot {
	return projection.Snapshot{Position: r.Position, Epoch: r.Epoch}
}

// Subscription is a standing query over a store.
type Subscription struct {
	pred    projection.Predicate
	initial Result
	changes chan Result

	wake      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	unwatch   func()
	closeOnce sync.Once
}

// Subscribe evaluates pred against store and keeps re-evaluating it as the
// store advances. A nil pred selects live rows. Callers must Close the
// subscription.
func Subscribe(store *projection.Store, pred projection.Predicate) (*Subscription, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if pred == nil {
		pred = projection.IsLive
	}
	s := &Subscription{
		pred:    pred,
		changes: make(chan Result),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	// Watch before reading so a fold between the two still wakes the loop.
	s.unwatch = store.Watch(func(projection.Snapshot) {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	})
	s.initial = s.evaluate(store.Snapshot())

	go s.run(store)
	return s, nil
}

// SubscribeFilter is Subscribe with an AIP-160 filter string.
func SubscribeFilter(store *projection.Store, filterStr string) (*Subscription, error) {
	pred, err := filter.Compile(filterStr)
	if err != nil {
		return nil, err
	}
	return Subscribe(store, pred)
}

// Initial returns the result computed when the subscription was created.
func (s *Subscription) Initial() Result {
	return s.initial
}

// Changes delivers each new result whose id set differs from the previous
// one. The channel is closed by Close.
func (s *Subscription) Changes() <-chan Result {
	return s.changes
}

// Close stops the subscription. Once it returns nothing more is delivered
// and the store no longer references the subscription.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.unwatch()
		close(s.stop)
		<-s.done
		close(s.changes)
	})
}

func (s *Subscription) run(store *projection.Store) {
	defer close(s.done)
	last := s.initial
	for {
		select {
		case <-s.stop:
			return
		case <-s.wake:
		}

		snapshot := store.Snapshot()
		if !snapshot.After(last.snapshotMark()) {
			continue
		}
		next := s.evaluate(snapshot)
		if sameIDs(last.Rows, next.Rows) {
			last = next
			continue
		}
		select {
		case s.changes <- next:
			last = next
		case <-s.stop:
			return
		}
	}
}

func (s *Subscription) evaluate(snapshot projection.Snapshot) Result {
	return Result{
		Rows:     snapshot.Table.Scan(s.pred),
		Position: snapshot.Position,
		Epoch:    snapshot.Epoch,
	}
}

func sameIDs(a, b []projection.Row) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]struct{}, len(a))
	for _, row := range a {
		seen[row.ID] = struct{}{}
	}
	for _, row := range b {
		if _, ok := seen[row.ID]; !ok {
			return false
		}
	}
	return true
}
