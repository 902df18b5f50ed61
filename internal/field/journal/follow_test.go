package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/solarfield/internal/field/event"
)

type fakeLister struct {
	mu     sync.Mutex
	events []event.Event
	calls  int
	err    error
}

func (f *fakeLister) ListEvents(_ context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var page []event.Event
	for _, evt := range f.events {
		if evt.Seq > afterSeq && len(page) < limit {
			page = append(page, evt)
		}
	}
	return page, nil
}

func (f *fakeLister) add(seq uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event.Event{Seq: seq, Type: event.TypeSolarPanelCreated})
}

func TestFollowPagesThroughBacklog(t *testing.T) {
	lister := &fakeLister{}
	for seq := uint64(1); seq <= 5; seq++ {
		lister.add(seq)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []uint64
	for evt, err := range Follow(ctx, lister, NewNotifier(), 1, FollowOptions{PageSize: 2}) {
		if err != nil {
			t.Fatalf("follow: %v", err)
		}
		got = append(got, evt.Seq)
		if len(got) == 4 {
			break
		}
	}
	want := []uint64{2, 3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got = %v, want %v", got, want)
		}
	}
}

func TestFollowPollsWithoutNotification(t *testing.T) {
	lister := &fakeLister{}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		time.Sleep(20 * time.Millisecond)
		lister.add(1)
	}()

	for evt, err := range Follow(ctx, lister, NewNotifier(), 0, FollowOptions{PollInterval: 5 * time.Millisecond}) {
		if err != nil {
			t.Fatalf("follow: %v", err)
		}
		if evt.Seq != 1 {
			t.Fatalf("seq = %d, want 1", evt.Seq)
		}
		break
	}
}

func TestFollowYieldsListError(t *testing.T) {
	boom := errors.New("disk gone")
	lister := &fakeLister{err: boom}

	var gotErr error
	for _, err := range Follow(context.Background(), lister, NewNotifier(), 0, FollowOptions{}) {
		gotErr = err
	}
	if !errors.Is(gotErr, boom) {
		t.Fatalf("err = %v, want %v", gotErr, boom)
	}
}

func TestNotifierWakesWaiters(t *testing.T) {
	n := NewNotifier()
	ch := n.Wait()
	n.Notify()
	select {
	case <-ch:
	default:
		t.Fatal("expected waiter to be released")
	}
	next := n.Wait()
	if next == ch {
		t.Fatal("expected a fresh wait channel after notify")
	}
	n.Close()
	n.Close()
	n.Notify()
	if !n.Closed() {
		t.Fatal("expected notifier to be closed")
	}
	select {
	case <-next:
	default:
		t.Fatal("expected close to release waiter")
	}
}

type flakyLister struct {
	fakeLister
	failures int
}

var errBusy = errors.New("busy")

func (f *flakyLister) ListEvents(ctx context.Context, afterSeq uint64, limit int) ([]event.Event, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return nil, errBusy
	}
	f.mu.Unlock()
	return f.fakeLister.ListEvents(ctx, afterSeq, limit)
}

func TestFollowRetriesRetryableErrors(t *testing.T) {
	lister := &flakyLister{failures: 2}
	lister.add(1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	options := FollowOptions{
		PollInterval: 5 * time.Millisecond,
		Retryable:    func(err error) bool { return errors.Is(err, errBusy) },
	}
	for evt, err := range Follow(ctx, lister, NewNotifier(), 0, options) {
		if err != nil {
			t.Fatalf("follow: %v", err)
		}
		if evt.Seq != 1 {
			t.Fatalf("seq = %d, want 1", evt.Seq)
		}
		break
	}
	if lister.failures != 0 {
		t.Fatalf("failures left = %d, want 0", lister.failures)
	}
}

func TestFollowStopsOnNonRetryableError(t *testing.T) {
	boom := errors.New("disk gone")
	lister := &fakeLister{err: boom}
	options := FollowOptions{Retryable: func(err error) bool { return errors.Is(err, errBusy) }}

	var gotErr error
	for _, err := range Follow(context.Background(), lister, NewNotifier(), 0, options) {
		gotErr = err
	}
	if !errors.Is(gotErr, boom) {
		t.Fatalf("err = %v, want %v", gotErr, boom)
	}
}
