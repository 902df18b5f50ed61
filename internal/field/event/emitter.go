package event

import (
	"context"
	"fmt"
	"time"
)

// Appender persists events and returns them with journal fields assigned.
type Appender interface {
	Append(ctx context.Context, evt Event) (Event, error)
}

// Emitter builds panel events and appends them to the journal.
type Emitter struct {
	store Appender
	now   func() time.Time
}

// NewEmitter creates an emitter writing to store.
func NewEmitter(store Appender) *Emitter {
	return &Emitter{
		store: store,
		now:   time.Now,
	}
}

// WithClock returns a copy of the emitter that reads time from now.
func (e *Emitter) WithClock(now func() time.Time) *Emitter {
	cloned := *e
	cloned.now = now
	return &cloned
}

// Emit appends payload stamped with the emitter's clock.
func (e *Emitter) Emit(ctx context.Context, payload Payload) (Event, error) {
	if e == nil || e.store == nil {
		return Event{}, fmt.Errorf("event store is not configured")
	}
	evt, err := New(payload, e.now())
	if err != nil {
		return Event{}, err
	}
	return e.store.Append(ctx, evt)
}

// EmitPanelDeleted appends a v1.SolarPanelDeleted event. A zero DeletedAt is
// filled from the emitter's clock.
func (e *Emitter) EmitPanelDeleted(ctx context.Context, payload SolarPanelDeleted) (Event, error) {
	if payload.DeletedAt.IsZero() && e != nil && e.now != nil {
		payload.DeletedAt = e.now()
	}
	return e.Emit(ctx, payload)
}
