// Package app wires the field together: journal, projection store, live
// query and scene reconciler, plus the user actions that append events.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/solarfield/internal/field/event"
	"github.com/louisbranch/solarfield/internal/field/filter"
	"github.com/louisbranch/solarfield/internal/field/journal"
	"github.com/louisbranch/solarfield/internal/field/livequery"
	"github.com/louisbranch/solarfield/internal/field/placement"
	"github.com/louisbranch/solarfield/internal/field/projection"
	"github.com/louisbranch/solarfield/internal/field/scene"
	apperrors "github.com/louisbranch/solarfield/internal/platform/errors"
	"github.com/louisbranch/solarfield/internal/platform/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// ErrJournalRequired is returned when New is called without a journal.
	ErrJournalRequired = errors.New("journal is required")
	// ErrNotStarted is returned by operations that need Start first.
	ErrNotStarted = errors.New("field is not started")
)

// View is the camera and viewport used to turn clicks into points.
type View struct {
	Viewport     placement.Viewport
	Camera       placement.Camera
	GroundHeight float64
}

// DefaultView is an 800x600 viewport with the default camera.
func DefaultView() View {
	return View{
		Viewport:     placement.Viewport{Width: 800, Height: 600},
		Camera:       placement.DefaultCamera(),
		GroundHeight: placement.DefaultGroundHeight,
	}
}

// Option configures a Field.
type Option func(*Field)

// WithView sets the camera and viewport.
func WithView(view View) Option {
	return func(f *Field) {
		f.view = view
	}
}

// WithFilter sets the AIP-160 filter of the rendered query. Empty keeps
// filter.Live.
func WithFilter(filterStr string) Option {
	return func(f *Field) {
		f.filter = filterStr
	}
}

// WithClock sets the clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(f *Field) {
		f.now = now
	}
}

// WithLogf sets the logger for non-fatal conditions.
func WithLogf(logf func(string, ...any)) Option {
	return func(f *Field) {
		f.logf = logf
	}
}

// Field is one solar panel field.
type Field struct {
	journal    journal.Log
	store      *projection.Store
	emitter    *event.Emitter
	reconciler *scene.Reconciler
	sub        *livequery.Subscription

	view   View
	filter string
	now    func() time.Time
	logf   func(string, ...any)

	closeOnce sync.Once
}

// New builds a field over log that renders into renderer.
func New(log journal.Log, renderer scene.Renderer, opts ...Option) (*Field, error) {
	if log == nil {
		return nil, ErrJournalRequired
	}
	reconciler, err := scene.NewReconciler(renderer)
	if err != nil {
		return nil, err
	}
	f := &Field{
		journal:    log,
		store:      projection.NewStore(),
		reconciler: reconciler,
		view:       DefaultView(),
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.logf == nil {
		f.logf = logPrintf
	}
	if strings.TrimSpace(f.filter) == "" {
		f.filter = filter.Live
	}
	f.emitter = event.NewEmitter(log).WithClock(f.now)
	return f, nil
}

func logPrintf(format string, args ...any) {
	log.Printf(format, args...)
}

// Store exposes the projection store for read-only use.
func (f *Field) Store() *projection.Store {
	return f.store
}

// Start replays the journal, opens the rendered query and draws its
// initial result.
func (f *Field) Start(ctx context.Context) error {
	position, err := projection.Replay(ctx, f.store, f.journal, journal.DefaultPageSize)
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}
	f.logf("replayed journal to seq %d", position)

	sub, err := livequery.SubscribeFilter(f.store, f.filter)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	f.sub = sub
	if _, err := f.reconciler.Reconcile(ctx, sub.Initial().Rows); err != nil {
		f.logf("initial reconcile: %v", err)
	}
	return nil
}

// Run folds new journal events and reconciles the scene on every query
// change until ctx is done. It returns the first fatal projection error.
// Reconciliation happens only on this goroutine.
func (f *Field) Run(ctx context.Context) error {
	if f.sub == nil {
		return ErrNotStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	folded := make(chan error, 1)
	go func() {
		folded <- projection.Follow(ctx, f.store, f.journal)
	}()

	for {
		select {
		case <-ctx.Done():
			<-folded
			return nil
		case err := <-folded:
			return followError(err)
		case result, ok := <-f.sub.Changes():
			if !ok {
				cancel()
				<-folded
				return nil
			}
			plan, err := f.reconciler.Reconcile(ctx, result.Rows)
			if err != nil {
				f.logf("reconcile at seq %d: %v", result.Position, err)
			}
			if !plan.Empty() {
				f.logf("scene at seq %d: +%d -%d", result.Position, len(plan.ToAdd), len(plan.ToRemove))
			}
		}
	}
}

func followError(err error) error {
	switch {
	case err == nil:
		return nil
	case apperrors.IsSchema(err):
		return fmt.Errorf("journal holds an event this build cannot read: %w", err)
	case apperrors.IsFatal(err):
		return fmt.Errorf("projection halted: %w", err)
	default:
		return fmt.Errorf("follow journal: %w", err)
	}
}

// Close stops the query and releases every rendered object. Call it after
// Run has returned.
func (f *Field) Close() error {
	var err error
	f.closeOnce.Do(func() {
		if f.sub != nil {
			f.sub.Close()
		}
		err = f.reconciler.Close()
	})
	return err
}

// Place turns a click into a new panel. It reports false, with no event
// appended, when the click misses the ground.
func (f *Field) Place(ctx context.Context, pointer placement.Pixel) (event.Event, bool, error) {
	ctx, span := otel.Tracer("app").Start(ctx, "field.Place")
	defer span.End()

	point, err := placement.Locate(pointer, f.view.Viewport, f.view.Camera, f.view.GroundHeight)
	if apperrors.HasCode(err, apperrors.CodeNoIntersection) {
		span.SetAttributes(attribute.Bool("field.hit", false))
		return event.Event{}, false, nil
	}
	if err != nil {
		return event.Event{}, false, err
	}
	evt, err := placement.NewCreated(point, "", f.now())
	if err != nil {
		return event.Event{}, false, err
	}
	stored, err := f.journal.Append(ctx, evt)
	if err != nil {
		span.RecordError(err)
		return event.Event{}, false, notSaved(err)
	}
	span.SetAttributes(attribute.String("field.panel_id", stored.EntityID))
	return stored, true, nil
}

// Delete removes a live panel.
func (f *Field) Delete(ctx context.Context, panelID string) (event.Event, error) {
	row, ok := f.store.Get(panelID)
	if !ok || !row.Live() {
		return event.Event{}, apperrors.WithMetadata(apperrors.CodeNotFound,
			fmt.Sprintf("no live panel %s", panelID),
			map[string]string{"panel_id": panelID})
	}
	stored, err := f.emitter.EmitPanelDeleted(ctx, event.SolarPanelDeleted{ID: panelID})
	if err != nil {
		return event.Event{}, notSaved(err)
	}
	return stored, nil
}

// ClearAll deletes every live panel, stamping them all with the same
// deletion time. It stops at the first failed append and returns the
// events appended so far.
func (f *Field) ClearAll(ctx context.Context) ([]event.Event, error) {
	deletedAt := f.now()
	var appended []event.Event
	for _, row := range f.store.Scan(projection.IsLive) {
		stored, err := f.emitter.EmitPanelDeleted(ctx, event.SolarPanelDeleted{ID: row.ID, DeletedAt: deletedAt})
		if err != nil {
			return appended, notSaved(err)
		}
		appended = append(appended, stored)
	}
	return appended, nil
}

// List returns the live panels in placement order.
func (f *Field) List() []projection.Row {
	return f.store.Scan(projection.IsLive)
}

// Sync waits until the store has folded seq.
func (f *Field) Sync(ctx context.Context, seq uint64) error {
	reached := make(chan struct{})
	var once sync.Once
	cancel := f.store.Watch(func(s projection.Snapshot) {
		if s.Position >= seq {
			once.Do(func() { close(reached) })
		}
	})
	defer cancel()
	if f.store.Position() >= seq {
		return nil
	}
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
