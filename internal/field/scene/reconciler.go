package scene

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/solarfield/internal/field/geom"
	"github.com/louisbranch/solarfield/internal/field/projection"
	"github.com/louisbranch/solarfield/internal/platform/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ErrRendererRequired is returned when a reconciler is built without a
// renderer.
var ErrRendererRequired = errors.New("renderer is required")

// Object is a panel currently present in the renderer.
type Object struct {
	ID       string
	Handle   Handle
	Position geom.Vec3
}

// Reconciler applies query results to a renderer. It is not safe for
// concurrent use; the host calls it from one loop.
type Reconciler struct {
	renderer Renderer
	objects  map[string]Object
	closed   bool
}

// NewReconciler creates a reconciler with an empty scene.
func NewReconciler(renderer Renderer) (*Reconciler, error) {
	if renderer == nil {
		return nil, ErrRendererRequired
	}
	return &Reconciler{
		renderer: renderer,
		objects:  make(map[string]Object),
	}, nil
}

// IDs returns the set of ids currently rendered.
func (r *Reconciler) IDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(r.objects))
	for id := range r.objects {
		ids[id] = struct{}{}
	}
	return ids
}

// Object returns the rendered object for id.
func (r *Reconciler) Object(id string) (Object, bool) {
	obj, ok := r.objects[id]
	return obj, ok
}

// Len returns the number of rendered objects.
func (r *Reconciler) Len() int {
	return len(r.objects)
}

// Reconcile brings the renderer in line with rows and returns the plan it
// applied. Removals run first. A failed destroy still forgets the object; a
// failed create leaves the id out so the next call retries it. All
// failures are joined into the returned error.
func (r *Reconciler) Reconcile(ctx context.Context, rows []projection.Row) (Plan, error) {
	if r.closed {
		return Plan{}, fmt.Errorf("reconciler is closed")
	}
	_, span := otel.Tracer("scene").Start(ctx, "scene.Reconcile")
	defer span.End()

	plan := Diff(r.IDs(), rows)
	span.SetAttributes(
		attribute.Int("scene.add", len(plan.ToAdd)),
		attribute.Int("scene.remove", len(plan.ToRemove)),
	)

	var errs []error
	for _, id := range plan.ToRemove {
		if err := r.remove(id); err != nil {
			errs = append(errs, err)
		}
	}
	for _, row := range plan.ToAdd {
		handle, err := r.renderer.CreateObject(row.ID, row.Position())
		if err != nil {
			errs = append(errs, fmt.Errorf("create %s: %w", row.ID, err))
			continue
		}
		r.objects[row.ID] = Object{ID: row.ID, Handle: handle, Position: row.Position()}
	}
	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
	}
	return plan, err
}

func (r *Reconciler) remove(id string) error {
	obj, ok := r.objects[id]
	if !ok {
		return nil
	}
	delete(r.objects, id)
	if err := r.renderer.DestroyObject(obj.Handle); err != nil {
		return fmt.Errorf("destroy %s: %w", id, err)
	}
	return nil
}

// Close destroys every rendered object. Later Reconcile calls fail.
func (r *Reconciler) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	for id := range r.IDs() {
		if err := r.remove(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
