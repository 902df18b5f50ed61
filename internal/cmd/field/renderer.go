package field

import (
	"fmt"
	"sync"

	"github.com/louisbranch/solarfield/internal/field/geom"
	"github.com/louisbranch/solarfield/internal/field/scene"
)

// logRenderer stands in for a graphics backend: it tracks the objects the
// scene asks for and logs every create and destroy.
type logRenderer struct {
	mu      sync.Mutex
	next    scene.Handle
	objects map[scene.Handle]string
	logf    func(string, ...any)
}

func newLogRenderer(logf func(string, ...any)) *logRenderer {
	return &logRenderer{objects: make(map[scene.Handle]string), logf: logf}
}

func (r *logRenderer) CreateObject(id string, pos geom.Vec3) (scene.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.objects[r.next] = id
	r.logf("render: create %s at (%.3f, %.3f, %.3f) handle %d", id, pos.X, pos.Y, pos.Z, r.next)
	return r.next, nil
}

func (r *logRenderer) DestroyObject(h scene.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.objects[h]
	if !ok {
		return fmt.Errorf("unknown handle %d", h)
	}
	delete(r.objects, h)
	r.logf("render: destroy %s handle %d", id, h)
	return nil
}

func (r *logRenderer) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}
