package scene

import "github.com/louisbranch/solarfield/internal/field/geom"

// Handle identifies a renderer-owned object.
type Handle uint64

// Renderer is the sink the reconciler drives.
type Renderer interface {
	// CreateObject builds an object for id at pos and returns its handle.
	CreateObject(id string, pos geom.Vec3) (Handle, error)
	// DestroyObject releases every resource tied to h.
	DestroyObject(h Handle) error
}
