package projection

import (
	"time"

	"github.com/louisbranch/solarfield/internal/field/geom"
)

// Row is one panel in the projection.
type Row struct {
	ID string
	X  float64
	Y  float64
	Z  float64
	// DeletedAt is nil while the panel is live. Once set it never changes.
	DeletedAt *time.Time
	// CreatedAt is the timestamp of the creating event.
	CreatedAt time.Time
	// CreatedSeq is the journal position of the creating event and orders
	// scans.
	CreatedSeq uint64
}

// Live reports whether the panel has not been deleted.
func (r Row) Live() bool {
	return r.DeletedAt == nil
}

// Position returns the panel's world-space position.
func (r Row) Position() geom.Vec3 {
	return geom.V(r.X, r.Y, r.Z)
}

func (r Row) clone() Row {
	if r.DeletedAt != nil {
		deletedAt := *r.DeletedAt
		r.DeletedAt = &deletedAt
	}
	return r
}

// Predicate selects rows for a scan.
type Predicate func(Row) bool

// IsLive selects rows that have not been deleted.
func IsLive(r Row) bool {
	return r.Live()
}

// All selects every row.
func All(Row) bool {
	return true
}
