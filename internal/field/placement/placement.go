// Package placement turns a click on the viewport into a point on the
// ground plane and packages it as a panel creation event.
package placement

import (
	"fmt"
	"math"
	"time"

	"github.com/louisbranch/solarfield/internal/field/event"
	"github.com/louisbranch/solarfield/internal/field/geom"
	apperrors "github.com/louisbranch/solarfield/internal/platform/errors"
	"github.com/louisbranch/solarfield/internal/platform/id"
)

// DefaultGroundHeight is the height of the ground plane along world up.
const DefaultGroundHeight = -0.5

// Pixel is a pointer position in viewport pixels, origin top-left, Y down.
type Pixel struct {
	X, Y float64
}

// Viewport is the size of the drawing surface in pixels.
type Viewport struct {
	Width, Height float64
}

// Aspect returns width / height.
func (v Viewport) Aspect() float64 {
	return v.Width / v.Height
}

// NDC maps p to normalized device coordinates in [-1, 1], Y up.
func (v Viewport) NDC(p Pixel) (x, y float64) {
	x = p.X/v.Width*2 - 1
	y = -(p.Y/v.Height*2 - 1)
	return x, y
}

func (v Viewport) valid() bool {
	return v.Width > 0 && v.Height > 0 && !math.IsInf(v.Width, 0) && !math.IsInf(v.Height, 0)
}

// Camera is a perspective camera.
type Camera struct {
	Position geom.Vec3
	Target   geom.Vec3
	// Up is the world up direction. The ground plane is perpendicular to it.
	Up geom.Vec3
	// FovY is the vertical field of view in degrees.
	FovY float64
}

// DefaultCamera looks at the origin from above and behind, Y up.
func DefaultCamera() Camera {
	return Camera{
		Position: geom.V(0, 5, 10),
		Target:   geom.V(0, 0, 0),
		Up:       geom.V(0, 1, 0),
		FovY:     75,
	}
}

func (c Camera) worldUp() geom.Vec3 {
	if c.Up.IsZero() {
		return geom.V(0, 1, 0)
	}
	return c.Up.Normalize()
}

// basis returns the camera's forward, right and up unit vectors. When the
// camera looks along world up, right is taken from the world axis least
// aligned with forward.
func (c Camera) basis() (forward, right, up geom.Vec3, ok bool) {
	forward = c.Target.Sub(c.Position)
	if forward.IsZero() {
		return geom.Vec3{}, geom.Vec3{}, geom.Vec3{}, false
	}
	forward = forward.Normalize()
	right = forward.Cross(c.worldUp())
	if right.IsZero() {
		right = forward.Cross(leastAlignedAxis(forward))
	}
	right = right.Normalize()
	up = right.Cross(forward)
	return forward, right, up, true
}

func leastAlignedAxis(v geom.Vec3) geom.Vec3 {
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	switch {
	case ax <= ay && ax <= az:
		return geom.V(1, 0, 0)
	case ay <= az:
		return geom.V(0, 1, 0)
	default:
		return geom.V(0, 0, 1)
	}
}

// Ray returns the ray from the camera through the given normalized device
// coordinates.
func (c Camera) Ray(ndcX, ndcY, aspect float64) (geom.Ray, bool) {
	if c.FovY <= 0 || c.FovY >= 180 || aspect <= 0 {
		return geom.Ray{}, false
	}
	forward, right, up, ok := c.basis()
	if !ok {
		return geom.Ray{}, false
	}
	tanHalf := math.Tan(c.FovY * math.Pi / 360)
	dir := forward.
		Add(right.Scale(ndcX * tanHalf * aspect)).
		Add(up.Scale(ndcY * tanHalf))
	return geom.Ray{Origin: c.Position, Dir: dir.Normalize()}, true
}

// ComputeWorldPoint casts a ray from the camera through pointer and returns
// where it meets the ground plane at groundHeight. It reports false for
// degenerate inputs and for rays parallel to or pointing away from the
// ground.
func ComputeWorldPoint(pointer Pixel, viewport Viewport, camera Camera, groundHeight float64) (geom.Vec3, bool) {
	if !viewport.valid() {
		return geom.Vec3{}, false
	}
	ndcX, ndcY := viewport.NDC(pointer)
	if !geom.V(ndcX, ndcY, 0).IsFinite() {
		return geom.Vec3{}, false
	}
	ray, ok := camera.Ray(ndcX, ndcY, viewport.Aspect())
	if !ok {
		return geom.Vec3{}, false
	}
	ground := geom.Plane{Normal: camera.worldUp(), Offset: groundHeight}
	return ground.IntersectRay(ray)
}

// Locate is ComputeWorldPoint returning a GEOMETRY_NO_INTERSECTION error
// instead of false.
func Locate(pointer Pixel, viewport Viewport, camera Camera, groundHeight float64) (geom.Vec3, error) {
	point, ok := ComputeWorldPoint(pointer, viewport, camera, groundHeight)
	if !ok {
		return geom.Vec3{}, apperrors.WithMetadata(apperrors.CodeNoIntersection,
			"click does not hit the ground",
			map[string]string{"x": fmt.Sprint(pointer.X), "y": fmt.Sprint(pointer.Y)})
	}
	return point, nil
}

// NewCreated builds the creation event for a panel at point. An empty
// panelID is replaced with a fresh one.
func NewCreated(point geom.Vec3, panelID string, now time.Time) (event.Event, error) {
	if panelID == "" {
		generated, err := id.NewID()
		if err != nil {
			return event.Event{}, err
		}
		panelID = generated
	}
	return event.New(event.SolarPanelCreated{
		ID: panelID,
		X:  point.X,
		Y:  point.Y,
		Z:  point.Z,
	}, now)
}
