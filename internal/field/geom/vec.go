// Package geom holds the small amount of 3D vector math shared by placement
// and the scene.
package geom

import "math"

// Epsilon is the tolerance used for near-zero comparisons.
const Epsilon = 1e-9

// Vec3 is a point or direction in world space.
type Vec3 struct {
	X, Y, Z float64
}

// V returns a Vec3 from its components.
func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product.
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Cross returns the right-handed cross product v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Len returns the Euclidean length.
func (v Vec3) Len() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns the unit vector in the direction of v. The zero vector
// is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l < Epsilon {
		return v
	}
	return v.Scale(1 / l)
}

// IsZero reports whether every component is within Epsilon of zero.
func (v Vec3) IsZero() bool { return v.Len() < Epsilon }

// IsFinite reports whether no component is NaN or infinite.
func (v Vec3) IsFinite() bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ApproxEqual reports whether v and o differ by at most tol per component.
func (v Vec3) ApproxEqual(o Vec3, tol float64) bool {
	return math.Abs(v.X-o.X) <= tol && math.Abs(v.Y-o.Y) <= tol && math.Abs(v.Z-o.Z) <= tol
}

// Ray is a half-line starting at Origin along the unit vector Dir.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) Vec3 { return r.Origin.Add(r.Dir.Scale(t)) }

// Plane is the set of points p with Normal·p == Offset. Normal is unit length.
type Plane struct {
	Normal Vec3
	Offset float64
}

// IntersectRay returns the point where r meets the plane. It reports false
// when the ray is parallel to the plane or points away from it.
func (p Plane) IntersectRay(r Ray) (Vec3, bool) {
	denom := p.Normal.Dot(r.Dir)
	if !finite(denom) || math.Abs(denom) < Epsilon {
		return Vec3{}, false
	}
	t := (p.Offset - p.Normal.Dot(r.Origin)) / denom
	if !finite(t) || t < 0 {
		return Vec3{}, false
	}
	point := r.At(t)
	return point, point.IsFinite()
}
