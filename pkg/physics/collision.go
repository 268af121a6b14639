package physics

import "math"

// parallelEpsilon is the smallest |dir·normal| treated as non-parallel.
const parallelEpsilon = 1e-9

// Ray is a half-line in world space. Direction is expected to be unit length
// so that ray parameters are distances.
type Ray struct {
	Origin    Vector3
	Direction Vector3
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) Vector3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// Plane is the set of points p with Normal·p = D.
type Plane struct {
	Normal Vector3
	D      float64
}

// GroundPlane is the y = 0 plane.
var GroundPlane = Plane{Normal: Up}

// IntersectRay returns the ray parameter and point where r crosses the plane.
// ok is false when the ray is parallel to the plane or the crossing lies
// behind the origin.
func (p Plane) IntersectRay(r Ray) (t float64, point Vector3, ok bool) {
	denom := p.Normal.Dot(r.Direction)
	if math.Abs(denom) < parallelEpsilon {
		return 0, Vector3{}, false
	}
	t = (p.D - p.Normal.Dot(r.Origin)) / denom
	if t < 0 {
		return 0, Vector3{}, false
	}
	return t, r.At(t), true
}

// IntersectGround intersects r with the y = 0 plane.
func IntersectGround(r Ray) (Vector3, bool) {
	_, point, ok := GroundPlane.IntersectRay(r)
	if ok {
		// pin exactly to the plane
		point.Y = 0
	}
	return point, ok
}

// Sphere represents a spherical hitbox
type Sphere struct {
	Center Vector3
	Radius float64
}

// Contains reports whether the point lies inside or on the sphere.
func (s Sphere) Contains(point Vector3) bool {
	return s.Center.Sub(point).LengthSquared() <= s.Radius*s.Radius
}

// IntersectRay returns the nearest non-negative ray parameter at which r
// enters the sphere. A ray starting inside the sphere hits at t = 0.
func (s Sphere) IntersectRay(r Ray) (float64, bool) {
	oc := r.Origin.Sub(s.Center)
	a := r.Direction.LengthSquared()
	if a == 0 {
		return 0, false
	}
	b := oc.Dot(r.Direction)
	c := oc.LengthSquared() - s.Radius*s.Radius
	disc := b*b - a*c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	near := (-b - sq) / a
	far := (-b + sq) / a
	if far < 0 {
		return 0, false
	}
	if near < 0 {
		return 0, true
	}
	return near, true
}
