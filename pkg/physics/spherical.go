package physics

import "math"

// Spherical is a spherical coordinate triple. Phi is the polar angle measured
// from the world-up axis, Theta the azimuth measured from +Z towards +X.
type Spherical struct {
	Radius float64
	Phi    float64
	Theta  float64
}

// Cartesian converts the spherical coordinate to an offset vector:
// (r sinφ sinθ, r cosφ, r sinφ cosθ).
func (s Spherical) Cartesian() Vector3 {
	sinPhi := math.Sin(s.Phi)
	return Vector3{
		X: s.Radius * sinPhi * math.Sin(s.Theta),
		Y: s.Radius * math.Cos(s.Phi),
		Z: s.Radius * sinPhi * math.Cos(s.Theta),
	}
}

// SphericalFromCartesian is the inverse of Spherical.Cartesian. Theta is
// returned in (-π, π]. The zero vector maps to the zero triple.
func SphericalFromCartesian(v Vector3) Spherical {
	radius := v.Length()
	if radius == 0 {
		return Spherical{}
	}
	return Spherical{
		Radius: radius,
		Phi:    math.Acos(clamp(v.Y/radius, -1, 1)),
		Theta:  math.Atan2(v.X, v.Z),
	}
}

// Clamp limits value to [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	return clamp(value, lo, hi)
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
