package physics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const eps = 1e-9

func TestVector3_Arithmetic(t *testing.T) {
	a := Vector3{X: 1, Y: 2, Z: 3}
	b := Vector3{X: 4, Y: -5, Z: 6}

	assert.Equal(t, Vector3{X: 5, Y: -3, Z: 9}, a.Add(b))
	assert.Equal(t, Vector3{X: -3, Y: 7, Z: -3}, a.Sub(b))
	assert.Equal(t, Vector3{X: 2, Y: 4, Z: 6}, a.Scale(2))
	assert.InDelta(t, 4-10+18, a.Dot(b), eps)
	assert.InDelta(t, 14, a.LengthSquared(), eps)
}

func TestVector3_Cross(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vector3
		expected Vector3
	}{
		{"x_cross_y", Vector3{X: 1}, Vector3{Y: 1}, Vector3{Z: 1}},
		{"y_cross_z", Vector3{Y: 1}, Vector3{Z: 1}, Vector3{X: 1}},
		{"up_cross_x", Up, Vector3{X: 1}, Vector3{Z: -1}},
		{"parallel", Vector3{X: 2}, Vector3{X: 5}, Vector3{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.a.Cross(tt.b).ApproxEqual(tt.expected, eps), "got %v", tt.a.Cross(tt.b))
		})
	}
}

func TestVector3_Normalize(t *testing.T) {
	t.Run("unit_length", func(t *testing.T) {
		n := Vector3{X: 3, Y: 0, Z: 4}.Normalize()
		assert.InDelta(t, 1, n.Length(), eps)
		assert.InDelta(t, 0.6, n.X, eps)
		assert.InDelta(t, 0.8, n.Z, eps)
	})

	t.Run("zero_vector_stays_zero", func(t *testing.T) {
		n := Vector3{}.Normalize()
		assert.Equal(t, Vector3{}, n)
		assert.False(t, math.IsNaN(n.X))
	})
}

func TestVector3_Heading(t *testing.T) {
	assert.InDelta(t, 0, Vector3{Z: 1}.Heading(), eps)
	assert.InDelta(t, math.Pi/2, Vector3{X: 1}.Heading(), eps)
	assert.InDelta(t, math.Pi, Vector3{Z: -1}.Heading(), eps)
}

func TestVector3_Distance(t *testing.T) {
	assert.InDelta(t, 5, Vector3{X: 3}.Distance(Vector3{Z: 4}), eps)
	assert.InDelta(t, 0, Vector3{X: 7, Y: 1}.Distance(Vector3{X: 7, Y: 1}), eps)
}

func TestSpherical_RoundTrip(t *testing.T) {
	tests := []Spherical{
		{Radius: 100, Phi: math.Pi / 4, Theta: 0},
		{Radius: 20, Phi: 0.1, Theta: 1.3},
		{Radius: 300, Phi: math.Pi - 0.1, Theta: -2.9},
		{Radius: 57.5, Phi: 1.2, Theta: math.Pi / 2},
	}

	for _, s := range tests {
		back := SphericalFromCartesian(s.Cartesian())
		assert.InDelta(t, s.Radius, back.Radius, 1e-9)
		assert.InDelta(t, s.Phi, back.Phi, 1e-9)
		assert.InDelta(t, s.Theta, back.Theta, 1e-9)
		assert.True(t, back.Cartesian().ApproxEqual(s.Cartesian(), 1e-9))
	}
}

func TestSpherical_DefaultOrbitOffset(t *testing.T) {
	offset := Spherical{Radius: 100, Phi: math.Pi / 4, Theta: 0}.Cartesian()
	assert.InDelta(t, 0, offset.X, eps)
	assert.InDelta(t, 100*math.Sqrt2/2, offset.Y, 1e-9)
	assert.InDelta(t, 100*math.Sqrt2/2, offset.Z, 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, Clamp(-3, 1, 2))
	assert.Equal(t, 2.0, Clamp(9, 1, 2))
	assert.Equal(t, 1.5, Clamp(1.5, 1, 2))
}
