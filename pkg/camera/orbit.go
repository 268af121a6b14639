// Package camera keeps the orbit camera around the followed ship and maps
// between screen and world space for picking.
package camera

import (
	"math"

	"github.com/opd-ai/go-skirmish/pkg/config"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

// Pose is the camera's placement for one frame.
type Pose struct {
	Position physics.Vector3
	LookAt   physics.Vector3
}

// Forward returns the unit view direction.
func (p Pose) Forward() physics.Vector3 {
	return p.LookAt.Sub(p.Position).Normalize()
}

// Orbit holds a spherical offset around the followed entity. Drag and zoom
// mutate the offset; Update derives the pose from it.
type Orbit struct {
	cfg    config.CameraConfig
	offset physics.Spherical
	pose   Pose
	valid  bool
}

// NewOrbit creates an orbit camera at the configured starting offset.
func NewOrbit(cfg config.CameraConfig) *Orbit {
	o := &Orbit{cfg: cfg}
	o.offset = physics.Spherical{
		Radius: physics.Clamp(cfg.Radius, cfg.MinRadius, cfg.MaxRadius),
		Phi:    physics.Clamp(cfg.Phi, o.minPhi(), o.maxPhi()),
		Theta:  cfg.Theta,
	}
	return o
}

func (o *Orbit) minPhi() float64 { return o.cfg.PhiMargin }
func (o *Orbit) maxPhi() float64 { return math.Pi - o.cfg.PhiMargin }

// Drag rotates the camera by a pointer delta in pixels.
func (o *Orbit) Drag(dx, dy float64) {
	o.offset.Theta -= dx * o.cfg.DragSensitivity
	o.offset.Phi = physics.Clamp(o.offset.Phi-dy*o.cfg.DragSensitivity, o.minPhi(), o.maxPhi())
	// wrap theta into [-π, π]
	o.offset.Theta = math.Remainder(o.offset.Theta, 2*math.Pi)
}

// Zoom moves the camera in or out by a wheel delta.
func (o *Orbit) Zoom(delta float64) {
	o.offset.Radius = physics.Clamp(o.offset.Radius+delta*o.cfg.ZoomSensitivity, o.cfg.MinRadius, o.cfg.MaxRadius)
}

// Spherical returns the current offset.
func (o *Orbit) Spherical() physics.Spherical { return o.offset }

// Offset returns the current offset in Cartesian form.
func (o *Orbit) Offset() physics.Vector3 { return o.offset.Cartesian() }

// Update places the camera relative to target. If target is nil or its
// handle has not loaded the last valid pose is kept and ok is false.
func (o *Orbit) Update(target entity.Placeable) (pose Pose, ok bool) {
	if target == nil || target.GetHandle() == nil {
		return o.pose, false
	}
	center := target.GetPosition()
	o.pose = Pose{Position: center.Add(o.offset.Cartesian()), LookAt: center}
	o.valid = true
	return o.pose, true
}

// Pose returns the last valid pose. ok is false before the first update.
func (o *Orbit) Pose() (Pose, bool) { return o.pose, o.valid }
