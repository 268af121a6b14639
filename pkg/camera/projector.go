package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-skirmish/pkg/physics"
)

func toVec3(v physics.Vector3) mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }

func fromVec3(v mgl64.Vec3) physics.Vector3 { return physics.Vector3{X: v[0], Y: v[1], Z: v[2]} }

// Perspective projects through a pinhole camera placed at an orbit pose.
// Screen coordinates are pixels with the origin top-left.
type Perspective struct {
	FOV    float64
	Near   float64
	Far    float64
	width  int
	height int
	view   mgl64.Mat4
	proj   mgl64.Mat4
}

// NewPerspective creates a projector with a vertical field of view in degrees.
func NewPerspective(fov, near, far float64, width, height int) *Perspective {
	p := &Perspective{FOV: fov, Near: near, Far: far, view: mgl64.Ident4()}
	p.SetViewport(width, height)
	return p
}

// SetViewport resizes the projection.
func (p *Perspective) SetViewport(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	p.width, p.height = width, height
	p.proj = mgl64.Perspective(mgl64.DegToRad(p.FOV), float64(width)/float64(height), p.Near, p.Far)
}

// Viewport returns the viewport size in pixels.
func (p *Perspective) Viewport() (int, int) { return p.width, p.height }

// SetPose points the camera.
func (p *Perspective) SetPose(pose Pose) {
	p.view = mgl64.LookAtV(toVec3(pose.Position), toVec3(pose.LookAt), mgl64.Vec3{0, 1, 0})
}

// Aim follows an orbit pose. The offset is implied by the pose.
func (p *Perspective) Aim(pose Pose, _ physics.Spherical) { p.SetPose(pose) }

// ScreenRay returns the ray from the near plane through pixel (x, y).
func (p *Perspective) ScreenRay(x, y float64) (physics.Ray, bool) {
	if x < 0 || y < 0 || x > float64(p.width) || y > float64(p.height) {
		return physics.Ray{}, false
	}
	winY := float64(p.height) - y
	near, err := mgl64.UnProject(mgl64.Vec3{x, winY, 0}, p.view, p.proj, 0, 0, p.width, p.height)
	if err != nil {
		return physics.Ray{}, false
	}
	far, err := mgl64.UnProject(mgl64.Vec3{x, winY, 1}, p.view, p.proj, 0, 0, p.width, p.height)
	if err != nil {
		return physics.Ray{}, false
	}
	dir := fromVec3(far.Sub(near)).Normalize()
	if dir == (physics.Vector3{}) {
		return physics.Ray{}, false
	}
	return physics.Ray{Origin: fromVec3(near), Direction: dir}, true
}

// WorldToScreen projects a world point to pixels.
func (p *Perspective) WorldToScreen(point physics.Vector3) (float64, float64, bool) {
	clip := p.proj.Mul4(p.view).Mul4x1(toVec3(point).Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, false
	}
	win := mgl64.Project(toVec3(point), p.view, p.proj, 0, 0, p.width, p.height)
	return win.X(), float64(p.height) - win.Y(), true
}

// TopDown is an orthographic projector looking straight down at the orbit
// target, rotated so the camera's forward direction points up the screen.
// It suits character-cell displays where CellAspect is the height of a cell
// divided by its width.
type TopDown struct {
	FOV        float64
	CellAspect float64
	width      int
	height     int
	center     physics.Vector3
	forward    physics.Vector3
	right      physics.Vector3
	scaleY     float64
}

// NewTopDown creates a top-down projector for a width x height grid.
func NewTopDown(fov float64, cellAspect float64, width, height int) *TopDown {
	t := &TopDown{FOV: fov, CellAspect: cellAspect}
	t.SetViewport(width, height)
	t.SetOrbit(physics.Vector3{}, physics.Spherical{Radius: 100, Phi: math.Pi / 4})
	return t
}

// SetViewport resizes the grid.
func (t *TopDown) SetViewport(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	t.width, t.height = width, height
}

// Viewport returns the grid size.
func (t *TopDown) Viewport() (int, int) { return t.width, t.height }

// SetOrbit centers the view on center. The orbit radius sets the zoom and
// its azimuth the rotation.
func (t *TopDown) SetOrbit(center physics.Vector3, offset physics.Spherical) {
	t.center = center.Ground()
	t.forward = physics.Vector3{X: -math.Sin(offset.Theta), Z: -math.Cos(offset.Theta)}
	t.right = physics.Vector3{X: math.Cos(offset.Theta), Z: -math.Sin(offset.Theta)}
	halfExtent := offset.Radius * math.Tan(mgl64.DegToRad(t.FOV)/2)
	if halfExtent <= 0 {
		halfExtent = 1
	}
	t.scaleY = float64(t.height) / (2 * halfExtent)
}

// Aim centers the view on the pose's look-at point.
func (t *TopDown) Aim(pose Pose, offset physics.Spherical) { t.SetOrbit(pose.LookAt, offset) }

func (t *TopDown) scaleX() float64 {
	aspect := t.CellAspect
	if aspect <= 0 {
		aspect = 1
	}
	return t.scaleY * aspect
}

// WorldToScreen maps a world point to grid coordinates. Height is ignored.
func (t *TopDown) WorldToScreen(point physics.Vector3) (float64, float64, bool) {
	d := point.Ground().Sub(t.center)
	x := d.Dot(t.right)*t.scaleX() + float64(t.width)/2
	y := -d.Dot(t.forward)*t.scaleY + float64(t.height)/2
	return x, y, true
}

// ScreenToGround maps grid coordinates back to the ground plane.
func (t *TopDown) ScreenToGround(x, y float64) physics.Vector3 {
	dr := (x - float64(t.width)/2) / t.scaleX()
	df := -(y - float64(t.height)/2) / t.scaleY
	return t.center.Add(t.right.Scale(dr)).Add(t.forward.Scale(df))
}

// ScreenRay returns a ray pointing straight down through the grid point.
func (t *TopDown) ScreenRay(x, y float64) (physics.Ray, bool) {
	if x < 0 || y < 0 || x > float64(t.width) || y > float64(t.height) {
		return physics.Ray{}, false
	}
	ground := t.ScreenToGround(x, y)
	return physics.Ray{
		Origin:    ground.Add(physics.Vector3{Y: 1000}),
		Direction: physics.Vector3{Y: -1},
	}, true
}
