// pkg/render/engo/camera.go
package engo

import (
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-skirmish/pkg/camera"
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

// CameraSystem keeps the top-down projector in step with the window. The
// session aims the projector every frame from the orbit camera, so this
// system only tracks the viewport and converts between world and screen.
type CameraSystem struct {
	view   *camera.TopDown
	width  float32
	height float32
}

// NewCameraSystem creates a camera for a width x height pixel window.
func NewCameraSystem(fov float64, width, height int) *CameraSystem {
	return &CameraSystem{
		view:   camera.NewTopDown(fov, 1, width, height),
		width:  float32(width),
		height: float32(height),
	}
}

// View returns the projector shared with the session.
func (cs *CameraSystem) View() *camera.TopDown { return cs.view }

// Remove satisfies the ecs.System interface
func (cs *CameraSystem) Remove(basic ecs.BasicEntity) {}

// Update follows window resizes.
func (cs *CameraSystem) Update(dt float32) {
	cs.Resize(engo.GameWidth(), engo.GameHeight())
}

// Resize sets the viewport when the window size changed.
func (cs *CameraSystem) Resize(width, height float32) {
	if width <= 0 || height <= 0 || (width == cs.width && height == cs.height) {
		return
	}
	cs.width, cs.height = width, height
	cs.view.SetViewport(int(width), int(height))
}

// WorldToScreen converts world coordinates to screen coordinates
func (cs *CameraSystem) WorldToScreen(worldPos physics.Vector3) engo.Point {
	x, y, _ := cs.view.WorldToScreen(worldPos)
	return engo.Point{X: float32(x), Y: float32(y)}
}

// PixelsPerUnit returns the screen length of one world unit on the ground.
func (cs *CameraSystem) PixelsPerUnit() float32 {
	from := cs.WorldToScreen(physics.Vector3{})
	to := cs.WorldToScreen(physics.Vector3{X: 1})
	return float32(math.Hypot(float64(to.X-from.X), float64(to.Y-from.Y)))
}

// ScreenToWorld converts screen coordinates to a ground point.
func (cs *CameraSystem) ScreenToWorld(screenPos engo.Point) physics.Vector3 {
	return cs.view.ScreenToGround(float64(screenPos.X), float64(screenPos.Y))
}

// ScreenRotation returns the clockwise rotation in degrees that turns a
// nose-up sprite at position to face along facing.
func (cs *CameraSystem) ScreenRotation(position, facing physics.Vector3) float32 {
	ahead := facing.Ground().Normalize()
	if ahead.LengthSquared() == 0 {
		return 0
	}
	from := cs.WorldToScreen(position)
	to := cs.WorldToScreen(position.Add(ahead.Scale(10)))
	dx, dy := float64(to.X-from.X), float64(to.Y-from.Y)
	if dx == 0 && dy == 0 {
		return 0
	}
	// Nose-up is -Y on screen; atan2 measures from +X.
	return float32(math.Atan2(dy, dx)*180/math.Pi + 90)
}
