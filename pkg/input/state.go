// pkg/input/state.go
package input

// State is the pointer and modifier state threaded through the input
// handler. It is updated synchronously by each world event.
type State struct {
	X, Y float64
	// Modifier is true while KeyModifier is held.
	Modifier bool
	// Dragging is true while the primary button orbits the camera.
	Dragging bool
	// Steering is true while the primary button tracks the ground.
	Steering bool

	lastX, lastY float64
}

// Press records a primary press. With the modifier held it starts an orbit
// drag and reports true; the press is then not a pick.
func (s *State) Press(x, y float64) (drag bool) {
	s.X, s.Y = x, y
	if s.Modifier {
		s.Dragging = true
		s.Steering = false
		s.lastX, s.lastY = x, y
		return true
	}
	return false
}

// BeginSteering marks the held press as a movement order to be re-picked
// every frame.
func (s *State) BeginSteering() {
	if !s.Dragging {
		s.Steering = true
	}
}

// Move records pointer motion and returns the drag delta since the previous
// motion. The delta is zero unless dragging.
func (s *State) Move(x, y float64) (dx, dy float64) {
	s.X, s.Y = x, y
	if !s.Dragging {
		return 0, 0
	}
	dx, dy = x-s.lastX, y-s.lastY
	s.lastX, s.lastY = x, y
	return dx, dy
}

// Release ends any drag or steering.
func (s *State) Release() {
	s.Dragging = false
	s.Steering = false
}

// SetModifier records the modifier key. Pressing it ends steering and
// releasing it ends a drag.
func (s *State) SetModifier(down bool) {
	s.Modifier = down
	if down {
		s.Steering = false
	} else {
		s.Dragging = false
	}
}
