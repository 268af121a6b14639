package entity

import (
	"time"

	"github.com/opd-ai/go-skirmish/pkg/physics"
)

// Ship represents a player or AI-controlled spaceship.
type Ship struct {
	ID               ID
	PlayerControlled bool
	Username         string
	ClanTag          string
	Model            string
	Position         physics.Vector3
	TargetPosition   physics.Vector3
	MoveSpeed        float64
	// Facing is the unit direction the ship points along.
	Facing  physics.Vector3
	Handle  Handle
	Exhaust Exhaust
	// Moved is set when the last movement step changed Position.
	Moved bool
}

// NewShip creates a ship at rest at position, facing +Z.
func NewShip(id ID, position physics.Vector3, moveSpeed float64) *Ship {
	return &Ship{
		ID:             id,
		Position:       position,
		TargetPosition: position,
		MoveSpeed:      moveSpeed,
		Facing:         physics.Vector3{Z: 1},
		Exhaust:        NewExhaust(),
	}
}

// NewPlayerShip creates the player-controlled ship.
func NewPlayerShip(position physics.Vector3, moveSpeed float64) *Ship {
	s := NewShip(PlayerID, position, moveSpeed)
	s.PlayerControlled = true
	return s
}

// GetID returns the ship's identifier
func (s *Ship) GetID() ID { return s.ID }

// GetPosition returns the ship's world position
func (s *Ship) GetPosition() physics.Vector3 { return s.Position }

// GetFacing returns the direction the ship points along
func (s *Ship) GetFacing() physics.Vector3 { return s.Facing }

// GetHandle returns the ship's renderable, or nil if it has not loaded
func (s *Ship) GetHandle() Handle { return s.Handle }

// HasHandle reports whether the ship's model has loaded.
func (s *Ship) HasHandle() bool { return s.Handle != nil }

// Face turns the ship along direction. A zero direction leaves the facing
// unchanged.
func (s *Ship) Face(direction physics.Vector3) {
	d := direction.Normalize()
	if d == (physics.Vector3{}) {
		return
	}
	s.Facing = d
}

// FaceToward turns the ship towards point on the ground plane.
func (s *Ship) FaceToward(point physics.Vector3) {
	s.Face(point.Sub(s.Position).Ground())
}

// DistanceToTarget returns the remaining distance to TargetPosition.
func (s *Ship) DistanceToTarget() float64 {
	return s.Position.Distance(s.TargetPosition)
}

// DisplayName returns the clan tag and username as shown on labels.
func (s *Ship) DisplayName() string {
	if s.ClanTag == "" {
		return s.Username
	}
	return s.ClanTag + " " + s.Username
}

// UpdateExhaust advances the ship's exhaust animation.
func (s *Ship) UpdateExhaust(now time.Time) {
	s.Exhaust.Update(now, s.Moved)
}

// State returns a point-in-time copy of the ship's logical state.
func (s *Ship) State() ShipState {
	return ShipState{
		ID:               s.ID,
		PlayerControlled: s.PlayerControlled,
		Username:         s.Username,
		ClanTag:          s.ClanTag,
		Position:         s.Position,
		TargetPosition:   s.TargetPosition,
		Facing:           s.Facing,
		Loaded:           s.Handle != nil,
		ExhaustVisible:   s.Exhaust.Visible(),
		ExhaustFrame:     s.Exhaust.Frame,
	}
}

// ShipState is an immutable snapshot of a ship.
type ShipState struct {
	ID               ID
	PlayerControlled bool
	Username         string
	ClanTag          string
	Position         physics.Vector3
	TargetPosition   physics.Vector3
	Facing           physics.Vector3
	Loaded           bool
	ExhaustVisible   bool
	ExhaustFrame     int
}
