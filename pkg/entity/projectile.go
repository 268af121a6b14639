package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opd-ai/go-skirmish/pkg/physics"
)

// Shape is the geometric class of a projectile.
type Shape int

const (
	// ShapeBeam is a short segment travelling nose first.
	ShapeBeam Shape = iota
	// ShapeRing is a torus travelling face first.
	ShapeRing
)

func (s Shape) String() string {
	switch s {
	case ShapeBeam:
		return "beam"
	case ShapeRing:
		return "ring"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// AmmoType selects the color and shape of a volley.
type AmmoType int

// AmmoCount is the number of selectable ammo slots.
const AmmoCount = 6

// RingAmmo is the ammo type that fires ring pairs.
const RingAmmo AmmoType = 4

var ammoColors = [AmmoCount]uint32{0xff0000, 0x017eff, 0x0efb00, 0xece2ca, 0x3fe3c8, 0xeb9915}

var ammoNames = [AmmoCount]string{"red", "blue", "green", "white", "cyan-ring", "orange"}

// AmmoFromSlot maps a 1-based numeric slot to an ammo type.
func AmmoFromSlot(slot int) (AmmoType, bool) {
	if slot < 1 || slot > AmmoCount {
		return 0, false
	}
	return AmmoType(slot - 1), true
}

// Valid reports whether a is one of the fixed ammo types.
func (a AmmoType) Valid() bool {
	return a >= 0 && int(a) < AmmoCount
}

// Slot returns the 1-based slot number.
func (a AmmoType) Slot() int { return int(a) + 1 }

// Color returns the 24-bit RGB color.
func (a AmmoType) Color() uint32 {
	if !a.Valid() {
		return 0xffffff
	}
	return ammoColors[a]
}

// Shape returns the projectile shape fired by this ammo type.
func (a AmmoType) Shape() Shape {
	if a == RingAmmo {
		return ShapeRing
	}
	return ShapeBeam
}

func (a AmmoType) String() string {
	if !a.Valid() {
		return fmt.Sprintf("ammo(%d)", int(a))
	}
	return ammoNames[a]
}

// Projectile is a homing combat effect. Beams use Start and End; rings use
// Position. Position always equals the projectile's leading point.
type Projectile struct {
	ID       ID
	Kind     AmmoType
	Shape    Shape
	OwnerID  ID
	TargetID ID
	// Origin is the unit direction at spawn.
	Origin    physics.Vector3
	Direction physics.Vector3
	Position  physics.Vector3
	Start     physics.Vector3
	End       physics.Vector3
	// Facing is the direction the renderable faces.
	Facing physics.Vector3
	Length float64
	// Radius and Tube size a ring's torus.
	Radius    float64
	Tube      float64
	CreatedAt time.Time
	Handle    Handle
}

// NewBeam creates a beam segment of the given length starting at start and
// pointing along direction.
func NewBeam(kind AmmoType, owner, target ID, start, direction physics.Vector3, length float64, now time.Time) *Projectile {
	dir := direction.Normalize()
	end := start.Add(dir.Scale(length))
	return &Projectile{
		ID:        NewProjectileID(),
		Kind:      kind,
		Shape:     ShapeBeam,
		OwnerID:   owner,
		TargetID:  target,
		Origin:    dir,
		Direction: dir,
		Position:  end,
		Start:     start,
		End:       end,
		Facing:    dir,
		Length:    length,
		CreatedAt: now,
	}
}

// NewRing creates a ring at position facing along facing and homing on target.
func NewRing(kind AmmoType, owner, target ID, position, facing physics.Vector3, now time.Time) *Projectile {
	dir := facing.Normalize()
	return &Projectile{
		ID:        NewProjectileID(),
		Kind:      kind,
		Shape:     ShapeRing,
		OwnerID:   owner,
		TargetID:  target,
		Origin:    dir,
		Direction: dir,
		Position:  position,
		Start:     position,
		End:       position,
		Facing:    dir,
		CreatedAt: now,
	}
}

// NewProjectileID returns a fresh projectile identifier.
func NewProjectileID() ID {
	return ID("proj-" + uuid.NewString())
}

// GetID returns the projectile's identifier
func (p *Projectile) GetID() ID { return p.ID }

// GetPosition returns the projectile's anchor point. For beams this is the
// segment start, which is where the renderable is placed.
func (p *Projectile) GetPosition() physics.Vector3 {
	if p.Shape == ShapeBeam {
		return p.Start
	}
	return p.Position
}

// GetFacing returns the direction the renderable faces
func (p *Projectile) GetFacing() physics.Vector3 { return p.Facing }

// GetHandle returns the projectile's renderable, if any
func (p *Projectile) GetHandle() Handle { return p.Handle }

// Tip returns the point used for hit tests.
func (p *Projectile) Tip() physics.Vector3 {
	if p.Shape == ShapeBeam {
		return p.End
	}
	return p.Position
}

// Age returns the time elapsed since creation.
func (p *Projectile) Age(now time.Time) time.Duration {
	return now.Sub(p.CreatedAt)
}

// Advance moves the projectile speed units towards aim and returns the
// remaining distance from its tip to aim.
func (p *Projectile) Advance(aim physics.Vector3, speed float64) float64 {
	switch p.Shape {
	case ShapeBeam:
		dir := aim.Sub(p.Start).Normalize()
		if dir != (physics.Vector3{}) {
			p.Direction = dir
			p.Facing = dir
		}
		p.Start = p.Start.Add(p.Direction.Scale(speed))
		p.End = p.Start.Add(p.Direction.Scale(p.Length))
		p.Position = p.End
	default:
		dir := aim.Sub(p.Position).Normalize()
		if dir != (physics.Vector3{}) {
			p.Direction = dir
		}
		p.Position = p.Position.Add(p.Direction.Scale(speed))
		p.Start, p.End = p.Position, p.Position
	}
	return p.Tip().Distance(aim)
}

// State returns a point-in-time copy of the projectile.
func (p *Projectile) State() ProjectileState {
	return ProjectileState{
		ID:       p.ID,
		Kind:     p.Kind,
		Shape:    p.Shape,
		Color:    p.Kind.Color(),
		TargetID: p.TargetID,
		Position: p.Position,
		Start:    p.Start,
		End:      p.End,
		Facing:   p.Facing,
		Radius:   p.Radius,
		Tube:     p.Tube,
	}
}

// ProjectileState is an immutable snapshot of a projectile's visual primitive.
type ProjectileState struct {
	ID       ID
	Kind     AmmoType
	Shape    Shape
	Color    uint32
	TargetID ID
	Position physics.Vector3
	Start    physics.Vector3
	End      physics.Vector3
	Facing   physics.Vector3
	Radius   float64
	Tube     float64
}
