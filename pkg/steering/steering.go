// Package steering moves ships towards their target point and keeps AI ships
// patrolling an annulus around the origin.
package steering

import (
	"math"
	"math/rand/v2"

	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

// Patrol describes the annulus patrol targets are drawn from.
type Patrol struct {
	MinRadius float64
	MaxRadius float64
}

// DefaultPatrol is the 350..500 annulus.
var DefaultPatrol = Patrol{MinRadius: 350, MaxRadius: 500}

// Result reports what a single step did.
type Result int

const (
	// Moved means the ship advanced towards its target.
	Moved Result = iota
	// Arrived means the ship was within one step of its target and stopped.
	Arrived
	// Retargeted means an AI ship arrived and was given a new patrol target.
	Retargeted
)

// Steerer applies one movement step to ships. The random source is only
// used for AI patrol targets.
type Steerer struct {
	Patrol Patrol
	rng    *rand.Rand
}

// New creates a Steerer. A nil rng uses a randomly seeded source.
func New(patrol Patrol, rng *rand.Rand) *Steerer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Steerer{Patrol: patrol, rng: rng}
}

// Step advances s by one step of MoveSpeed towards its target.
//
// If the remaining distance exceeds MoveSpeed the ship moves and turns to
// face its direction of travel. Otherwise it has arrived: the player snaps
// onto the target and halts while an AI ship picks a new patrol target. A ship
// sitting exactly on its target counts as arrived.
func (st *Steerer) Step(s *entity.Ship) Result {
	offset := s.TargetPosition.Sub(s.Position)
	distance := offset.Length()

	if distance > s.MoveSpeed {
		direction := offset.Scale(1 / distance)
		s.Position = s.Position.Add(direction.Scale(s.MoveSpeed))
		s.Face(direction)
		s.Moved = true
		return Moved
	}

	if s.PlayerControlled {
		s.Moved = distance > 0
		s.Position = s.TargetPosition
		return Arrived
	}
	s.Moved = false
	s.TargetPosition = st.NextTarget()
	return Retargeted
}

// NextTarget samples a uniformly random angle and radius on the patrol
// annulus and returns the matching ground point.
func (st *Steerer) NextTarget() physics.Vector3 {
	theta := st.rng.Float64() * 2 * math.Pi
	radius := st.Patrol.MinRadius + st.rng.Float64()*(st.Patrol.MaxRadius-st.Patrol.MinRadius)
	return physics.Vector3{
		X: math.Cos(theta) * radius,
		Z: math.Sin(theta) * radius,
	}
}

// SpawnPoint samples a point uniformly from the square [-half, half] on x and z.
func (st *Steerer) SpawnPoint(half float64) physics.Vector3 {
	return physics.Vector3{
		X: (st.rng.Float64() - 0.5) * 2 * half,
		Z: (st.rng.Float64() - 0.5) * 2 * half,
	}
}
