package steering

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

func newSteerer(seed uint64) *Steerer {
	return New(DefaultPatrol, rand.New(rand.NewPCG(seed, seed)))
}

func TestStep_PlayerReachesTargetAndHalts(t *testing.T) {
	st := newSteerer(1)
	player := entity.NewPlayerShip(physics.Vector3{}, 1)
	target := physics.Vector3{X: 100}
	player.TargetPosition = target

	var last Result
	for i := 0; i < 100; i++ {
		last = st.Step(player)
	}

	assert.Equal(t, Arrived, last)
	assert.True(t, player.Position.ApproxEqual(target, 1e-9), "got %v", player.Position)
	assert.Equal(t, target, player.TargetPosition, "player never retargets")

	assert.Equal(t, Arrived, st.Step(player))
	assert.Equal(t, target, player.Position)
	assert.False(t, player.Moved)
}

func TestStep_DistanceNonIncreasing(t *testing.T) {
	st := newSteerer(2)
	ship := entity.NewShip("enemy-0", physics.Vector3{X: -30, Z: 12}, 1.5)
	ship.TargetPosition = physics.Vector3{X: 40, Z: -70}

	prev := ship.DistanceToTarget()
	for {
		if prev <= ship.MoveSpeed {
			break
		}
		require.Equal(t, Moved, st.Step(ship))
		d := ship.DistanceToTarget()
		require.LessOrEqual(t, d, prev)
		prev = d
	}

	assert.Equal(t, Retargeted, st.Step(ship))
	r := ship.TargetPosition.Length()
	assert.GreaterOrEqual(t, r, 350.0-1e-9)
	assert.LessOrEqual(t, r, 500.0+1e-9)
	assert.Equal(t, 0.0, ship.TargetPosition.Y)
}

func TestStep_FacesTravelDirection(t *testing.T) {
	st := newSteerer(3)
	ship := entity.NewShip("enemy-0", physics.Vector3{}, 1)
	ship.TargetPosition = physics.Vector3{X: -10}

	st.Step(ship)
	assert.Equal(t, physics.Vector3{X: -1}, ship.Facing)
	assert.Equal(t, physics.Vector3{X: -1}, ship.Position)
	assert.True(t, ship.Moved)
}

func TestStep_ZeroDistanceIsArrival(t *testing.T) {
	st := newSteerer(4)

	ai := entity.NewShip("enemy-0", physics.Vector3{X: 3}, 1)
	assert.Equal(t, Retargeted, st.Step(ai))
	assert.NotEqual(t, ai.Position, ai.TargetPosition)

	player := entity.NewPlayerShip(physics.Vector3{X: 3}, 1)
	facing := player.Facing
	assert.Equal(t, Arrived, st.Step(player))
	assert.Equal(t, facing, player.Facing)
}

func TestNextTarget_StaysOnAnnulus(t *testing.T) {
	st := newSteerer(5)
	for i := 0; i < 1000; i++ {
		p := st.NextTarget()
		r := p.Length()
		assert.GreaterOrEqual(t, r, 350.0-1e-9)
		assert.LessOrEqual(t, r, 500.0+1e-9)
	}
}

func TestNextTarget_Deterministic(t *testing.T) {
	a, b := newSteerer(9), newSteerer(9)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.NextTarget(), b.NextTarget())
	}
}

func TestSpawnPoint_Bounds(t *testing.T) {
	st := newSteerer(6)
	for i := 0; i < 500; i++ {
		p := st.SpawnPoint(250)
		assert.LessOrEqual(t, p.X, 250.0)
		assert.GreaterOrEqual(t, p.X, -250.0)
		assert.LessOrEqual(t, p.Z, 250.0)
		assert.GreaterOrEqual(t, p.Z, -250.0)
		assert.Equal(t, 0.0, p.Y)
	}
}
