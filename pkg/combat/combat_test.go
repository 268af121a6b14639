package combat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-skirmish/pkg/config"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/event"
	"github.com/opd-ai/go-skirmish/pkg/metrics"
	"github.com/opd-ai/go-skirmish/pkg/physics"
	"github.com/opd-ai/go-skirmish/pkg/registry"
)

type countingHandle struct {
	released int
	placed   int
}

func (h *countingHandle) SetTransform(physics.Vector3, physics.Vector3) { h.placed++ }
func (h *countingHandle) Release()                                      { h.released++ }

type recordingRenderer struct {
	handles map[entity.ID]*countingHandle
}

func (r *recordingRenderer) CreateProjectile(p *entity.Projectile) entity.Handle {
	h := &countingHandle{}
	r.handles[p.ID] = h
	return h
}

type fixture struct {
	reg      *registry.Registry
	engine   *Engine
	renderer *recordingRenderer
	player   *entity.Ship
	target   *entity.Ship
	events   map[event.Type]int
	stops    []string
}

func newFixture(t *testing.T, targetPos physics.Vector3) *fixture {
	t.Helper()
	f := &fixture{
		reg:      registry.New(),
		renderer: &recordingRenderer{handles: map[entity.ID]*countingHandle{}},
		events:   map[event.Type]int{},
	}
	f.player = entity.NewPlayerShip(physics.Vector3{}, 1)
	f.target = entity.NewShip("enemy-0", targetPos, 1)
	f.target.Handle = &countingHandle{}
	require.NoError(t, f.reg.Upsert(f.player))
	require.NoError(t, f.reg.Upsert(f.target))

	bus := event.NewEventBus()
	for _, typ := range []event.Type{
		event.TargetSelected, event.SelectionCleared, event.AttackStarted, event.AttackStopped,
		event.AmmoChanged, event.ProjectileFired, event.ProjectileHit, event.ProjectileExpired,
	} {
		bus.Subscribe(typ, func(e event.Event) {
			f.events[e.GetType()]++
			if ce, ok := e.(*event.CombatEvent); ok && e.GetType() == event.AttackStopped {
				f.stops = append(f.stops, ce.Reason)
			}
		})
	}

	f.engine = New(config.DefaultConfig().Combat, f.reg, f.renderer, bus, nil, metrics.New())
	return f
}

var t0 = time.Unix(1_700_000_000, 0)

func TestToggleAttack_RequiresSelection(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 50})

	assert.ErrorIs(t, f.engine.ToggleAttack(t0), ErrNoSelection)
	assert.Equal(t, Idle, f.engine.State())
	assert.Zero(t, f.events[event.AttackStarted])

	require.True(t, f.engine.Select("enemy-0"))
	require.NoError(t, f.engine.ToggleAttack(t0))
	assert.Equal(t, Attacking, f.engine.State())

	require.NoError(t, f.engine.ToggleAttack(t0))
	assert.Equal(t, Idle, f.engine.State())
	assert.Equal(t, []string{StopToggle}, f.stops)
}

func TestSelect_UnknownShipIgnored(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 50})
	assert.False(t, f.engine.Select("ghost"))
	assert.Empty(t, f.engine.Selected())
}

func TestClearSelection_StopsAttack(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 50})
	f.engine.Select("enemy-0")
	require.NoError(t, f.engine.ToggleAttack(t0))

	f.engine.ClearSelection()

	assert.Equal(t, Idle, f.engine.State())
	assert.Empty(t, f.engine.Selected())
	assert.Equal(t, []string{StopDeselected}, f.stops)
	assert.Equal(t, 1, f.events[event.SelectionCleared])
	assert.Zero(t, f.engine.UpdateFire(t0.Add(time.Second)))
}

func TestCheckRange_OutOfRangeDisengages(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 161})
	f.engine.Select("enemy-0")
	require.NoError(t, f.engine.ToggleAttack(t0))

	f.engine.CheckRange()

	assert.Equal(t, Idle, f.engine.State())
	assert.Equal(t, []string{StopOutOfRange}, f.stops)
	assert.Equal(t, entity.ID("enemy-0"), f.engine.Selected(), "selection survives auto-disengage")
	for i := 1; i <= 10; i++ {
		assert.Zero(t, f.engine.UpdateFire(t0.Add(time.Duration(i)*350*time.Millisecond)))
	}
	assert.Zero(t, f.engine.ProjectileCount())
}

func TestCheckRange_AtRangeKeepsAttacking(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 160})
	f.engine.Select("enemy-0")
	require.NoError(t, f.engine.ToggleAttack(t0))
	f.engine.CheckRange()
	assert.Equal(t, Attacking, f.engine.State())
}

func TestCheckRange_TargetGoneClearsSelection(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 50})
	f.engine.Select("enemy-0")
	require.NoError(t, f.engine.ToggleAttack(t0))
	f.reg.Remove("enemy-0")

	f.engine.CheckRange()
	assert.Equal(t, Idle, f.engine.State())
	assert.Empty(t, f.engine.Selected())
}

func TestUpdateFire_Schedule(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 50})
	f.engine.Select("enemy-0")
	require.NoError(t, f.engine.ToggleAttack(t0))

	assert.Zero(t, f.engine.UpdateFire(t0.Add(349*time.Millisecond)))
	assert.Equal(t, 1, f.engine.UpdateFire(t0.Add(350*time.Millisecond)))
	assert.Zero(t, f.engine.UpdateFire(t0.Add(360*time.Millisecond)))
	assert.Equal(t, 1, f.engine.UpdateFire(t0.Add(700*time.Millisecond)))
	assert.Equal(t, 4, f.engine.ProjectileCount())

	// a long stall fires once and restarts the schedule
	assert.Equal(t, 1, f.engine.UpdateFire(t0.Add(5*time.Second)))
	assert.Zero(t, f.engine.UpdateFire(t0.Add(5*time.Second+100*time.Millisecond)))
	assert.Equal(t, 1, f.engine.UpdateFire(t0.Add(5*time.Second+350*time.Millisecond)))
}

func TestFireVolley_TargetNotLoadedIsNoop(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 50})
	f.target.Handle = nil
	f.engine.Select("enemy-0")

	assert.False(t, f.engine.FireVolley(t0))
	assert.Zero(t, f.engine.ProjectileCount())
}

func TestFireVolley_BeamPair(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 50})
	f.engine.Select("enemy-0")
	require.True(t, f.engine.FireVolley(t0))

	shots := f.engine.Projectiles()
	require.Len(t, shots, 2)
	starts := []physics.Vector3{shots[0].Start, shots[1].Start}
	assert.Contains(t, starts, physics.Vector3{Z: -5})
	assert.Contains(t, starts, physics.Vector3{Z: 5})
	for _, s := range shots {
		assert.Equal(t, entity.ShapeBeam, s.Shape)
		assert.Equal(t, entity.ID("enemy-0"), s.TargetID)
		assert.InDelta(t, 3, s.End.Distance(s.Start), 1e-9)
		assert.Less(t, s.End.Distance(f.target.Position), s.Start.Distance(f.target.Position))
	}
	assert.Len(t, f.renderer.handles, 2)
	assert.Equal(t, 2, f.events[event.ProjectileFired])
}

func TestFireVolley_RingPair(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 50})
	f.engine.Select("enemy-0")
	require.True(t, f.engine.SetAmmo(5))
	assert.Equal(t, entity.RingAmmo, f.engine.Ammo())
	require.True(t, f.engine.FireVolley(t0))

	shots := f.engine.Projectiles()
	require.Len(t, shots, 2)
	assert.Equal(t, physics.Vector3{X: 50}, shots[0].Position)
	assert.Equal(t, physics.Vector3{X: 48}, shots[1].Position)
	assert.Equal(t, 2.0, shots[0].Radius)
	assert.Equal(t, 3.0, shots[1].Radius)
	for _, s := range shots {
		assert.Equal(t, 0.2, s.Tube)
		assert.Equal(t, entity.ShapeRing, s.Shape)
		assert.Equal(t, entity.PlayerID, s.TargetID)
		assert.Equal(t, physics.Vector3{X: -1}, s.Facing)
		assert.Equal(t, uint32(0x3fe3c8), s.Color)
	}
}

func TestSetAmmo(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 50})
	assert.False(t, f.engine.SetAmmo(0))
	assert.False(t, f.engine.SetAmmo(7))
	assert.True(t, f.engine.SetAmmo(3))
	assert.Equal(t, entity.AmmoType(2), f.engine.Ammo())
	assert.True(t, f.engine.SetAmmo(3))
	assert.Equal(t, 1, f.events[event.AmmoChanged])
}

func TestAdvance_BeamHitsStationaryTarget(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 50})
	f.engine.Select("enemy-0")
	require.True(t, f.engine.FireVolley(t0))

	now := t0
	for step := 1; step <= 21; step++ {
		now = now.Add(16 * time.Millisecond)
		assert.Empty(t, f.engine.Advance(now), "step %d", step)
	}
	now = now.Add(16 * time.Millisecond)
	removed := f.engine.Advance(now)

	require.Len(t, removed, 2)
	for _, r := range removed {
		assert.Equal(t, Hit, r.Outcome)
		assert.Equal(t, 1, f.renderer.handles[r.ID].released)
	}
	assert.Zero(t, f.engine.ProjectileCount())
	assert.Equal(t, 2, f.events[event.ProjectileHit])
	assert.Zero(t, f.events[event.ProjectileExpired])
}

func TestAdvance_EvadingTargetExpires(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 50})
	f.engine.Select("enemy-0")
	require.True(t, f.engine.FireVolley(t0))

	now := t0
	for step := 1; step <= 50; step++ {
		now = t0.Add(time.Duration(step) * 100 * time.Millisecond)
		f.target.Position = f.target.Position.Add(physics.Vector3{X: 3})
		require.Empty(t, f.engine.Advance(now), "step %d", step)
	}

	now = now.Add(100 * time.Millisecond)
	f.target.Position = f.target.Position.Add(physics.Vector3{X: 3})
	removed := f.engine.Advance(now)
	require.Len(t, removed, 2)
	for _, r := range removed {
		assert.Equal(t, Expired, r.Outcome)
	}
	assert.Equal(t, 2, f.events[event.ProjectileExpired])
	assert.Zero(t, f.events[event.ProjectileHit])
}

func TestAdvance_RingsHomeOnShooter(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 30})
	f.engine.Select("enemy-0")
	f.engine.SetAmmo(5)
	require.True(t, f.engine.FireVolley(t0))

	hits := 0
	for step := 1; step <= 20 && f.engine.ProjectileCount() > 0; step++ {
		for _, r := range f.engine.Advance(t0.Add(time.Duration(step) * 16 * time.Millisecond)) {
			if r.Outcome == Hit {
				hits++
			}
		}
	}
	assert.Equal(t, 2, hits)
}

func TestAdvance_TargetRemovedProjectileOnlyExpires(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 20})
	f.engine.Select("enemy-0")
	require.True(t, f.engine.FireVolley(t0))
	f.reg.Remove("enemy-0")

	for step := 1; step <= 50; step++ {
		require.Empty(t, f.engine.Advance(t0.Add(time.Duration(step)*100*time.Millisecond)))
	}
	removed := f.engine.Advance(t0.Add(5100 * time.Millisecond))
	require.Len(t, removed, 2)
	assert.Equal(t, Expired, removed[0].Outcome)
}

func TestRemove_Idempotent(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 50})
	f.engine.Select("enemy-0")
	require.True(t, f.engine.FireVolley(t0))

	id := f.engine.Projectiles()[0].ID
	assert.True(t, f.engine.Remove(id))
	assert.False(t, f.engine.Remove(id))
	assert.Equal(t, 1, f.renderer.handles[id].released)
	assert.Equal(t, 1, f.engine.ProjectileCount())
}

func TestProjectiles_RemovedExactlyOnce(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 120})
	f.engine.Select("enemy-0")
	require.NoError(t, f.engine.ToggleAttack(t0))

	now := t0
	for frame := 0; frame < 600; frame++ {
		now = now.Add(16 * time.Millisecond)
		// the target wanders so some shots hit and some run out of time
		f.target.Position = physics.Vector3{X: 120 + float64(frame%30), Z: float64(frame % 25)}
		f.engine.CheckRange()
		f.engine.UpdateFire(now)
		f.engine.Advance(now)
		if frame == 400 {
			require.NoError(t, f.engine.ToggleAttack(now))
		}
	}
	for f.engine.ProjectileCount() > 0 {
		now = now.Add(100 * time.Millisecond)
		f.engine.Advance(now)
	}

	fired := f.events[event.ProjectileFired]
	require.Positive(t, fired)
	assert.Equal(t, fired, f.events[event.ProjectileHit]+f.events[event.ProjectileExpired])
	for id, h := range f.renderer.handles {
		assert.Equal(t, 1, h.released, "projectile %s", id)
	}
}

func TestReset_ReleasesEverything(t *testing.T) {
	f := newFixture(t, physics.Vector3{X: 50})
	f.engine.Select("enemy-0")
	require.NoError(t, f.engine.ToggleAttack(t0))
	f.engine.FireVolley(t0)

	f.engine.Reset()

	assert.Equal(t, Idle, f.engine.State())
	assert.Empty(t, f.engine.Selected())
	assert.Zero(t, f.engine.ProjectileCount())
	for _, h := range f.renderer.handles {
		assert.Equal(t, 1, h.released)
	}
}
