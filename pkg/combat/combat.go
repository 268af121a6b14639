// Package combat implements the player's lock-on and attack state machine
// and the homing projectiles it fires.
package combat

import (
	"context"
	"errors"
	"time"

	"github.com/opd-ai/go-skirmish/pkg/config"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/event"
	"github.com/opd-ai/go-skirmish/pkg/logging"
	"github.com/opd-ai/go-skirmish/pkg/metrics"
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

// State is the attack state of the player
type State int

const (
	// Idle means no volleys are scheduled.
	Idle State = iota
	// Attacking means volleys fire at the selected ship every fire interval.
	Attacking
)

func (s State) String() string {
	if s == Attacking {
		return "attacking"
	}
	return "idle"
}

// Reasons reported with AttackStopped events.
const (
	StopToggle     = "toggle"
	StopOutOfRange = "out_of_range"
	StopDeselected = "deselected"
)

var (
	// ErrNoSelection is returned when attack is toggled on with nothing selected.
	ErrNoSelection = errors.New("no ship selected")
	// ErrNoShooter is returned when the world has no player ship.
	ErrNoShooter = errors.New("no player ship")
)

// Ships is the read access combat needs to the entity registry.
type Ships interface {
	Get(id entity.ID) (*entity.Ship, bool)
	Player() *entity.Ship
}

// Engine owns the selection, the attack state machine and every live
// projectile. It is not safe for concurrent use; the frame loop drives it.
type Engine struct {
	cfg      config.CombatConfig
	ships    Ships
	renderer entity.Renderer
	bus      *event.Bus
	logger   *logging.Logger
	metrics  *metrics.Metrics

	state    State
	selected entity.ID
	ammo     entity.AmmoType
	nextFire time.Time
	store    *Store
}

// New creates a combat engine. renderer, bus and m may be nil.
func New(cfg config.CombatConfig, ships Ships, renderer entity.Renderer, bus *event.Bus, logger *logging.Logger, m *metrics.Metrics) *Engine {
	if renderer == nil {
		renderer = entity.NopRenderer{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Engine{
		cfg:      cfg,
		ships:    ships,
		renderer: renderer,
		bus:      bus,
		logger:   logger.With("component", "combat"),
		metrics:  m,
		store:    NewStore(),
	}
}

// State returns the current attack state.
func (e *Engine) State() State { return e.state }

// Attacking reports whether the player is attacking.
func (e *Engine) Attacking() bool { return e.state == Attacking }

// Selected returns the selected ship ID, or "" when nothing is selected.
func (e *Engine) Selected() entity.ID { return e.selected }

// Ammo returns the current ammo type.
func (e *Engine) Ammo() entity.AmmoType { return e.ammo }

// SetRenderer replaces the projectile renderer for future volleys.
func (e *Engine) SetRenderer(r entity.Renderer) {
	if r == nil {
		r = entity.NopRenderer{}
	}
	e.renderer = r
}

// Select makes id the selected ship, replacing any previous selection. An
// attack in progress carries over to the new target.
func (e *Engine) Select(id entity.ID) bool {
	if id == "" {
		e.ClearSelection()
		return false
	}
	if _, ok := e.ships.Get(id); !ok {
		return false
	}
	if id == e.selected {
		return true
	}
	e.selected = id
	e.publish(event.NewShipEvent(event.TargetSelected, e, id))
	return true
}

// ClearSelection deselects and drops out of the attack state.
func (e *Engine) ClearSelection() {
	if e.selected == "" {
		return
	}
	if e.state == Attacking {
		e.stop(StopDeselected)
	}
	prev := e.selected
	e.selected = ""
	e.publish(event.NewShipEvent(event.SelectionCleared, e, prev))
}

// ToggleAttack switches between Idle and Attacking. Turning the attack on
// needs a selection; the first volley fires one interval after now.
func (e *Engine) ToggleAttack(now time.Time) error {
	if e.state == Attacking {
		e.stop(StopToggle)
		return nil
	}
	if e.selected == "" {
		return ErrNoSelection
	}
	if _, ok := e.ships.Get(e.selected); !ok {
		e.selected = ""
		return ErrNoSelection
	}
	e.state = Attacking
	e.nextFire = now.Add(e.cfg.FireInterval)
	e.publish(event.NewCombatEvent(event.AttackStarted, e, e.shooterID(), e.selected, e.ammo, true))
	return nil
}

// SetAmmo switches to the ammo in the 1-based slot. Out of range slots are
// ignored.
func (e *Engine) SetAmmo(slot int) bool {
	ammo, ok := entity.AmmoFromSlot(slot)
	if !ok {
		return false
	}
	if ammo != e.ammo {
		e.ammo = ammo
		e.publish(event.NewCombatEvent(event.AmmoChanged, e, e.shooterID(), e.selected, ammo, e.state == Attacking))
	}
	return true
}

// Target returns the selected ship, if it still exists.
func (e *Engine) Target() (*entity.Ship, bool) {
	if e.selected == "" {
		return nil, false
	}
	return e.ships.Get(e.selected)
}

// CheckRange drops out of the attack state when the target is further than
// the maximum attack range from the player, or has disappeared.
func (e *Engine) CheckRange() {
	if e.state != Attacking {
		return
	}
	target, ok := e.Target()
	if !ok {
		e.ClearSelection()
		return
	}
	shooter := e.ships.Player()
	if shooter == nil {
		return
	}
	if shooter.Position.Distance(target.Position) > e.cfg.MaxAttackRange {
		e.stop(StopOutOfRange)
	}
}

// UpdateFire fires the volley that has come due by now, if any, and returns
// how many were fired. After a stall only one volley fires and the schedule
// restarts from now.
func (e *Engine) UpdateFire(now time.Time) int {
	if e.state != Attacking {
		return 0
	}
	if now.Before(e.nextFire) {
		return 0
	}

	fired := 0
	if e.FireVolley(now) {
		fired++
	}
	e.nextFire = e.nextFire.Add(e.cfg.FireInterval)
	if !e.nextFire.After(now) {
		e.nextFire = now.Add(e.cfg.FireInterval)
	}
	return fired
}

// FireVolley spawns one volley at the selected ship. Nothing is spawned
// without a shooter or a target whose handle has loaded.
func (e *Engine) FireVolley(now time.Time) bool {
	shooter := e.ships.Player()
	target, ok := e.Target()
	if shooter == nil || !ok {
		return false
	}
	if !target.HasHandle() {
		e.logger.Debug(context.Background(), "volley skipped, target not loaded", "target", target.ID)
		return false
	}

	var spawned []*entity.Projectile
	if e.ammo.Shape() == entity.ShapeRing {
		spawned = e.ringVolley(shooter, target, now)
	} else {
		spawned = e.beamVolley(shooter, target, now)
	}
	for _, p := range spawned {
		p.Handle = e.renderer.CreateProjectile(p)
		entity.Sync(p)
		e.store.Add(p)
		e.publish(event.NewProjectileEvent(event.ProjectileFired, e, p, now))
	}
	e.metrics.VolleyFired(e.ammo.String())
	e.metrics.ProjectilesLive(e.store.Len())
	return true
}

// beamVolley spawns two segments either side of the shooter, offset
// perpendicular to the line of fire, each pointing at the target.
func (e *Engine) beamVolley(shooter, target *entity.Ship, now time.Time) []*entity.Projectile {
	los := target.Position.Sub(shooter.Position)
	side := physics.Up.Cross(los).Normalize().Scale(e.cfg.BeamOffset)

	out := make([]*entity.Projectile, 0, 2)
	for _, offset := range []physics.Vector3{side, side.Scale(-1)} {
		start := shooter.Position.Add(offset)
		dir := target.Position.Sub(start)
		out = append(out, entity.NewBeam(e.ammo, shooter.ID, target.ID, start, dir, e.cfg.ProjectileLength, now))
	}
	return out
}

// ringVolley spawns two rings at the target, the second pushed towards the
// shooter, both facing and homing on the shooter.
func (e *Engine) ringVolley(shooter, target *entity.Ship, now time.Time) []*entity.Projectile {
	toShooter := shooter.Position.Sub(target.Position).Normalize()
	inner := entity.NewRing(e.ammo, shooter.ID, shooter.ID, target.Position, toShooter, now)
	outer := entity.NewRing(e.ammo, shooter.ID, shooter.ID, target.Position.Add(toShooter.Scale(e.cfg.RingOffset)), toShooter, now)
	inner.Radius, outer.Radius = e.cfg.RingInnerRadius, e.cfg.RingOuterRadius
	inner.Tube, outer.Tube = e.cfg.RingTube, e.cfg.RingTube
	return []*entity.Projectile{inner, outer}
}

// Outcome is how a projectile left the world.
type Outcome int

const (
	// Hit means the projectile reached its target's hitbox.
	Hit Outcome = iota
	// Expired means the projectile outlived its maximum lifetime.
	Expired
)

// Removal records one projectile removed by Advance.
type Removal struct {
	ID      entity.ID
	Outcome Outcome
}

// Advance steps every live projectile towards its target's current position
// and removes those that hit or expired. A hit is tested before expiry, so
// each projectile is removed exactly once with a single outcome.
func (e *Engine) Advance(now time.Time) []Removal {
	var removed []Removal
	for _, p := range e.store.List() {
		aim, ok := e.aimPoint(p)
		remaining := p.Advance(aim, e.cfg.ProjectileSpeed)
		entity.Sync(p)

		switch {
		case ok && remaining < e.cfg.HitboxRadius:
			e.finish(p, Hit, now)
			removed = append(removed, Removal{ID: p.ID, Outcome: Hit})
		case p.Age(now) > e.cfg.MaxLifetime:
			e.finish(p, Expired, now)
			removed = append(removed, Removal{ID: p.ID, Outcome: Expired})
		}
	}
	if len(removed) > 0 {
		e.metrics.ProjectilesLive(e.store.Len())
	}
	return removed
}

// aimPoint returns the target's position. A projectile whose target no
// longer exists flies straight on and can only expire.
func (e *Engine) aimPoint(p *entity.Projectile) (physics.Vector3, bool) {
	if target, ok := e.ships.Get(p.TargetID); ok {
		return target.Position, true
	}
	return p.Tip().Add(p.Direction.Scale(e.cfg.ProjectileSpeed * 2)), false
}

func (e *Engine) finish(p *entity.Projectile, outcome Outcome, now time.Time) {
	if e.store.Remove(p.ID) == nil {
		return
	}
	if outcome == Hit {
		e.metrics.ProjectileRemoved(metrics.OutcomeHit)
		e.publish(event.NewProjectileEvent(event.ProjectileHit, e, p, now))
		return
	}
	e.metrics.ProjectileRemoved(metrics.OutcomeExpired)
	e.publish(event.NewProjectileEvent(event.ProjectileExpired, e, p, now))
}

// Remove deletes a projectile and releases its handle. It reports whether
// the projectile was live; removing it again is a no-op.
func (e *Engine) Remove(id entity.ID) bool {
	if e.store.Remove(id) == nil {
		return false
	}
	e.metrics.ProjectileRemoved(metrics.OutcomeCleared)
	e.metrics.ProjectilesLive(e.store.Len())
	return true
}

// Projectiles returns a snapshot of every live projectile in spawn order.
func (e *Engine) Projectiles() []entity.ProjectileState {
	live := e.store.List()
	out := make([]entity.ProjectileState, len(live))
	for i, p := range live {
		out[i] = p.State()
	}
	return out
}

// ProjectileCount returns the number of live projectiles.
func (e *Engine) ProjectileCount() int { return e.store.Len() }

// Reset stops attacking, clears the selection and removes every projectile.
func (e *Engine) Reset() {
	e.ClearSelection()
	e.state = Idle
	for _, p := range e.store.List() {
		e.Remove(p.ID)
	}
}

func (e *Engine) stop(reason string) {
	e.state = Idle
	e.nextFire = time.Time{}
	ev := event.NewCombatEvent(event.AttackStopped, e, e.shooterID(), e.selected, e.ammo, false)
	ev.Reason = reason
	e.publish(ev)
}

func (e *Engine) shooterID() entity.ID {
	if p := e.ships.Player(); p != nil {
		return p.ID
	}
	return ""
}

func (e *Engine) publish(ev event.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
