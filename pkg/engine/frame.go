// pkg/engine/frame.go
package engine

import (
	"context"
	"time"

	"github.com/opd-ai/go-skirmish/pkg/assets"
	"github.com/opd-ai/go-skirmish/pkg/camera"
	"github.com/opd-ai/go-skirmish/pkg/combat"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/event"
	"github.com/opd-ai/go-skirmish/pkg/physics"
	"github.com/opd-ai/go-skirmish/pkg/picking"
)

// selectionLift raises the selection indicator above the selected ship.
const selectionLift = 1.0

// Label is a ship's name tag.
type Label struct {
	ShipID   entity.ID
	Text     string
	Position physics.Vector3
	Visible  bool
}

// FrameState is everything a front-end needs to draw one frame.
type FrameState struct {
	Time  time.Time
	Frame uint64
	// Tick is the sequence of the latest authoritative tick.
	Tick uint64

	Ships       []entity.ShipState
	Labels      []Label
	Projectiles []entity.ProjectileState
	Removed     []combat.Removal

	Camera      camera.Pose
	CameraValid bool

	Selected          entity.ID
	SelectionPosition physics.Vector3
	HasSelection      bool

	Attacking bool
	Ammo      entity.AmmoType
}

// Ship returns the state of the ship with the given ID.
func (f FrameState) Ship(id entity.ID) (entity.ShipState, bool) {
	for _, st := range f.Ships {
		if st.ID == id {
			return st, true
		}
	}
	return entity.ShipState{}, false
}

// Frame runs one render/update step at now and hands the result to the
// presenter. Within the step, in order: finished model loads are attached,
// the held pointer re-picks the destination, the player moves and turns,
// the selection and attack range are checked, due volleys fire,
// projectiles advance, exhaust animates and the camera follows the player.
func (s *Session) Frame(now time.Time) FrameState {
	started := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return FrameState{Time: now, Frame: s.frames}
	}

	s.frames++
	tick, freshTick := s.newTick()
	state := FrameState{Time: now, Frame: s.frames, Tick: tick}

	s.world.Update(func() {
		s.drainLoads(now)

		player := s.world.Player()
		if player != nil {
			s.trackPointer(player)
			s.world.Steerer().Step(player)
		}
		s.orient(player)

		if _, ok := s.combat.Target(); !ok && s.combat.Selected() != "" {
			s.combat.ClearSelection()
		}
		s.combat.CheckRange()
		s.combat.UpdateFire(now)
		state.Removed = s.combat.Advance(now)

		s.world.Registry().ForEach(func(ship *entity.Ship) bool {
			ship.UpdateExhaust(now)
			if ship.PlayerControlled || freshTick || s.server == nil {
				entity.Sync(ship)
			}
			return true
		})

		if pose, ok := s.orbit.Update(player); ok {
			if s.view != nil {
				s.view.Aim(pose, s.orbit.Spherical())
			}
		}
		state.Camera, state.CameraValid = s.orbit.Pose()

		state.Ships = s.world.Registry().Snapshot()
		state.Labels = s.labelsFor(player)
		state.Projectiles = s.combat.Projectiles()
		if target, ok := s.combat.Target(); ok {
			state.Selected = target.ID
			state.SelectionPosition = target.Position.Add(physics.Vector3{Y: selectionLift})
			state.HasSelection = true
		}
		state.Attacking = s.combat.Attacking()
		state.Ammo = s.combat.Ammo()
	})

	s.metrics.FrameObserved(time.Since(started))
	if s.presenter != nil {
		s.presenter.Present(state)
	}
	return state
}

// trackPointer re-issues the ground pick while the primary button is held
// and the modifier is up.
func (s *Session) trackPointer(player *entity.Ship) {
	if !s.input.Steering || s.input.Dragging || s.input.Modifier || s.view == nil {
		return
	}
	ray, ok := s.view.ScreenRay(s.input.X, s.input.Y)
	if !ok {
		return
	}
	if point, ok := picking.PickGround(ray); ok {
		player.TargetPosition = point
	}
}

// orient turns the player towards its locked target while attacking.
// Otherwise the ship keeps the facing steering gave it.
func (s *Session) orient(player *entity.Ship) {
	if player == nil || !s.combat.Attacking() {
		return
	}
	if target, ok := s.combat.Target(); ok {
		player.FaceToward(target.Position)
	}
}

// drainLoads attaches every finished model load to its ship.
func (s *Session) drainLoads(now time.Time) {
	if s.assets == nil {
		return
	}
	ctx := context.Background()
	s.assets.Drain(func(c assets.Completion) {
		if c.Err != nil {
			s.logger.Warn(ctx, "ship stays without a model", "ship_id", c.ID, "error", c.Err)
			ev := event.NewShipEvent(event.ShipLoadFailed, s, c.ID)
			ev.Err = c.Err
			s.publish(ev)
			return
		}
		if !s.world.attach(c.ID, c.Handle) {
			s.logger.Debug(ctx, "discarded model for unknown or loaded ship", "ship_id", c.ID)
			return
		}
		s.loaded++
		s.metrics.ShipsLoaded(s.loaded)
		s.logger.Debug(ctx, "ship model attached", "ship_id", c.ID, "at", now)
		s.publish(event.NewShipEvent(event.ShipLoaded, s, c.ID))
	})
}

// labelsFor reports every AI ship's name tag, visible within the label
// distance of the player.
func (s *Session) labelsFor(player *entity.Ship) []Label {
	ai := s.world.Registry().AI()
	labels := make([]Label, len(ai))
	for i, ship := range ai {
		labels[i] = Label{ShipID: ship.ID, Text: ship.DisplayName(), Position: ship.Position}
	}
	if player == nil {
		return labels
	}

	radius := s.world.Config.World.LabelDistance
	center := player.Position
	if s.labels == nil {
		s.labels = physics.NewQuadTree[entity.ID](physics.Rect{}, 4)
	}
	s.labels.Clear()
	s.labels.Boundary = physics.Rect{
		CenterX: center.X,
		CenterZ: center.Z,
		Width:   2*radius + 2,
		Depth:   2*radius + 2,
	}
	for _, ship := range ai {
		s.labels.Insert(ship.Position, ship.ID)
	}

	near := make(map[entity.ID]bool)
	for _, id := range s.labels.QueryRadius(center, radius) {
		near[id] = true
	}
	for i := range labels {
		labels[i].Visible = near[labels[i].ShipID]
	}
	return labels
}

func (s *Session) publish(ev event.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}
