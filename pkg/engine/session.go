// pkg/engine/session.go
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/opd-ai/go-skirmish/pkg/assets"
	"github.com/opd-ai/go-skirmish/pkg/camera"
	"github.com/opd-ai/go-skirmish/pkg/combat"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/event"
	"github.com/opd-ai/go-skirmish/pkg/input"
	"github.com/opd-ai/go-skirmish/pkg/logging"
	"github.com/opd-ai/go-skirmish/pkg/metrics"
	"github.com/opd-ai/go-skirmish/pkg/physics"
	"github.com/opd-ai/go-skirmish/pkg/picking"
	"github.com/opd-ai/go-skirmish/pkg/server"
)

// View is the front-end's camera: it maps pointer positions to world rays
// and follows the orbit camera every frame.
type View interface {
	picking.Projector
	Aim(pose camera.Pose, offset physics.Spherical)
}

// Presenter receives the output of every frame.
type Presenter interface {
	Present(FrameState)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(FrameState)

// Present calls f.
func (f PresenterFunc) Present(state FrameState) { f(state) }

// Deps are the collaborators of a Session. Everything but View may be nil.
type Deps struct {
	View      View
	Renderer  entity.Renderer
	Presenter Presenter
	Assets    *assets.Service
	Server    *server.Server
	Bus       *event.Bus
	Logger    *logging.Logger
	Metrics   *metrics.Metrics
	Clock     func() time.Time
}

// Session is the render/update loop of one sandbox run. It owns the
// selection and combat state, the orbit camera and the input state, and
// advances the player ship once per frame. AI ships are only read; the
// tick moves them.
//
// Input handlers and Frame may be called from different goroutines.
// Event bus handlers run inside them and must not call back into the
// session.
type Session struct {
	world     *World
	view      View
	presenter Presenter
	assets    *assets.Service
	server    *server.Server
	bus       *event.Bus
	logger    *logging.Logger
	metrics   *metrics.Metrics
	clock     func() time.Time

	mu     sync.Mutex
	combat *combat.Engine
	orbit  *camera.Orbit
	picker *picking.Picker
	input  input.State
	labels *physics.QuadTree[entity.ID]
	frames uint64
	loaded int
	closed bool

	tickMu     sync.Mutex
	tick       uint64
	syncedTick uint64
	tickSub    *server.Subscription

	runMu   sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewSession wires a session around world.
func NewSession(world *World, deps Deps) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	cfg := world.Config

	s := &Session{
		world:     world,
		view:      deps.View,
		presenter: deps.Presenter,
		assets:    deps.Assets,
		server:    deps.Server,
		bus:       deps.Bus,
		logger:    logger.With("component", "session"),
		metrics:   deps.Metrics,
		clock:     clock,
		combat:    combat.New(cfg.Combat, world.Registry(), deps.Renderer, deps.Bus, logger, deps.Metrics),
		orbit:     camera.NewOrbit(cfg.Camera),
		picker:    picking.New(cfg.Selection.HitboxRadius, cfg.Selection.IncludePlayer),
	}
	return s
}

// Combat returns the combat engine. Use it only from the frame goroutine.
func (s *Session) Combat() *combat.Engine { return s.combat }

// Orbit returns the orbit camera.
func (s *Session) Orbit() *camera.Orbit { return s.orbit }

// World returns the simulated world.
func (s *Session) World() *World { return s.world }

// Input returns a copy of the input state.
func (s *Session) Input() input.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// HandlePointer applies a pointer event. Events from UI chrome are ignored
// and HandlePointer reports whether the event reached the world.
//
// A primary press with the modifier held starts an orbit drag. Otherwise the
// press picks: a ship under the pointer becomes the selection, else the
// ground point under it becomes the player's destination and keeps tracking
// the pointer until release.
func (s *Session) HandlePointer(ev input.PointerEvent) bool {
	if ev.Region != input.RegionWorld {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	switch ev.Action {
	case input.PointerDown:
		if ev.Button != input.ButtonPrimary {
			return true
		}
		if s.input.Press(ev.X, ev.Y) {
			return true
		}
		s.world.Update(func() { s.pick(ev.X, ev.Y) })
	case input.PointerMove:
		if dx, dy := s.input.Move(ev.X, ev.Y); s.input.Dragging {
			s.orbit.Drag(dx, dy)
		}
	case input.PointerUp:
		s.input.Release()
	}
	return true
}

// pick resolves a primary press. Callers hold both locks.
func (s *Session) pick(x, y float64) {
	if s.view == nil {
		return
	}
	ships := s.world.Registry().Filter(func(*entity.Ship) bool { return true })
	target := s.picker.Resolve(s.view, x, y, ships)

	switch {
	case target.Ship != "":
		s.combat.Select(target.Ship)
	case target.HasGround:
		if player := s.world.Player(); player != nil {
			player.TargetPosition = target.Ground
			s.input.BeginSteering()
		}
	}
}

// HandleKey applies a key event. Events from UI chrome are ignored.
func (s *Session) HandleKey(ev input.KeyEvent) bool {
	if ev.Region != input.RegionWorld {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	if ev.Key == input.KeyModifier {
		s.input.SetModifier(ev.Down)
		return true
	}
	if !ev.Down {
		return true
	}

	s.world.Update(func() {
		switch ev.Key {
		case input.KeyAttack:
			if err := s.combat.ToggleAttack(s.clock()); err != nil {
				s.logger.Debug(context.Background(), "attack toggle ignored", "reason", err)
			}
		case input.KeyEscape:
			s.combat.ClearSelection()
		default:
			if slot, ok := ev.Key.AmmoSlot(); ok {
				s.combat.SetAmmo(slot)
			}
		}
	})
	return true
}

// HandleWheel zooms the orbit camera. Events from UI chrome are ignored.
func (s *Session) HandleWheel(ev input.WheelEvent) bool {
	if ev.Region != input.RegionWorld {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.orbit.Zoom(ev.Delta)
	return true
}

// RequestModels asks the asset service for every ship that has no handle.
func (s *Session) RequestModels(ctx context.Context) int {
	if s.assets == nil {
		return 0
	}
	var reqs []assets.Request
	s.world.Update(func() {
		s.world.Registry().ForEach(func(ship *entity.Ship) bool {
			if ship.Handle == nil {
				reqs = append(reqs, assets.Request{ID: ship.ID, Model: ship.Model})
			}
			return true
		})
	})

	requested := 0
	for _, req := range reqs {
		if err := s.assets.Request(ctx, req); err != nil {
			s.logger.Warn(ctx, "model request rejected", "ship_id", req.ID, "error", err)
			continue
		}
		requested++
	}
	return requested
}

// onTick records the latest authoritative tick.
func (s *Session) onTick(snap server.Snapshot) {
	s.tickMu.Lock()
	s.tick = snap.Sequence
	s.tickMu.Unlock()
}

// newTick returns the latest tick sequence and whether it is new since the
// previous frame.
func (s *Session) newTick() (uint64, bool) {
	s.tickMu.Lock()
	defer s.tickMu.Unlock()
	fresh := s.tick != s.syncedTick
	s.syncedTick = s.tick
	return s.tick, fresh
}
