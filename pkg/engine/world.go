// pkg/engine/world.go
package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/opd-ai/go-skirmish/pkg/config"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/logging"
	"github.com/opd-ai/go-skirmish/pkg/physics"
	"github.com/opd-ai/go-skirmish/pkg/registry"
	"github.com/opd-ai/go-skirmish/pkg/steering"
)

// World is the simulation aggregate: every ship, the steering that moves
// them and the lock that serializes the tick and the frame loop. It is
// created once per session and satisfies server.Simulation.
type World struct {
	Config *config.Config

	mu      sync.Mutex
	ships   *registry.Registry
	steerer *steering.Steerer
	logger  *logging.Logger
}

// NewWorld creates the starting population: cfg.World.AIShips patrolling AI
// ships spawned around the origin and the player ship at rest at the origin.
// A nil rng uses cfg.World.Seed, or a random seed when that is zero.
func NewWorld(cfg *config.Config, rng *rand.Rand, logger *logging.Logger) (*World, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if rng == nil && cfg.World.Seed != 0 {
		rng = rand.New(rand.NewPCG(cfg.World.Seed, cfg.World.Seed))
	}

	w := &World{
		Config: cfg,
		ships:  registry.New(),
		steerer: steering.New(steering.Patrol{
			MinRadius: cfg.World.PatrolMinRadius,
			MaxRadius: cfg.World.PatrolMaxRadius,
		}, rng),
		logger: logger.With("component", "world"),
	}

	for i := 0; i < cfg.World.AIShips; i++ {
		ship := entity.NewShip(AIShipID(i), w.steerer.SpawnPoint(cfg.World.SpawnHalfExtent), cfg.World.AIMoveSpeed)
		ship.Username = fmt.Sprintf(cfg.World.AINameFormat, i)
		ship.Model = cfg.Assets.EnemyModel
		ship.TargetPosition = w.steerer.NextTarget()
		if err := w.ships.Upsert(ship); err != nil {
			return nil, fmt.Errorf("spawning %s: %w", ship.ID, err)
		}
	}

	player := entity.NewPlayerShip(physics.Zero, cfg.World.PlayerMoveSpeed)
	player.Username = cfg.World.PlayerName
	player.ClanTag = cfg.World.PlayerClan
	player.Model = cfg.Assets.PlayerModel
	if err := w.ships.Upsert(player); err != nil {
		return nil, fmt.Errorf("spawning player: %w", err)
	}

	w.logger.Info(context.Background(), "world created",
		"ai_ships", cfg.World.AIShips,
		"patrol_min", cfg.World.PatrolMinRadius,
		"patrol_max", cfg.World.PatrolMaxRadius,
	)
	return w, nil
}

// AIShipID returns the ID of the i-th AI ship.
func AIShipID(i int) entity.ID {
	return entity.ID(fmt.Sprintf("enemy-%d", i))
}

// Registry returns the ship registry. Mutating ships outside Update races
// with the tick.
func (w *World) Registry() *registry.Registry { return w.ships }

// Steerer returns the steering used for every ship.
func (w *World) Steerer() *steering.Steerer { return w.steerer }

// Player returns the player ship.
func (w *World) Player() *entity.Ship { return w.ships.Player() }

// Update runs fn with exclusive access to the world.
func (w *World) Update(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn()
}

// StepAI applies one steering step to every AI ship. AI ships keep moving
// whether or not their model has loaded.
func (w *World) StepAI() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	stepped := 0
	w.ships.ForEach(func(s *entity.Ship) bool {
		if s.PlayerControlled {
			return true
		}
		if w.steerer.Step(s) == steering.Retargeted {
			w.logger.Debug(context.Background(), "patrol target assigned",
				"ship_id", s.ID,
				"target", s.TargetPosition,
			)
		}
		stepped++
		return true
	})
	return stepped
}

// Snapshot returns the state of every ship in ID order.
func (w *World) Snapshot() []entity.ShipState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ships.Snapshot()
}

// attach gives the ship its loaded handle. A handle for an unknown ship, or
// for one that already has a handle, is released. Callers hold the lock.
func (w *World) attach(id entity.ID, h entity.Handle) bool {
	ship, ok := w.ships.Get(id)
	if !ok || ship.Handle != nil {
		h.Release()
		return false
	}
	ship.Handle = h
	entity.Sync(ship)
	return true
}

// releaseHandles releases every ship handle. Callers hold the lock.
func (w *World) releaseHandles() int {
	released := 0
	w.ships.ForEach(func(s *entity.Ship) bool {
		if s.Handle != nil {
			s.Handle.Release()
			s.Handle = nil
			released++
		}
		return true
	})
	return released
}
