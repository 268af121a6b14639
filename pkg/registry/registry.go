// Package registry owns the canonical state of every ship in the world.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/opd-ai/go-skirmish/pkg/entity"
)

var (
	// ErrNotFound is returned when no ship has the requested ID.
	ErrNotFound = errors.New("ship not found")
	// ErrInvalidShip is returned when a ship violates a registry invariant.
	ErrInvalidShip = errors.New("invalid ship")
)

// Registry maps ship IDs to ships. It is safe for concurrent use; compound
// read-modify-write sequences are the caller's to serialize.
type Registry struct {
	mu     sync.RWMutex
	ships  map[entity.ID]*entity.Ship
	order  []entity.ID
	player entity.ID
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{ships: make(map[entity.ID]*entity.Ship)}
}

// Get returns the ship with the given ID.
func (r *Registry) Get(id entity.ID) (*entity.Ship, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.ships[id]
	return s, ok
}

// MustGet returns the ship with the given ID or ErrNotFound.
func (r *Registry) MustGet(id entity.ID) (*entity.Ship, error) {
	s, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Upsert inserts or replaces a ship. At most one ship may be player
// controlled, every ship needs an ID and a positive move speed.
func (r *Registry) Upsert(s *entity.Ship) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidShip)
	}
	if s.MoveSpeed <= 0 {
		return fmt.Errorf("%w: %s has move speed %v", ErrInvalidShip, s.ID, s.MoveSpeed)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s.PlayerControlled && r.player != "" && r.player != s.ID {
		return fmt.Errorf("%w: %s is already player controlled", ErrInvalidShip, r.player)
	}
	if _, exists := r.ships[s.ID]; !exists {
		r.insertOrdered(s.ID)
	}
	if r.player == s.ID && !s.PlayerControlled {
		r.player = ""
	}
	if s.PlayerControlled {
		r.player = s.ID
	}
	r.ships[s.ID] = s
	return nil
}

// insertOrdered keeps order sorted so iteration is deterministic.
func (r *Registry) insertOrdered(id entity.ID) {
	i := sort.Search(len(r.order), func(i int) bool { return r.order[i] >= id })
	r.order = append(r.order, "")
	copy(r.order[i+1:], r.order[i:])
	r.order[i] = id
}

// Remove deletes a ship and reports whether it was present. The ship's
// handle is not released; that belongs to whoever owns the renderable.
func (r *Registry) Remove(id entity.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ships[id]; !ok {
		return false
	}
	delete(r.ships, id)
	i := sort.Search(len(r.order), func(i int) bool { return r.order[i] >= id })
	r.order = append(r.order[:i], r.order[i+1:]...)
	if r.player == id {
		r.player = ""
	}
	return true
}

// ForEach calls fn for every ship in ID order until fn returns false.
func (r *Registry) ForEach(fn func(*entity.Ship) bool) {
	for _, s := range r.list() {
		if !fn(s) {
			return
		}
	}
}

// Filter returns the ships matching pred in ID order.
func (r *Registry) Filter(pred func(*entity.Ship) bool) []*entity.Ship {
	var out []*entity.Ship
	for _, s := range r.list() {
		if pred(s) {
			out = append(out, s)
		}
	}
	return out
}

// AI returns every ship that is not player controlled, in ID order.
func (r *Registry) AI() []*entity.Ship {
	return r.Filter(func(s *entity.Ship) bool { return !s.PlayerControlled })
}

// Player returns the player-controlled ship, or nil before one is added.
func (r *Registry) Player() *entity.Ship {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.player == "" {
		return nil
	}
	return r.ships[r.player]
}

// Len returns the number of ships.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ships)
}

// Snapshot returns a copy of every ship's state in ID order.
func (r *Registry) Snapshot() []entity.ShipState {
	ships := r.list()
	states := make([]entity.ShipState, len(ships))
	for i, s := range ships {
		states[i] = s.State()
	}
	return states
}

func (r *Registry) list() []*entity.Ship {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.Ship, len(r.order))
	for i, id := range r.order {
		out[i] = r.ships[id]
	}
	return out
}
