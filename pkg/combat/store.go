package combat

import (
	"github.com/opd-ai/go-skirmish/pkg/entity"
)

// Store holds live projectiles in spawn order. It owns their handles: a
// projectile's handle is released when, and only when, it is removed.
type Store struct {
	byID  map[entity.ID]*entity.Projectile
	order []entity.ID
}

// NewStore creates an empty projectile store.
func NewStore() *Store {
	return &Store{byID: make(map[entity.ID]*entity.Projectile)}
}

// Add inserts a projectile. Adding an ID that is already present is ignored.
func (s *Store) Add(p *entity.Projectile) bool {
	if p == nil {
		return false
	}
	if _, exists := s.byID[p.ID]; exists {
		return false
	}
	s.byID[p.ID] = p
	s.order = append(s.order, p.ID)
	return true
}

// Get returns the projectile with the given ID.
func (s *Store) Get(id entity.ID) (*entity.Projectile, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// Remove deletes a projectile and releases its handle. Removing an ID that
// is not present is a no-op and returns nil.
func (s *Store) Remove(id entity.ID) *entity.Projectile {
	p, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if p.Handle != nil {
		p.Handle.Release()
		p.Handle = nil
	}
	return p
}

// List returns the live projectiles in spawn order.
func (s *Store) List() []*entity.Projectile {
	out := make([]*entity.Projectile, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of live projectiles.
func (s *Store) Len() int {
	return len(s.order)
}
