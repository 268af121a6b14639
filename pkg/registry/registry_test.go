package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

func TestRegistry_UpsertAndGet(t *testing.T) {
	r := New()
	ship := entity.NewShip("enemy-1", physics.Vector3{X: 5}, 1)
	require.NoError(t, r.Upsert(ship))

	got, ok := r.Get("enemy-1")
	require.True(t, ok)
	assert.Same(t, ship, got)

	_, ok = r.Get("missing")
	assert.False(t, ok)

	_, err := r.MustGet("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_Upsert_Invariants(t *testing.T) {
	tests := []struct {
		name string
		ship *entity.Ship
	}{
		{"nil", nil},
		{"empty_id", entity.NewShip("", physics.Vector3{}, 1)},
		{"zero_speed", entity.NewShip("a", physics.Vector3{}, 0)},
		{"negative_speed", entity.NewShip("a", physics.Vector3{}, -1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Upsert(tt.ship)
			assert.ErrorIs(t, err, ErrInvalidShip)
		})
	}
}

func TestRegistry_SinglePlayer(t *testing.T) {
	r := New()
	require.NoError(t, r.Upsert(entity.NewPlayerShip(physics.Vector3{}, 1)))

	other := entity.NewShip("other", physics.Vector3{}, 1)
	other.PlayerControlled = true
	assert.ErrorIs(t, r.Upsert(other), ErrInvalidShip)

	// replacing the player itself is fine
	require.NoError(t, r.Upsert(entity.NewPlayerShip(physics.Vector3{X: 1}, 1)))
	assert.Equal(t, physics.Vector3{X: 1}, r.Player().Position)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ForEach_Ordered(t *testing.T) {
	r := New()
	for _, id := range []entity.ID{"enemy-3", "enemy-0", "player", "enemy-2"} {
		s := entity.NewShip(id, physics.Vector3{}, 1)
		s.PlayerControlled = id == entity.PlayerID
		require.NoError(t, r.Upsert(s))
	}

	var seen []entity.ID
	r.ForEach(func(s *entity.Ship) bool {
		seen = append(seen, s.ID)
		return true
	})
	assert.Equal(t, []entity.ID{"enemy-0", "enemy-2", "enemy-3", "player"}, seen)

	seen = nil
	r.ForEach(func(s *entity.Ship) bool {
		seen = append(seen, s.ID)
		return len(seen) < 2
	})
	assert.Len(t, seen, 2)

	ai := r.AI()
	assert.Len(t, ai, 3)
	for _, s := range ai {
		assert.False(t, s.PlayerControlled)
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := New()
	require.NoError(t, r.Upsert(entity.NewShip("a", physics.Vector3{}, 1)))
	require.NoError(t, r.Upsert(entity.NewShip("b", physics.Vector3{}, 1)))

	assert.True(t, r.Remove("a"))
	assert.False(t, r.Remove("a"))
	assert.Equal(t, 1, r.Len())

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, entity.ID("b"), snap[0].ID)
}

func TestRegistry_Snapshot_IsCopy(t *testing.T) {
	r := New()
	ship := entity.NewShip("a", physics.Vector3{X: 1}, 1)
	require.NoError(t, r.Upsert(ship))

	snap := r.Snapshot()
	ship.Position = physics.Vector3{X: 99}
	assert.Equal(t, physics.Vector3{X: 1}, snap[0].Position)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := entity.ID(fmt.Sprintf("s-%d-%d", i, j))
				_ = r.Upsert(entity.NewShip(id, physics.Vector3{}, 1))
				r.Snapshot()
				r.Get(id)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 400, r.Len())
}
