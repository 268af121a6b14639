// pkg/engine/world_test.go
package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-skirmish/pkg/config"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

func TestNewWorld_InitialPopulation(t *testing.T) {
	w := newTestWorld(t)
	cfg := w.Config

	require.Equal(t, cfg.World.AIShips+1, w.Registry().Len())

	ai := w.Registry().AI()
	require.Len(t, ai, 5)
	for i, ship := range ai {
		assert.Equal(t, entity.ID(fmt.Sprintf("enemy-%d", i)), ship.ID)
		assert.Equal(t, fmt.Sprintf("-=[ Venom %d ]=-", i), ship.Username)
		assert.Equal(t, cfg.Assets.EnemyModel, ship.Model)
		assert.Equal(t, 1.0, ship.MoveSpeed)
		assert.LessOrEqual(t, ship.Position.X, 250.0)
		assert.GreaterOrEqual(t, ship.Position.X, -250.0)
		assert.LessOrEqual(t, ship.Position.Z, 250.0)
		assert.GreaterOrEqual(t, ship.Position.Z, -250.0)

		r := ship.TargetPosition.Length()
		assert.GreaterOrEqual(t, r, 350.0-1e-9)
		assert.LessOrEqual(t, r, 500.0+1e-9)
		assert.Zero(t, ship.TargetPosition.Y)
		assert.False(t, ship.HasHandle())
	}

	player := w.Player()
	require.NotNil(t, player)
	assert.Equal(t, entity.PlayerID, player.ID)
	assert.Equal(t, "[DEV] Omni", player.DisplayName())
	assert.Equal(t, physics.Zero, player.Position)
	assert.Equal(t, player.Position, player.TargetPosition)
}

func TestNewWorld_SeedIsDeterministic(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.World.Seed = 42

	a, err := NewWorld(cfg, nil, nil)
	require.NoError(t, err)
	b, err := NewWorld(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Snapshot(), b.Snapshot())
}

func TestNewWorld_InvalidSpeed(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.World.AIMoveSpeed = 0
	_, err := NewWorld(cfg, nil, nil)
	assert.Error(t, err)
}

func TestWorld_StepAIMovesOnlyAIShips(t *testing.T) {
	w := newTestWorld(t)
	before := w.Snapshot()

	assert.Equal(t, 5, w.StepAI())

	after := w.Snapshot()
	for i := range before {
		if before[i].PlayerControlled {
			assert.Equal(t, before[i].Position, after[i].Position)
			continue
		}
		moved := before[i].Position.Distance(after[i].Position)
		assert.InDelta(t, 1.0, moved, 1e-9, "ship %s", before[i].ID)
	}
}

func TestWorld_StepAIWithoutHandles(t *testing.T) {
	w := newTestWorld(t)
	for i := 0; i < 10; i++ {
		w.StepAI()
	}
	for _, s := range w.Registry().AI() {
		assert.False(t, s.HasHandle())
		assert.True(t, s.Moved)
	}
}

func TestWorld_Attach(t *testing.T) {
	w := newTestWorld(t)
	h := &recordingHandle{}
	w.Update(func() {
		assert.True(t, w.attach("enemy-0", h))
	})
	transforms, _ := h.counts()
	assert.Equal(t, 1, transforms, "attach syncs the new handle")

	dup := &recordingHandle{}
	orphan := &recordingHandle{}
	w.Update(func() {
		assert.False(t, w.attach("enemy-0", dup))
		assert.False(t, w.attach("ghost", orphan))
	})
	_, released := dup.counts()
	assert.Equal(t, 1, released)
	_, released = orphan.counts()
	assert.Equal(t, 1, released)

	w.Update(func() { assert.Equal(t, 1, w.releaseHandles()) })
	_, released = h.counts()
	assert.Equal(t, 1, released)
}
