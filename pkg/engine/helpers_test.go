package engine

import (
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-skirmish/pkg/camera"
	"github.com/opd-ai/go-skirmish/pkg/config"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

type recordingHandle struct {
	mu         sync.Mutex
	transforms int
	position   physics.Vector3
	released   int
}

func (h *recordingHandle) SetTransform(position, facing physics.Vector3) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transforms++
	h.position = position
}

func (h *recordingHandle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.released++
}

func (h *recordingHandle) counts() (transforms, released int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transforms, h.released
}

type projectileRenderer struct {
	created []*recordingHandle
}

func (r *projectileRenderer) CreateProjectile(*entity.Projectile) entity.Handle {
	h := &recordingHandle{}
	r.created = append(r.created, h)
	return h
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

const viewSize = 200

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := NewWorld(config.DefaultConfig(), rand.New(rand.NewPCG(1, 2)), nil)
	require.NoError(t, err)
	return w
}

func newTestView() *camera.TopDown {
	return camera.NewTopDown(75, 1, viewSize, viewSize)
}

// place moves a ship and parks it on its own target so steering leaves it
// alone between ticks.
func place(t *testing.T, w *World, id entity.ID, pos physics.Vector3) *entity.Ship {
	t.Helper()
	ship, ok := w.Registry().Get(id)
	require.True(t, ok, "ship %s", id)
	w.Update(func() {
		ship.Position = pos
		ship.TargetPosition = pos
	})
	return ship
}

// attachAll gives every ship a recording handle.
func attachAll(w *World) map[entity.ID]*recordingHandle {
	handles := make(map[entity.ID]*recordingHandle)
	w.Update(func() {
		w.Registry().ForEach(func(s *entity.Ship) bool {
			h := &recordingHandle{}
			handles[s.ID] = h
			w.attach(s.ID, h)
			return true
		})
	})
	return handles
}

// screenOf returns where view draws a world point.
func screenOf(view *camera.TopDown, p physics.Vector3) (float64, float64) {
	x, y, _ := view.WorldToScreen(p)
	return x, y
}
