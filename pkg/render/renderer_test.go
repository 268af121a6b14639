// pkg/render/renderer_test.go
package render

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opd-ai/go-skirmish/pkg/assets"
	"github.com/opd-ai/go-skirmish/pkg/engine"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/logging"
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

// newCapturingRenderer returns a NullRenderer that logs at debug level into buf.
func newCapturingRenderer(buf *bytes.Buffer) *NullRenderer {
	return NewNullRenderer(logging.NewLoggerWithLevel(buf, slog.LevelDebug))
}

func TestNullRenderer_Present_LogsExpectedMessage(t *testing.T) {
	var buf bytes.Buffer
	renderer := newCapturingRenderer(&buf)

	renderer.Present(engine.FrameState{Frame: 7, Tick: 3})

	output := buf.String()
	if !strings.Contains(output, "Present called") {
		t.Errorf("Expected log to contain 'Present called', got: %s", output)
	}
	if renderer.Frames() != 1 {
		t.Errorf("expected 1 frame, got %d", renderer.Frames())
	}
}

func TestNullRenderer_CreateProjectile_LogsProjectileInformation(t *testing.T) {
	tests := []struct {
		name       string
		projectile *entity.Projectile
		wantHandle bool
		expected   string
	}{
		{
			name: "ValidBeam_ReturnsHandle",
			projectile: entity.NewBeam(entity.AmmoType(0), entity.PlayerID, "enemy-0",
				physics.Vector3{}, physics.Vector3{X: 1}, 3, time.Unix(0, 0)),
			wantHandle: true,
			expected:   "CreateProjectile called",
		},
		{
			name:       "NilProjectile_HandlesGracefully",
			projectile: nil,
			wantHandle: false,
			expected:   "nil projectile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			renderer := newCapturingRenderer(&buf)

			h := renderer.CreateProjectile(tt.projectile)

			if (h != nil) != tt.wantHandle {
				t.Errorf("expected handle=%v, got %v", tt.wantHandle, h)
			}
			if !strings.Contains(buf.String(), tt.expected) {
				t.Errorf("Expected log to contain %q, got: %s", tt.expected, buf.String())
			}
		})
	}
}

func TestNullRenderer_Load_ReturnsHandle(t *testing.T) {
	renderer := NewNullRenderer(logging.Discard())

	h, err := renderer.Load(context.Background(), assets.Request{ID: "enemy-1", Model: "models/venom.glb"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h == nil {
		t.Fatal("expected a handle")
	}
	if renderer.Live() != 1 {
		t.Errorf("expected 1 live handle, got %d", renderer.Live())
	}
}

func TestNullRenderer_Load_CancelledContext(t *testing.T) {
	renderer := NewNullRenderer(logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, err := renderer.Load(ctx, assets.Request{ID: "enemy-1"})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if h != nil {
		t.Errorf("expected no handle, got %v", h)
	}
}

func TestNullRenderer_Release_IsCountedOnce(t *testing.T) {
	renderer := NewNullRenderer(logging.Discard())
	h, _ := renderer.Load(context.Background(), assets.Request{ID: entity.PlayerID})

	h.SetTransform(physics.Vector3{X: 1}, physics.Vector3{Z: -1})
	h.Release()
	h.Release()

	if renderer.Live() != 0 {
		t.Errorf("expected 0 live handles, got %d", renderer.Live())
	}
}

func TestNullRenderer_ConcurrentUsage_ThreadSafe(t *testing.T) {
	renderer := NewNullRenderer(logging.Discard())
	const numGoroutines = 10
	const numOperations = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				p := entity.NewBeam(entity.AmmoType(0), entity.PlayerID, "enemy-0",
					physics.Vector3{}, physics.Vector3{X: 1}, 3, time.Unix(0, 0))
				h := renderer.CreateProjectile(p)
				renderer.Present(engine.FrameState{})
				h.Release()
			}
		}()
	}

	wg.Wait()

	if got := renderer.Frames(); got != numGoroutines*numOperations {
		t.Errorf("expected %d frames, got %d", numGoroutines*numOperations, got)
	}
	if renderer.Live() != 0 {
		t.Errorf("expected 0 live handles, got %d", renderer.Live())
	}
}

func TestNullRenderer_DrivesSession(t *testing.T) {
	renderer := NewNullRenderer(logging.Discard())
	world, err := engine.NewWorld(testConfig(), nil, logging.Discard())
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	session := engine.NewSession(world, engine.Deps{
		View:      newTestView(),
		Renderer:  renderer,
		Presenter: renderer,
		Logger:    logging.Discard(),
	})

	state := session.Frame(time.Unix(100, 0))

	if renderer.Frames() != 1 {
		t.Errorf("expected 1 presented frame, got %d", renderer.Frames())
	}
	if len(state.Ships) != world.Registry().Len() {
		t.Errorf("expected %d ships, got %d", world.Registry().Len(), len(state.Ships))
	}
}
