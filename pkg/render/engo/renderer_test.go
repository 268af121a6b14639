package engo

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-skirmish/pkg/assets"
	"github.com/opd-ai/go-skirmish/pkg/config"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/logging"
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

func newTestRenderer() (*Renderer, *CameraSystem) {
	cam := NewCameraSystem(75, 800, 600)
	return NewRenderer(cam, NewSprites("models/fighter.glb", "models/venom.glb"), logging.Discard()), cam
}

func TestRenderer_Load_CreatesHiddenSprite(t *testing.T) {
	r, _ := newTestRenderer()

	tests := []struct {
		name string
		id   entity.ID
		tint interface{}
	}{
		{name: "player", id: entity.PlayerID, tint: playerTint},
		{name: "enemy", id: "enemy-0", tint: enemyTint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := r.Load(context.Background(), assets.Request{ID: tt.id, Model: "models/fighter.glb"})
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			s, ok := h.(*Sprite)
			if !ok {
				t.Fatalf("expected *Sprite, got %T", h)
			}
			if !s.Hidden {
				t.Error("expected sprite hidden until its first transform")
			}
			if s.Color != tt.tint {
				t.Errorf("expected tint %v, got %v", tt.tint, s.Color)
			}
			if s.Width != shipSize || s.Height != shipSize {
				t.Errorf("expected %dx%d sprite, got %vx%v", shipSize, shipSize, s.Width, s.Height)
			}
		})
	}

	if r.Live() != 2 {
		t.Errorf("expected 2 live sprites, got %d", r.Live())
	}
}

func TestRenderer_Load_CancelledContext(t *testing.T) {
	r, _ := newTestRenderer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Load(ctx, assets.Request{ID: "enemy-0"}); err == nil {
		t.Error("expected error for cancelled context")
	}
	if r.Live() != 0 {
		t.Errorf("expected no sprites, got %d", r.Live())
	}
}

func TestRenderer_Flush_AppliesTransform(t *testing.T) {
	r, cam := newTestRenderer()
	h, _ := r.Load(context.Background(), assets.Request{ID: "enemy-0"})
	s := h.(*Sprite)
	pos := physics.Vector3{X: 20, Z: -10}

	h.SetTransform(pos, physics.Vector3{X: 1})
	r.Flush()

	if s.Hidden {
		t.Error("expected sprite visible after transform")
	}
	want := cam.WorldToScreen(pos)
	got := s.Center()
	if math.Abs(float64(got.X-want.X)) > 0.01 || math.Abs(float64(got.Y-want.Y)) > 0.01 {
		t.Errorf("expected center %v, got %v", want, got)
	}
	if math.Abs(float64(s.Rotation-90)) > 1e-3 {
		t.Errorf("expected rotation 90, got %v", s.Rotation)
	}
}

func TestRenderer_Flush_RemovesReleasedSprites(t *testing.T) {
	r, _ := newTestRenderer()
	h, _ := r.Load(context.Background(), assets.Request{ID: "enemy-0"})
	keep, _ := r.Load(context.Background(), assets.Request{ID: "enemy-1"})

	h.Release()
	h.Release()
	r.Flush()

	if r.Live() != 1 {
		t.Errorf("expected 1 live sprite, got %d", r.Live())
	}
	if _, ok := r.Sprite(keep.(*Sprite).ID()); !ok {
		t.Error("expected unreleased sprite to stay")
	}
}

func TestRenderer_CreateProjectile(t *testing.T) {
	r, _ := newTestRenderer()
	now := time.Unix(0, 0)

	if r.CreateProjectile(nil) != nil {
		t.Error("expected nil handle for nil projectile")
	}

	beam := entity.NewBeam(entity.AmmoType(1), entity.PlayerID, "enemy-0", physics.Vector3{}, physics.Vector3{X: 1}, 3, now)
	bs := r.CreateProjectile(beam).(*Sprite)
	if _, ok := bs.Drawable.(common.Rectangle); !ok {
		t.Errorf("expected rectangle beam, got %T", bs.Drawable)
	}
	if bs.Color != rgb(beam.Kind.Color()) {
		t.Errorf("expected beam color %v, got %v", rgb(beam.Kind.Color()), bs.Color)
	}

	ring := entity.NewRing(entity.RingAmmo, entity.PlayerID, "enemy-0", physics.Vector3{}, physics.Vector3{X: 1}, now)
	rs := r.CreateProjectile(ring).(*Sprite)
	circle, ok := rs.Drawable.(common.Circle)
	if !ok {
		t.Fatalf("expected circle ring, got %T", rs.Drawable)
	}
	if circle.BorderColor != rgb(ring.Kind.Color()) {
		t.Errorf("expected ring outline %v, got %v", rgb(ring.Kind.Color()), circle.BorderColor)
	}
	if rs.Width != minRingSize {
		t.Errorf("expected an unsized ring to use the minimum size, got %v", rs.Width)
	}
}

func TestRenderer_CreateProjectile_RingSizeFollowsRadius(t *testing.T) {
	r, cam := newTestRenderer()
	cfg := config.DefaultConfig().Combat

	ring := entity.NewRing(entity.RingAmmo, entity.PlayerID, "enemy-0", physics.Vector3{}, physics.Vector3{X: 1}, time.Unix(0, 0))
	ring.Radius, ring.Tube = cfg.RingOuterRadius, cfg.RingTube
	rs := r.CreateProjectile(ring).(*Sprite)

	scale := cam.PixelsPerUnit()
	if scale <= 0 {
		t.Fatalf("expected a positive ground scale, got %v", scale)
	}
	want := float32(2*(cfg.RingOuterRadius+cfg.RingTube)) * scale
	if math.Abs(float64(rs.Width-want)) > 1e-3 || rs.Height != rs.Width {
		t.Errorf("expected %v px ring, got %vx%v", want, rs.Width, rs.Height)
	}

	inner := entity.NewRing(entity.RingAmmo, entity.PlayerID, "enemy-0", physics.Vector3{}, physics.Vector3{X: 1}, time.Unix(0, 0))
	inner.Radius, inner.Tube = cfg.RingInnerRadius, cfg.RingTube
	if is := r.CreateProjectile(inner).(*Sprite); is.Width >= rs.Width {
		t.Errorf("expected the inner ring smaller than the outer, got %v >= %v", is.Width, rs.Width)
	}
}

func TestRGB(t *testing.T) {
	c := rgb(0x3fe3c8)
	if c.R != 0x3f || c.G != 0xe3 || c.B != 0xc8 || c.A != 255 {
		t.Errorf("unexpected color %v", c)
	}
}
