// pkg/render/engo/renderer.go
package engo

import (
	"context"
	"image/color"
	"sync"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-skirmish/pkg/assets"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/logging"
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

// Sprite sizes in pixels.
const (
	shipSize    = 24
	minRingSize = 4
	beamWidth   = 3
	beamLength  = 12
)

var (
	playerTint = color.RGBA{120, 255, 120, 255}
	enemyTint  = color.RGBA{255, 110, 110, 255}
)

// Sprite is a renderable in the engo world and the entity.Handle the
// simulation moves. Transforms are recorded from any goroutine and applied
// to the components by Renderer.Flush on the engo thread.
type Sprite struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent

	mu       sync.Mutex
	name     string
	position physics.Vector3
	facing   physics.Vector3
	dirty    bool
	released bool
	added    bool
}

// SetTransform implements entity.Handle.
func (s *Sprite) SetTransform(position, facing physics.Vector3) {
	s.mu.Lock()
	s.position, s.facing = position, facing
	s.dirty = true
	s.mu.Unlock()
}

// Release implements entity.Handle.
func (s *Sprite) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}

// Renderer creates sprites for ships and projectiles and keeps them in the
// engo render system.
type Renderer struct {
	camera  *CameraSystem
	sprites *Sprites
	logger  *logging.Logger

	mu     sync.Mutex
	render *common.RenderSystem
	live   map[uint64]*Sprite
}

// NewRenderer creates a renderer drawing through cam.
func NewRenderer(cam *CameraSystem, sprites *Sprites, logger *logging.Logger) *Renderer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Renderer{
		camera:  cam,
		sprites: sprites,
		logger:  logger,
		live:    make(map[uint64]*Sprite),
	}
}

// Attach sets the render system sprites are added to.
func (r *Renderer) Attach(rs *common.RenderSystem) {
	r.mu.Lock()
	r.render = rs
	r.mu.Unlock()
}

// Load implements assets.Loader. Ship sprites are generated, so loading
// never fails.
func (r *Renderer) Load(ctx context.Context, req assets.Request) (entity.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tint := enemyTint
	if req.ID == entity.PlayerID {
		tint = playerTint
	}
	s := r.newSprite(string(req.ID), r.sprites.Ship(req.Model), tint, shipSize, shipSize)
	r.logger.Debug(ctx, "ship sprite created", "ship_id", req.ID, "model", req.Model, "kind", r.sprites.Kind(req.Model))
	return s, nil
}

// CreateProjectile implements entity.Renderer.
func (r *Renderer) CreateProjectile(p *entity.Projectile) entity.Handle {
	if p == nil {
		return nil
	}
	tint := rgb(p.Kind.Color())
	if p.Shape == entity.ShapeRing {
		scale := r.camera.PixelsPerUnit()
		size := max(float32(2*(p.Radius+p.Tube))*scale, minRingSize)
		border := max(float32(2*p.Tube)*scale, 1)
		return r.newSprite(string(p.ID), r.sprites.Ring(tint, border), color.Transparent, size, size)
	}
	return r.newSprite(string(p.ID), r.sprites.Beam(), tint, beamWidth, beamLength)
}

func (r *Renderer) newSprite(name string, drawable common.Drawable, tint color.Color, width, height float32) *Sprite {
	s := &Sprite{
		BasicEntity: ecs.NewBasic(),
		RenderComponent: common.RenderComponent{
			Drawable: drawable,
			Color:    tint,
			Hidden:   true,
		},
		SpaceComponent: common.SpaceComponent{Width: width, Height: height},
		name:           name,
	}
	r.mu.Lock()
	r.live[s.ID()] = s
	r.mu.Unlock()
	return s
}

// Flush applies recorded transforms to the sprite components, adds new
// sprites to the render system and removes released ones. It must run on
// the engo thread.
func (r *Renderer) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.live {
		s.mu.Lock()
		released, dirty := s.released, s.dirty
		position, facing := s.position, s.facing
		s.dirty = false
		s.mu.Unlock()

		if released {
			if s.added && r.render != nil {
				r.render.Remove(s.BasicEntity)
			}
			delete(r.live, id)
			continue
		}
		if !s.added && r.render != nil {
			r.render.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
			s.added = true
		}
		if dirty {
			s.SpaceComponent.Rotation = r.camera.ScreenRotation(position, facing)
			s.SpaceComponent.SetCenter(r.camera.WorldToScreen(position))
			s.RenderComponent.Hidden = false
		}
	}
}

// Live returns the number of sprites not yet removed.
func (r *Renderer) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Sprite returns the live sprite with the given entity ID.
func (r *Renderer) Sprite(id uint64) (*Sprite, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.live[id]
	return s, ok
}

// Center returns the screen center of a sprite.
func (s *Sprite) Center() engo.Point { return s.SpaceComponent.Center() }

func rgb(c uint32) color.RGBA {
	return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 255}
}

var (
	_ entity.Renderer = (*Renderer)(nil)
	_ assets.Loader   = (*Renderer)(nil)
	_ entity.Handle   = (*Sprite)(nil)
)
