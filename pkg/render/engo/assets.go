// pkg/render/engo/assets.go
package engo

import (
	"image"
	"image/color"
	"sync"

	"github.com/EngoEngine/engo/common"
)

// SpriteKind names a generated sprite.
type SpriteKind string

const (
	SpriteFighter SpriteKind = "fighter"
	SpriteVenom   SpriteKind = "venom"
)

// Pixel patterns: 1 is hull, 2 is cockpit. The nose points up.
var patterns = map[SpriteKind][][]int{
	SpriteFighter: {
		{0, 0, 0, 0, 0, 0, 0, 1, 1, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 0, 1, 2, 2, 1, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 1, 1, 2, 2, 1, 1, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0},
		{0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0},
		{0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0},
		{0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0},
		{1, 1, 1, 0, 1, 1, 1, 1, 1, 1, 1, 1, 0, 1, 1, 1},
		{1, 1, 0, 0, 0, 1, 1, 1, 1, 1, 1, 0, 0, 0, 1, 1},
		{1, 0, 0, 0, 0, 0, 1, 1, 1, 1, 0, 0, 0, 0, 0, 1},
		{0, 0, 0, 0, 0, 0, 1, 0, 0, 1, 0, 0, 0, 0, 0, 0},
	},
	SpriteVenom: {
		{1, 0, 0, 0, 0, 0, 0, 1, 1, 0, 0, 0, 0, 0, 0, 1},
		{1, 1, 0, 0, 0, 0, 1, 1, 1, 1, 0, 0, 0, 0, 1, 1},
		{1, 1, 1, 0, 0, 0, 1, 2, 2, 1, 0, 0, 0, 1, 1, 1},
		{0, 1, 1, 1, 0, 1, 1, 2, 2, 1, 1, 0, 1, 1, 1, 0},
		{0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0},
		{0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0},
		{0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0},
		{0, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0},
		{0, 0, 0, 1, 1, 0, 1, 1, 1, 1, 0, 1, 1, 0, 0, 0},
		{0, 0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0, 0, 0, 0},
	},
}

var cockpit = color.NRGBA{R: 160, G: 220, B: 255, A: 255}

// Rasterize paints a pixel pattern with hull as the body color.
func Rasterize(pattern [][]int, hull color.Color) *image.NRGBA {
	height := len(pattern)
	width := 0
	for _, row := range pattern {
		width = max(width, len(row))
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y, row := range pattern {
		for x, v := range row {
			switch v {
			case 1:
				img.Set(x, y, hull)
			case 2:
				img.Set(x, y, cockpit)
			}
		}
	}
	return img
}

// Sprites builds and caches textures for ship models. Textures need a GL
// context, so Load runs from Scene.Preload; until then shapes stand in.
type Sprites struct {
	mu       sync.RWMutex
	textures map[SpriteKind]common.Drawable
	models   map[string]SpriteKind
}

// NewSprites maps the configured model paths to sprite kinds.
func NewSprites(playerModel, enemyModel string) *Sprites {
	return &Sprites{
		textures: make(map[SpriteKind]common.Drawable),
		models: map[string]SpriteKind{
			playerModel: SpriteFighter,
			enemyModel:  SpriteVenom,
		},
	}
}

// Kind returns the sprite kind drawn for a model path.
func (s *Sprites) Kind(model string) SpriteKind {
	if kind, ok := s.models[model]; ok {
		return kind
	}
	return SpriteVenom
}

// Load uploads every pattern as a texture.
func (s *Sprites) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for kind, pattern := range patterns {
		img := Rasterize(pattern, color.White)
		s.textures[kind] = common.NewTextureSingle(common.NewImageObject(img))
	}
}

// Loaded reports whether textures are available.
func (s *Sprites) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.textures) > 0
}

// Ship returns the drawable for a model path.
func (s *Sprites) Ship(model string) common.Drawable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tex, ok := s.textures[s.Kind(model)]; ok {
		return tex
	}
	return common.Triangle{}
}

// Beam returns the drawable for a beam segment.
func (s *Sprites) Beam() common.Drawable { return common.Rectangle{} }

// Ring returns the outline drawable for a ring of the given color and
// outline width in pixels.
func (s *Sprites) Ring(c color.Color, border float32) common.Drawable {
	return common.Circle{BorderWidth: border, BorderColor: c}
}
