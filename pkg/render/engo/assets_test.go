package engo

import (
	"image/color"
	"testing"

	"github.com/EngoEngine/engo/common"
)

func TestRasterize(t *testing.T) {
	pattern := [][]int{
		{0, 1, 0},
		{1, 2, 1},
		{1},
	}

	img := Rasterize(pattern, color.White)

	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 3 {
		t.Fatalf("expected 3x3 image, got %v", img.Bounds())
	}

	tests := []struct {
		name string
		x, y int
		want color.NRGBA
	}{
		{name: "transparent", x: 0, y: 0, want: color.NRGBA{}},
		{name: "hull", x: 1, y: 0, want: color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
		{name: "cockpit", x: 1, y: 1, want: cockpit},
		{name: "short row padded", x: 2, y: 2, want: color.NRGBA{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := img.NRGBAAt(tt.x, tt.y); got != tt.want {
				t.Errorf("pixel (%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestPatterns_AreRectangular(t *testing.T) {
	for kind, pattern := range patterns {
		for i, row := range pattern {
			if len(row) != len(pattern[0]) {
				t.Errorf("%s row %d has %d cells, want %d", kind, i, len(row), len(pattern[0]))
			}
		}
	}
}

func TestSprites_Kind(t *testing.T) {
	sprites := NewSprites("models/fighter.glb", "models/venom.glb")

	tests := []struct {
		model string
		want  SpriteKind
	}{
		{model: "models/fighter.glb", want: SpriteFighter},
		{model: "models/venom.glb", want: SpriteVenom},
		{model: "models/unknown.glb", want: SpriteVenom},
	}
	for _, tt := range tests {
		if got := sprites.Kind(tt.model); got != tt.want {
			t.Errorf("Kind(%q) = %s, want %s", tt.model, got, tt.want)
		}
	}
}

func TestSprites_FallsBackToShapesBeforeLoad(t *testing.T) {
	// Load needs a GL context, so only the fallback is checked here.
	sprites := NewSprites("p", "e")

	if sprites.Loaded() {
		t.Fatal("expected no textures before Load")
	}
	if _, ok := sprites.Ship("p").(common.Triangle); !ok {
		t.Errorf("expected triangle fallback, got %T", sprites.Ship("p"))
	}
	if _, ok := sprites.Beam().(common.Rectangle); !ok {
		t.Errorf("expected rectangle beam, got %T", sprites.Beam())
	}
	ring, ok := sprites.Ring(color.White, 2).(common.Circle)
	if !ok {
		t.Fatalf("expected circle ring, got %T", sprites.Ring(color.White, 2))
	}
	if ring.BorderWidth != 2 {
		t.Errorf("expected a 2px ring outline, got %v", ring.BorderWidth)
	}
}
