package render

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/opd-ai/go-skirmish/pkg/assets"
	"github.com/opd-ai/go-skirmish/pkg/camera"
	"github.com/opd-ai/go-skirmish/pkg/engine"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/input"
	"github.com/opd-ai/go-skirmish/pkg/physics"
)

// HUDRows is the number of status rows at the bottom of the grid. They are
// UI chrome: pointer events over them never reach the world.
const HUDRows = 1

// ringRimPoints is how many rim cells a ring is drawn with.
const ringRimPoints = 8

// Glyph colors.
const (
	ColorPlayer    uint32 = 0x40ff40
	ColorEnemy     uint32 = 0xff5050
	ColorSelected  uint32 = 0xffff40
	ColorLabel     uint32 = 0x8080ff
	ColorExhaust   uint32 = 0xff9020
	ColorHUD       uint32 = 0xc0c0c0
	ColorHUDAttack uint32 = 0xff3030
	ColorUnloaded  uint32 = 0x606060
)

// Cell is one character of the grid.
type Cell struct {
	Rune  rune
	Color uint32
}

var blank = Cell{Rune: ' '}

// TerminalRenderer draws frames top-down into a character grid. The world
// occupies every row but the last HUDRows.
type TerminalRenderer struct {
	mu     sync.Mutex
	width  int
	height int
	buffer [][]Cell
	view   *camera.TopDown
}

// NewTerminalRenderer creates a terminal renderer for a width x height grid.
// view projects the world rows; it is resized to match.
func NewTerminalRenderer(width, height int, view *camera.TopDown) *TerminalRenderer {
	r := &TerminalRenderer{view: view}
	r.Resize(width, height)
	return r
}

// View returns the projector of the world rows.
func (r *TerminalRenderer) View() *camera.TopDown { return r.view }

// Resize reallocates the grid.
func (r *TerminalRenderer) Resize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < HUDRows+1 {
		height = HUDRows + 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = width, height
	r.buffer = make([][]Cell, height)
	for i := range r.buffer {
		r.buffer[i] = make([]Cell, width)
	}
	r.clear()
	if r.view != nil {
		r.view.SetViewport(width, height-HUDRows)
	}
}

// Size returns the grid size including the HUD.
func (r *TerminalRenderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

// Region classifies a grid position for input routing.
func (r *TerminalRenderer) Region(x, y int) input.Region {
	r.mu.Lock()
	defer r.mu.Unlock()
	if y >= r.height-HUDRows {
		return input.RegionChrome
	}
	return input.RegionWorld
}

// Clear blanks the grid.
func (r *TerminalRenderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clear()
}

func (r *TerminalRenderer) clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = blank
		}
	}
}

// Cell returns the cell at x, y.
func (r *TerminalRenderer) Cell(x, y int) Cell {
	r.mu.Lock()
	defer r.mu.Unlock()
	if y < 0 || y >= r.height || x < 0 || x >= r.width {
		return blank
	}
	return r.buffer[y][x]
}

// Row returns row y as a string.
func (r *TerminalRenderer) Row(y int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if y < 0 || y >= r.height {
		return ""
	}
	var b strings.Builder
	for _, c := range r.buffer[y] {
		b.WriteRune(c.Rune)
	}
	return b.String()
}

// Each calls fn for every cell in row-major order.
func (r *TerminalRenderer) Each(fn func(x, y int, c Cell)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for y := range r.buffer {
		for x, c := range r.buffer[y] {
			fn(x, y, c)
		}
	}
}

// Draw renders state into the grid. The view must already be aimed for the
// frame, which Session.Frame does before presenting.
func (r *TerminalRenderer) Draw(state engine.FrameState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clear()
	if r.view == nil {
		r.drawHUD(state)
		return
	}

	for _, p := range state.Projectiles {
		r.drawProjectile(p)
	}
	for _, l := range state.Labels {
		if !l.Visible {
			continue
		}
		if x, y, ok := r.worldToScreen(l.Position); ok {
			r.text(x+2, y, l.Text, ColorLabel, r.height-HUDRows)
		}
	}
	// The player goes last so it is never hidden.
	for _, player := range []bool{false, true} {
		for _, s := range state.Ships {
			if s.PlayerControlled == player {
				r.drawShip(s, state.HasSelection && s.ID == state.Selected)
			}
		}
	}
	r.drawHUD(state)
}

// worldToScreen converts world coordinates to grid coordinates of the
// world rows.
func (r *TerminalRenderer) worldToScreen(pos physics.Vector3) (int, int, bool) {
	fx, fy, ok := r.view.WorldToScreen(pos)
	if !ok {
		return 0, 0, false
	}
	x, y := int(math.Floor(fx)), int(math.Floor(fy))
	if x < 0 || x >= r.width || y < 0 || y >= r.height-HUDRows {
		return x, y, false
	}
	return x, y, true
}

func (r *TerminalRenderer) set(x, y int, c Cell) {
	if y < 0 || y >= r.height || x < 0 || x >= r.width {
		return
	}
	r.buffer[y][x] = c
}

// text writes s starting at x, y without crossing into row limit.
func (r *TerminalRenderer) text(x, y int, s string, color uint32, limit int) {
	if y >= limit {
		return
	}
	for _, ch := range s {
		if x >= r.width {
			return
		}
		r.set(x, y, Cell{Rune: ch, Color: color})
		x++
	}
}

func (r *TerminalRenderer) drawShip(s entity.ShipState, selected bool) {
	x, y, ok := r.worldToScreen(s.Position)
	if !ok {
		return
	}

	glyph, color := 'V', ColorEnemy
	if s.PlayerControlled {
		glyph, color = '@', ColorPlayer
		if s.ExhaustVisible {
			r.drawExhaust(s, x, y)
		}
	}
	if !s.Loaded {
		glyph, color = '?', ColorUnloaded
	}
	r.set(x, y, Cell{Rune: glyph, Color: color})

	if selected {
		r.set(x-1, y, Cell{Rune: '[', Color: ColorSelected})
		r.set(x+1, y, Cell{Rune: ']', Color: ColorSelected})
	}
}

// drawExhaust puts a flame one cell behind the ship, opposite its facing.
func (r *TerminalRenderer) drawExhaust(s entity.ShipState, x, y int) {
	ahead := s.Position.Add(s.Facing.Ground().Normalize().Scale(10))
	fx, fy, _ := r.view.WorldToScreen(ahead)
	sx, sy, _ := r.view.WorldToScreen(s.Position)
	dx, dy := fx-sx, fy-sy
	if dx == 0 && dy == 0 {
		return
	}
	stepX, stepY := 0, 0
	if math.Abs(dx) >= math.Abs(dy)/2 {
		stepX = -sign(dx)
	}
	if math.Abs(dy) >= math.Abs(dx)/2 {
		stepY = -sign(dy)
	}
	flames := []rune{'~', '*'}
	r.set(x+stepX, y+stepY, Cell{Rune: flames[s.ExhaustFrame%len(flames)], Color: ColorExhaust})
}

func (r *TerminalRenderer) drawProjectile(p entity.ProjectileState) {
	if p.Shape == entity.ShapeRing {
		r.drawRing(p)
		return
	}

	x0, y0, ok0 := r.worldToScreen(p.Start)
	x1, y1, ok1 := r.worldToScreen(p.End)
	if !ok0 && !ok1 {
		return
	}
	steps := max(abs(x1-x0), abs(y1-y0))
	if steps == 0 {
		r.set(x1, y1, Cell{Rune: '*', Color: p.Color})
		return
	}
	for i := 0; i <= steps; i++ {
		x := x0 + (x1-x0)*i/steps
		y := y0 + (y1-y0)*i/steps
		if y < r.height-HUDRows {
			r.set(x, y, Cell{Rune: '*', Color: p.Color})
		}
	}
}

// drawRing marks the ring's rim on the ground plane around its center.
func (r *TerminalRenderer) drawRing(p entity.ProjectileState) {
	for i := 0; i < ringRimPoints && p.Radius > 0; i++ {
		angle := 2 * math.Pi * float64(i) / ringRimPoints
		rim := p.Position.Add(physics.Vector3{X: math.Cos(angle) * p.Radius, Z: math.Sin(angle) * p.Radius})
		if x, y, ok := r.worldToScreen(rim); ok {
			r.set(x, y, Cell{Rune: '.', Color: p.Color})
		}
	}
	if x, y, ok := r.worldToScreen(p.Position); ok {
		r.set(x, y, Cell{Rune: 'o', Color: p.Color})
	}
}

func (r *TerminalRenderer) drawHUD(state engine.FrameState) {
	row := r.height - HUDRows
	for x := 0; x < r.width; x++ {
		r.set(x, row, Cell{Rune: ' ', Color: ColorHUD})
	}

	mode, color := "idle", ColorHUD
	if state.Attacking {
		mode, color = "ATTACK", ColorHUDAttack
	}
	target := "-"
	if state.HasSelection {
		target = string(state.Selected)
	}
	line := fmt.Sprintf(" %s | ammo %d:%s | target %s | tick %d",
		mode, state.Ammo.Slot(), state.Ammo, target, state.Tick)
	r.text(0, row, line, color, r.height)
}

// CreateProjectile implements entity.Renderer. Projectiles are drawn from
// the frame state, so the handle only tracks ownership.
func (r *TerminalRenderer) CreateProjectile(p *entity.Projectile) entity.Handle {
	if p == nil {
		return nil
	}
	return &cellHandle{}
}

// Load implements assets.Loader. Ships are glyphs and load instantly.
func (r *TerminalRenderer) Load(ctx context.Context, req assets.Request) (entity.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &cellHandle{}, nil
}

type cellHandle struct {
	mu       sync.Mutex
	position physics.Vector3
	facing   physics.Vector3
	released bool
}

func (h *cellHandle) SetTransform(position, facing physics.Vector3) {
	h.mu.Lock()
	h.position, h.facing = position, facing
	h.mu.Unlock()
}

func (h *cellHandle) Release() {
	h.mu.Lock()
	h.released = true
	h.mu.Unlock()
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
