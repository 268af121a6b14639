// pkg/render/engo/hud.go
package engo

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/opd-ai/go-skirmish/pkg/engine"
	"github.com/opd-ai/go-skirmish/pkg/entity"
	"github.com/opd-ai/go-skirmish/pkg/input"
)

// HUDHeight is the height in pixels of the status band at the top of the
// window. Pointer events over it are UI chrome.
const HUDHeight = 28

const fontURL = "skirmish-hud.ttf"

// hudEntity is a text or shape drawn by the HUD.
type hudEntity struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

// HUDSystem draws the status band, the selection marker and the ship name
// tags.
type HUDSystem struct {
	camera *CameraSystem
	render *common.RenderSystem
	font   *common.Font

	status    string
	attacking bool
	labels    map[entity.ID]engine.Label
	selection *engine.FrameState

	band   *hudEntity
	text   *hudEntity
	marker *hudEntity
	tags   map[entity.ID]*hudEntity

	hudColor    color.Color
	attackColor color.Color
	labelColor  color.Color
}

// NewHUDSystem creates a new HUD system
func NewHUDSystem(cam *CameraSystem) *HUDSystem {
	return &HUDSystem{
		camera:      cam,
		labels:      make(map[entity.ID]engine.Label),
		tags:        make(map[entity.ID]*hudEntity),
		hudColor:    color.RGBA{200, 200, 200, 255},
		attackColor: color.RGBA{255, 60, 60, 255},
		labelColor:  color.RGBA{140, 140, 255, 255},
	}
}

// StatusLine summarizes the combat state of a frame.
func StatusLine(state engine.FrameState) string {
	mode := "idle"
	if state.Attacking {
		mode = "ATTACK"
	}
	target := "-"
	if state.HasSelection {
		target = string(state.Selected)
	}
	return fmt.Sprintf("%s | ammo %d:%s | target %s | tick %d",
		mode, state.Ammo.Slot(), state.Ammo, target, state.Tick)
}

// Region classifies a window position for input routing.
func (hud *HUDSystem) Region(x, y float32) input.Region {
	if y < HUDHeight {
		return input.RegionChrome
	}
	return input.RegionWorld
}

// Status returns the current status line.
func (hud *HUDSystem) Status() string { return hud.status }

// Labels returns the visible name tags of the last frame.
func (hud *HUDSystem) Labels() map[entity.ID]engine.Label { return hud.labels }

// Present records the HUD content of a frame.
func (hud *HUDSystem) Present(state engine.FrameState) {
	hud.status = StatusLine(state)
	hud.attacking = state.Attacking

	clear(hud.labels)
	for _, l := range state.Labels {
		if l.Visible {
			hud.labels[l.ShipID] = l
		}
	}

	if state.HasSelection {
		s := state
		hud.selection = &s
	} else {
		hud.selection = nil
	}
}

// Attach creates the HUD entities in rs. The font needs a GL context.
func (hud *HUDSystem) Attach(rs *common.RenderSystem) error {
	hud.render = rs
	if err := engo.Files.LoadReaderData(fontURL, bytes.NewReader(goregular.TTF)); err != nil {
		return fmt.Errorf("failed to load HUD font: %w", err)
	}
	hud.font = &common.Font{URL: fontURL, FG: color.White, Size: 16}
	if err := hud.font.CreatePreloaded(); err != nil {
		return fmt.Errorf("failed to create HUD font: %w", err)
	}

	hud.band = hud.add(common.Rectangle{}, color.RGBA{0, 0, 0, 160}, engo.Point{}, engo.GameWidth(), HUDHeight)
	hud.text = hud.add(common.Text{Font: hud.font}, hud.hudColor, engo.Point{X: 8, Y: 6}, 0, 0)
	hud.marker = hud.add(common.Circle{BorderWidth: 2, BorderColor: color.RGBA{255, 255, 64, 255}},
		color.Transparent, engo.Point{}, 34, 34)
	hud.marker.Hidden = true
	return nil
}

func (hud *HUDSystem) add(d common.Drawable, c color.Color, pos engo.Point, width, height float32) *hudEntity {
	e := &hudEntity{
		BasicEntity:     ecs.NewBasic(),
		RenderComponent: common.RenderComponent{Drawable: d, Color: c},
		SpaceComponent:  common.SpaceComponent{Position: pos, Width: width, Height: height},
	}
	e.SetZIndex(10)
	e.SetShader(common.HUDShader)
	hud.render.Add(&e.BasicEntity, &e.RenderComponent, &e.SpaceComponent)
	return e
}

// Remove satisfies the ecs.System interface
func (hud *HUDSystem) Remove(basic ecs.BasicEntity) {}

// Update draws the last presented frame.
func (hud *HUDSystem) Update(dt float32) {
	if hud.render == nil || hud.font == nil {
		return
	}

	hud.band.Width = engo.GameWidth()
	hud.text.Drawable = common.Text{Font: hud.font, Text: hud.status}
	hud.text.Color = hud.hudColor
	if hud.attacking {
		hud.text.Color = hud.attackColor
	}

	if hud.selection != nil {
		hud.marker.SetCenter(hud.camera.WorldToScreen(hud.selection.SelectionPosition))
		hud.marker.Hidden = false
	} else {
		hud.marker.Hidden = true
	}

	for id, tag := range hud.tags {
		if _, ok := hud.labels[id]; !ok {
			hud.render.Remove(tag.BasicEntity)
			delete(hud.tags, id)
		}
	}
	for id, l := range hud.labels {
		tag, ok := hud.tags[id]
		if !ok {
			tag = &hudEntity{
				BasicEntity:     ecs.NewBasic(),
				RenderComponent: common.RenderComponent{Color: hud.labelColor},
			}
			tag.SetZIndex(5)
			hud.render.Add(&tag.BasicEntity, &tag.RenderComponent, &tag.SpaceComponent)
			hud.tags[id] = tag
		}
		tag.Drawable = common.Text{Font: hud.font, Text: l.Text}
		pos := hud.camera.WorldToScreen(l.Position)
		tag.Position = engo.Point{X: pos.X + 16, Y: pos.Y - 20}
	}
}
