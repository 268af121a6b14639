// pkg/render/engo/input.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-skirmish/pkg/input"
)

// Button names registered with engo.Input.
const (
	buttonOrbit  = "orbit"
	buttonAttack = "attack"
	buttonEscape = "escape"
)

var ammoButtons = [...]string{"ammo1", "ammo2", "ammo3", "ammo4", "ammo5", "ammo6"}

// Handler consumes translated input. engine.Session implements it.
type Handler interface {
	HandlePointer(input.PointerEvent) bool
	HandleKey(input.KeyEvent) bool
	HandleWheel(input.WheelEvent) bool
}

// MouseSample is the engo mouse state of one update.
type MouseSample struct {
	X, Y    float32
	ScrollY float32
	Action  engo.Action
	Button  engo.MouseButton
}

// MouseTranslator turns engo's polled mouse state into pointer events. A
// press or release is reported once even if engo keeps the action set
// across updates.
type MouseTranslator struct {
	region  func(x, y float32) input.Region
	pressed map[engo.MouseButton]bool
	lastX   float32
	lastY   float32
}

// NewMouseTranslator classifies positions with region.
func NewMouseTranslator(region func(x, y float32) input.Region) *MouseTranslator {
	return &MouseTranslator{region: region, pressed: make(map[engo.MouseButton]bool)}
}

// Translate returns the events m implies.
func (t *MouseTranslator) Translate(m MouseSample) []any {
	var events []any
	region := t.region(m.X, m.Y)
	x, y := float64(m.X), float64(m.Y)

	if m.ScrollY != 0 {
		// engo reports positive scroll for wheel up, which zooms in.
		events = append(events, input.WheelEvent{Delta: -float64(m.ScrollY) * 100, Region: region})
	}

	if m.X != t.lastX || m.Y != t.lastY {
		t.lastX, t.lastY = m.X, m.Y
		events = append(events, input.PointerEvent{Action: input.PointerMove, X: x, Y: y, Region: region})
	}

	switch m.Action {
	case engo.Press:
		if !t.pressed[m.Button] {
			t.pressed[m.Button] = true
			events = append(events, input.PointerEvent{Action: input.PointerDown, Button: button(m.Button), X: x, Y: y, Region: region})
		}
	case engo.Release:
		if t.pressed[m.Button] {
			t.pressed[m.Button] = false
			events = append(events, input.PointerEvent{Action: input.PointerUp, Button: button(m.Button), X: x, Y: y, Region: input.RegionWorld})
		}
	}
	return events
}

func button(b engo.MouseButton) input.Button {
	switch b {
	case engo.MouseButtonLeft:
		return input.ButtonPrimary
	case engo.MouseButtonRight:
		return input.ButtonSecondary
	case engo.MouseButtonMiddle:
		return input.ButtonMiddle
	}
	return input.ButtonNone
}

// KeyState is the engo button state of one update.
type KeyState struct {
	OrbitDown     bool
	OrbitUp       bool
	AttackPressed bool
	EscapePressed bool
	// AmmoPressed is the 1-based ammo slot pressed, or 0.
	AmmoPressed int
}

// KeyEvents returns the key events k implies.
func KeyEvents(k KeyState) []input.KeyEvent {
	var events []input.KeyEvent
	add := func(key input.Key, down bool) {
		events = append(events, input.KeyEvent{Key: key, Down: down, Region: input.RegionWorld})
	}
	if k.OrbitDown {
		add(input.KeyModifier, true)
	}
	if k.OrbitUp {
		add(input.KeyModifier, false)
	}
	if k.AttackPressed {
		add(input.KeyAttack, true)
	}
	if k.EscapePressed {
		add(input.KeyEscape, true)
	}
	if key := input.DigitKey(k.AmmoPressed); key != input.KeyOther {
		add(key, true)
	}
	return events
}

// InputSystem feeds engo input to a Handler every update.
type InputSystem struct {
	handler Handler
	mouse   *MouseTranslator
}

// NewInputSystem creates a new input system
func NewInputSystem(handler Handler, region func(x, y float32) input.Region) *InputSystem {
	return &InputSystem{handler: handler, mouse: NewMouseTranslator(region)}
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(basic ecs.BasicEntity) {}

// Update polls engo.Input and dispatches the result.
func (is *InputSystem) Update(dt float32) {
	keys := KeyState{
		OrbitDown:     engo.Input.Button(buttonOrbit).JustPressed(),
		OrbitUp:       engo.Input.Button(buttonOrbit).JustReleased(),
		AttackPressed: engo.Input.Button(buttonAttack).JustPressed(),
		EscapePressed: engo.Input.Button(buttonEscape).JustPressed(),
	}
	for i, name := range ammoButtons {
		if engo.Input.Button(name).JustPressed() {
			keys.AmmoPressed = i + 1
		}
	}
	for _, ev := range KeyEvents(keys) {
		is.handler.HandleKey(ev)
	}

	m := engo.Input.Mouse
	is.Dispatch(MouseSample{X: m.X, Y: m.Y, ScrollY: m.ScrollY, Action: m.Action, Button: m.Button})
}

// Dispatch translates a mouse sample and hands the events to the handler.
func (is *InputSystem) Dispatch(m MouseSample) {
	for _, e := range is.mouse.Translate(m) {
		switch e := e.(type) {
		case input.PointerEvent:
			is.handler.HandlePointer(e)
		case input.WheelEvent:
			is.handler.HandleWheel(e)
		}
	}
}

// SetupInputBindings sets up the key bindings for the sandbox
func SetupInputBindings() {
	engo.Input.RegisterButton(buttonOrbit, engo.KeyLeftAlt, engo.KeyRightAlt)
	engo.Input.RegisterButton(buttonAttack, engo.KeyLeftControl, engo.KeyRightControl)
	engo.Input.RegisterButton(buttonEscape, engo.KeyEscape)

	keys := []engo.Key{engo.KeyOne, engo.KeyTwo, engo.KeyThree, engo.KeyFour, engo.KeyFive, engo.KeySix}
	for i, key := range keys {
		engo.Input.RegisterButton(ammoButtons[i], key)
	}
}
