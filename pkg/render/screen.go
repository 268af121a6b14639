// pkg/render/screen.go
package render

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-skirmish/pkg/engine"
	"github.com/opd-ai/go-skirmish/pkg/input"
	"github.com/opd-ai/go-skirmish/pkg/logging"
)

// WheelStep is the zoom delta of one wheel notch.
const WheelStep = 100.0

// InputHandler consumes translated input. engine.Session implements it.
type InputHandler interface {
	HandlePointer(input.PointerEvent) bool
	HandleKey(input.KeyEvent) bool
	HandleWheel(input.WheelEvent) bool
}

// Screen is the interactive terminal front-end. It presents frames through
// a TerminalRenderer and turns tcell events into input events.
type Screen struct {
	screen tcell.Screen
	term   *TerminalRenderer
	logger *logging.Logger

	mu      sync.Mutex
	buttons tcell.ButtonMask
	alt     bool
	lastX   int
	lastY   int

	// attackRepeat is the window in which a further attack press counts as
	// auto-repeat of a held key. Zero keeps every press.
	attackRepeat time.Duration
	lastAttack   time.Time
	clock        func() time.Time

	// resize holds a terminal size waiting for the next Present.
	resize atomic.Pointer[[2]int]
}

// NewScreen wraps a tcell screen. Call Init before use.
func NewScreen(screen tcell.Screen, term *TerminalRenderer, logger *logging.Logger) *Screen {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Screen{screen: screen, term: term, logger: logger, clock: time.Now}
}

// SetAttackRepeat sets the auto-repeat window for the attack keys. Presses
// arriving within window of the previous one are dropped and extend it.
func (s *Screen) SetAttackRepeat(window time.Duration) {
	s.mu.Lock()
	s.attackRepeat = window
	s.mu.Unlock()
}

// Init initializes the terminal and enables mouse reporting.
func (s *Screen) Init() error {
	if err := s.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	s.screen.EnableMouse()
	s.screen.HideCursor()
	s.screen.Clear()
	width, height := s.screen.Size()
	s.term.Resize(width, height)
	return nil
}

// Fini restores the terminal.
func (s *Screen) Fini() {
	s.screen.Fini()
}

// Terminal returns the grid renderer.
func (s *Screen) Terminal() *TerminalRenderer { return s.term }

// Present implements engine.Presenter.
func (s *Screen) Present(state engine.FrameState) {
	if size := s.resize.Swap(nil); size != nil {
		s.term.Resize(size[0], size[1])
		s.screen.Sync()
	}
	s.term.Draw(state)
	s.term.Each(func(x, y int, c Cell) {
		style := tcell.StyleDefault
		if c.Color != 0 {
			style = style.Foreground(tcell.NewHexColor(int32(c.Color)))
		}
		s.screen.SetContent(x, y, c.Rune, nil, style)
	})
	s.screen.Show()
}

// Translate converts a tcell event into input events. quit is set for the
// quit keys.
func (s *Screen) Translate(ev tcell.Event) (events []any, quit bool) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return s.translateKey(ev.Key(), ev.Rune(), ev.Modifiers())
	case *tcell.EventMouse:
		x, y := ev.Position()
		return s.translateMouse(x, y, ev.Buttons(), ev.Modifiers()), false
	case *tcell.EventResize:
		// Applied by the next Present so the projector only changes on
		// the frame goroutine.
		width, height := ev.Size()
		s.resize.Store(&[2]int{width, height})
	}
	return nil, false
}

// translateKey maps a key press. Terminals report no key releases, so every
// mapped key is a press.
func (s *Screen) translateKey(key tcell.Key, ch rune, mod tcell.ModMask) ([]any, bool) {
	down := func(k input.Key) []any {
		return []any{input.KeyEvent{Key: k, Down: true, Region: input.RegionWorld}}
	}

	switch key {
	case tcell.KeyCtrlC:
		return nil, true
	case tcell.KeyEscape:
		return down(input.KeyEscape), false
	case tcell.KeyTab, tcell.KeyCtrlSpace:
		return s.attackPress(), false
	case tcell.KeyRune:
		switch {
		case ch == 'q':
			return nil, true
		case ch == 'f' || ch == ' ':
			return s.attackPress(), false
		case ch >= '1' && ch <= '9':
			if k := input.DigitKey(int(ch - '0')); k != input.KeyOther {
				return down(k), false
			}
		}
	}
	return nil, false
}

// attackPress returns the attack press unless it repeats a held key.
func (s *Screen) attackPress() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	repeat := s.attackRepeat > 0 && !s.lastAttack.IsZero() && now.Sub(s.lastAttack) < s.attackRepeat
	s.lastAttack = now
	if repeat {
		return nil
	}
	return []any{input.KeyEvent{Key: input.KeyAttack, Down: true, Region: input.RegionWorld}}
}

// translateMouse diffs the button state against the previous mouse event.
// Alt on a mouse event stands in for the modifier key. Releases are
// delivered to the world wherever they happen so a drag or a held steer
// always ends.
func (s *Screen) translateMouse(x, y int, buttons tcell.ButtonMask, mod tcell.ModMask) []any {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []any
	region := s.term.Region(x, y)
	fx, fy := float64(x)+0.5, float64(y)+0.5

	if alt := mod&tcell.ModAlt != 0; alt != s.alt {
		s.alt = alt
		events = append(events, input.KeyEvent{Key: input.KeyModifier, Down: alt, Region: input.RegionWorld})
	}

	if buttons&tcell.WheelUp != 0 {
		events = append(events, input.WheelEvent{Delta: -WheelStep, Region: region})
	}
	if buttons&tcell.WheelDown != 0 {
		events = append(events, input.WheelEvent{Delta: WheelStep, Region: region})
	}

	const pointerButtons = tcell.ButtonPrimary | tcell.ButtonSecondary | tcell.ButtonMiddle
	held := buttons & pointerButtons
	pressed := held &^ s.buttons
	released := s.buttons &^ held
	moved := x != s.lastX || y != s.lastY
	s.buttons, s.lastX, s.lastY = held, x, y

	mapping := []struct {
		mask   tcell.ButtonMask
		button input.Button
	}{
		{tcell.ButtonPrimary, input.ButtonPrimary},
		{tcell.ButtonSecondary, input.ButtonSecondary},
		{tcell.ButtonMiddle, input.ButtonMiddle},
	}

	if moved && pressed == 0 {
		events = append(events, input.PointerEvent{Action: input.PointerMove, X: fx, Y: fy, Region: region})
	}
	for _, m := range mapping {
		if released&m.mask != 0 {
			events = append(events, input.PointerEvent{Action: input.PointerUp, Button: m.button, X: fx, Y: fy, Region: input.RegionWorld})
		}
	}
	for _, m := range mapping {
		if pressed&m.mask != 0 {
			events = append(events, input.PointerEvent{Action: input.PointerDown, Button: m.button, X: fx, Y: fy, Region: region})
		}
	}
	return events
}

// Dispatch translates ev and feeds it to h. It reports whether the user
// asked to quit.
func (s *Screen) Dispatch(ev tcell.Event, h InputHandler) bool {
	events, quit := s.Translate(ev)
	for _, e := range events {
		switch e := e.(type) {
		case input.PointerEvent:
			h.HandlePointer(e)
		case input.KeyEvent:
			h.HandleKey(e)
		case input.WheelEvent:
			h.HandleWheel(e)
		}
	}
	return quit
}

// Run polls terminal events and dispatches them to h until the user quits
// or ctx is cancelled. It does not call Fini.
func (s *Screen) Run(ctx context.Context, h InputHandler) error {
	eventChan := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := s.screen.PollEvent()
			if ev == nil {
				close(eventChan)
				return
			}
			select {
			case eventChan <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-eventChan:
			if !ok {
				return nil
			}
			if s.Dispatch(ev, h) {
				s.logger.Info(ctx, "quit requested")
				return nil
			}
		}
	}
}

var _ engine.Presenter = (*Screen)(nil)
