// pkg/input/input.go
package input

// Region partitions input events between the 3D world and UI overlays.
type Region int

const (
	// RegionWorld events reach the simulation.
	RegionWorld Region = iota
	// RegionChrome events originate from a UI overlay and are ignored.
	RegionChrome
)

// Button identifies a pointer button
type Button int

const (
	ButtonNone Button = iota
	ButtonPrimary
	ButtonSecondary
	ButtonMiddle
)

// PointerAction is the kind of pointer event
type PointerAction int

const (
	PointerDown PointerAction = iota
	PointerMove
	PointerUp
)

// Key is a logical key the simulation reacts to.
type Key int

const (
	KeyOther Key = iota
	// KeyModifier enables orbit dragging while held.
	KeyModifier
	// KeyAttack toggles the attack state.
	KeyAttack
	// KeyEscape clears the selection.
	KeyEscape
	KeyDigit1
	KeyDigit2
	KeyDigit3
	KeyDigit4
	KeyDigit5
	KeyDigit6
)

// AmmoSlot returns the ammo slot (1-6) bound to k.
func (k Key) AmmoSlot() (int, bool) {
	if k < KeyDigit1 || k > KeyDigit6 {
		return 0, false
	}
	return int(k-KeyDigit1) + 1, true
}

// DigitKey returns the key for slot 1-6, or KeyOther.
func DigitKey(slot int) Key {
	if slot < 1 || slot > 6 {
		return KeyOther
	}
	return KeyDigit1 + Key(slot-1)
}

// PointerEvent is a pointer press, motion or release in screen coordinates.
type PointerEvent struct {
	Action PointerAction
	Button Button
	X, Y   float64
	Region Region
}

// KeyEvent is a key press or release.
type KeyEvent struct {
	Key    Key
	Down   bool
	Region Region
}

// WheelEvent is a scroll; positive Delta zooms out.
type WheelEvent struct {
	Delta  float64
	Region Region
}
