package entity

import "time"

const (
	// ExhaustStep is the animation step interval.
	ExhaustStep = 50 * time.Millisecond
	// ExhaustFrames is the length of the animation cycle.
	ExhaustFrames = 360
	exhaustStart  = 16
)

// Exhaust animates a ship's engine glow. The frame winds up while the ship
// moves and back down while it idles.
type Exhaust struct {
	Enabled bool
	Frame   int
	last    time.Time
}

// NewExhaust returns an enabled exhaust at its resting frame.
func NewExhaust() Exhaust {
	return Exhaust{Enabled: true, Frame: exhaustStart}
}

// Update advances the animation by one step if at least ExhaustStep has
// elapsed since the previous step.
func (e *Exhaust) Update(now time.Time, moving bool) {
	if e.last.IsZero() {
		e.last = now
		return
	}
	if now.Sub(e.last) <= ExhaustStep {
		return
	}
	e.last = now

	if moving {
		e.Frame++
		if e.Frame >= ExhaustFrames {
			e.Frame = 0
		}
		return
	}
	e.Frame--
	if e.Frame < 0 {
		e.Frame = 0
	}
}

// Visible reports whether the exhaust should be drawn.
func (e Exhaust) Visible() bool {
	return e.Enabled && e.Frame < ExhaustFrames/2
}

// Angle returns the exhaust sprite rotation in degrees.
func (e Exhaust) Angle() float64 {
	return float64(e.Frame)
}
