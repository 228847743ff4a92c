// Package grading maps the color-grading selector to a grading mode.
package grading

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Mode selects one of the four lookup tables.
type Mode int

const (
	Neutral Mode = iota
	Cool
	Warm
	Custom
)

// Count is the number of modes.
const Count = 4

// Max is the largest selector value.
const Max float32 = 3

func (m Mode) String() string {
	switch m {
	case Neutral:
		return "neutral"
	case Cool:
		return "cool"
	case Warm:
		return "warm"
	case Custom:
		return "custom"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m is one of the four modes.
func (m Mode) Valid() bool { return m >= Neutral && m <= Custom }

// Selector returns the selector value that picks m.
func (m Mode) Selector() float32 { return float32(m) }

// ModeFor maps a selector value to a mode. The value is clamped to [0, 3],
// NaN counts as 0, and the intervals are half-open: [0,1) is Neutral, [1,2)
// Cool, [2,3) Warm and exactly 3 is Custom.
func ModeFor(selector float32) Mode {
	s := Clamp(selector)
	switch {
	case s < 1:
		return Neutral
	case s < 2:
		return Cool
	case s < 3:
		return Warm
	default:
		return Custom
	}
}

// Clamp limits a selector to [0, Max], mapping NaN to 0.
func Clamp(selector float32) float32 {
	if math32.IsNaN(selector) {
		return 0
	}
	return math32.Max(0, math32.Min(Max, selector))
}

// Parse returns the mode named s.
func Parse(s string) (Mode, error) {
	for m := Neutral; m <= Custom; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("grading: unknown mode %q", s)
}
