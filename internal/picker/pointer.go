// Package picker implements direct manipulation of a colour through a
// saturation/brightness plane and a hue axis.
package picker

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/swatch/internal/sampler"
)

// Phase is the stage of a pointer gesture. Mouse and touch input both map onto it.
type Phase int

const (
	// PhaseDown starts a gesture.
	PhaseDown Phase = iota
	// PhaseMove continues a gesture.
	PhaseMove
	// PhaseUp ends a gesture normally.
	PhaseUp
	// PhaseLeave ends a gesture because the pointer left the surface or was cancelled.
	PhaseLeave
)

// String returns the wire name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseDown:
		return "down"
	case PhaseMove:
		return "move"
	case PhaseUp:
		return "up"
	case PhaseLeave:
		return "leave"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase parses a wire phase name. Browser event names are accepted as aliases.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(s) {
	case "down", "pointerdown", "mousedown", "touchstart":
		return PhaseDown, nil
	case "move", "pointermove", "mousemove", "touchmove":
		return PhaseMove, nil
	case "up", "pointerup", "mouseup", "touchend":
		return PhaseUp, nil
	case "leave", "pointerleave", "pointercancel", "mouseleave", "touchcancel":
		return PhaseLeave, nil
	default:
		return 0, fmt.Errorf("unknown pointer phase: %q", s)
	}
}

// Ends reports whether the phase terminates a gesture.
func (p Phase) Ends() bool {
	return p == PhaseUp || p == PhaseLeave
}

// Pointer is one sample of a pointer stream in display coordinates.
type Pointer struct {
	X     float64
	Y     float64
	Phase Phase
}

// Point returns the pointer position.
func (p Pointer) Point() sampler.Point {
	return sampler.Point{X: p.X, Y: p.Y}
}

// Orientation is the direction along which the hue axis runs.
type Orientation int

const (
	// Horizontal maps hue along the x axis, left to right.
	Horizontal Orientation = iota
	// Vertical maps hue along the y axis, top to bottom.
	Vertical
)

func (o Orientation) String() string {
	if o == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// OrientationFor picks the orientation from the measured container: hue runs
// along the longer side. Square containers are horizontal.
func OrientationFor(r sampler.Rect) Orientation {
	if r.Height > r.Width {
		return Vertical
	}
	return Horizontal
}
