package colour

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// HSV represents a colour in hue/saturation/value form.
// H is in degrees [0, 360), S and V are percentages [0, 100].
type HSV struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// String returns the HSV colour as "hsv(h, s%, v%)" rounded for display.
func (c HSV) String() string {
	return fmt.Sprintf("hsv(%.0f, %.0f%%, %.0f%%)", c.H, c.S, c.V)
}

// Clamp wraps hue into [0, 360) and clamps saturation and value into [0, 100].
// NaN components collapse to 0.
func (c HSV) Clamp() HSV {
	return HSV{H: WrapHue(c.H), S: clampPercent(c.S), V: clampPercent(c.V)}
}

// Hex returns the canonical hex form of the colour.
func (c HSV) Hex() string {
	return HSVToRGB(c).Hex()
}

// RGB converts to RGB.
func (c HSV) RGB() RGB {
	return HSVToRGB(c)
}

// IsAchromatic reports whether hue carries no information (no saturation or no value).
func (c HSV) IsAchromatic() bool {
	return c.S == 0 || c.V == 0
}

// RGBToHSV converts RGB to HSV.
// Achromatic colours (grey, black, white) report a hue of 0.
func RGBToHSV(rgb RGB) HSV {
	h, s, v := colorful.Color{
		R: float64(rgb.R) / 255.0,
		G: float64(rgb.G) / 255.0,
		B: float64(rgb.B) / 255.0,
	}.Hsv()
	return HSV{H: WrapHue(h), S: s * 100, V: v * 100}
}

// RGBToHSVPreserving converts RGB to HSV, carrying over components that the
// conversion cannot recover from prev. When value is 0 both hue and saturation
// come from prev; when saturation is 0 the hue comes from prev.
func RGBToHSVPreserving(rgb RGB, prev HSV) HSV {
	hsv := RGBToHSV(rgb)
	if !hsv.IsAchromatic() {
		return hsv
	}
	prev = prev.Clamp()
	hsv.H = prev.H
	if hsv.V == 0 {
		hsv.S = prev.S
	}
	return hsv
}

// HSVToRGB converts HSV to RGB. Out-of-range input is clamped first.
//
// RGB has 8 bits per channel, so HSV -> RGB -> HSV only reproduces its input
// within 1 degree and 1 point when V >= 40 and S*V >= 2400 (a max-min spread of
// at least 61). Outside that region each channel's rounding of up to 0.5 moves
// hue by up to 60/(spread-1) degrees and saturation by up to 100/(max-0.5)
// points, with spread and max measured in 0-255 units. RGB -> HSV -> RGB always
// holds within 1 per channel.
func HSVToRGB(hsv HSV) RGB {
	hsv = hsv.Clamp()
	c := colorful.Hsv(hsv.H, hsv.S/100, hsv.V/100)
	return RGB{
		R: channelFromUnit(c.R),
		G: channelFromUnit(c.G),
		B: channelFromUnit(c.B),
	}
}

// WrapHue maps any angle onto [0, 360).
func WrapHue(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	// math.Mod of a tiny negative value plus 360 can round up to exactly 360.
	if h >= 360 {
		h = 0
	}
	return h
}

// HueDistance calculates the angular distance between two hues on the colour wheel.
// Returns a value between 0 and 180 degrees (shortest path around the wheel).
func HueDistance(h1, h2 float64) float64 {
	diff := math.Abs(WrapHue(h1) - WrapHue(h2))
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 100 {
		return 100
	}
	return v
}
