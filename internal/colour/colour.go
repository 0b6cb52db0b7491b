// Package colour provides colour representations, conversions between RGB, HSV and
// hexadecimal forms, and white-balance correction of sampled colours.
package colour

import (
	"fmt"
	"image/color"
	"math"
)

// RGB represents a colour with three 8-bit channels.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// RGBA represents a colour with three 8-bit channels and a straight (non-premultiplied) alpha.
type RGBA struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// NewRGB builds an RGB value from arbitrary integers, clamping each channel into [0, 255].
func NewRGB(r, g, b int) RGB {
	return RGB{R: clampChannel(r), G: clampChannel(g), B: clampChannel(b)}
}

// String returns the RGB colour as a string in the format "rgb(r, g, b)".
func (rgb RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", rgb.R, rgb.G, rgb.B)
}

// Hex returns the canonical hex form: six upper-case digits without a leading "#".
func (rgb RGB) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", rgb.R, rgb.G, rgb.B)
}

// RGBA implements color.Color.
func (rgb RGB) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: rgb.R, G: rgb.G, B: rgb.B, A: 255}.RGBA()
}

// RGB drops the alpha channel.
func (c RGBA) RGB() RGB {
	return RGB{R: c.R, G: c.G, B: c.B}
}

// Hex returns the canonical hex form of the colour channels. Alpha is not encoded.
func (c RGBA) Hex() string {
	return c.RGB().Hex()
}

// ToRGB converts a color.Color to RGB, un-premultiplying alpha where needed.
func ToRGB(c color.Color) RGB {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGB{R: n.R, G: n.G, B: n.B}
}

// ToRGBA converts a color.Color to straight-alpha RGBA.
func ToRGBA(c color.Color) RGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGBA{R: n.R, G: n.G, B: n.B, A: n.A}
}

func clampChannel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// channelFromUnit rounds a [0, 1] float to the nearest 8-bit value.
func channelFromUnit(f float64) uint8 {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= 1 {
		return 255
	}
	return uint8(math.Round(f * 255))
}
