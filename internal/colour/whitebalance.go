package colour

import "math"

// DegenerateLuminance is the relative luminance below which a white reference is
// considered too dark to produce a stable correction.
const DegenerateLuminance = 0.02

// Correction maps a sampled colour to its corrected value.
type Correction func(RGB) RGB

// Identity is the correction used when no white reference has been captured.
func Identity(c RGB) RGB {
	return c
}

// MakeCorrection returns a per-channel gray-world correction that maps ref to white.
// Each channel is scaled by 255/max(ref, 1) and saturates at 255.
//
// A pure black reference drives every scale to 255 so almost any non-zero sample
// saturates. That is accepted behaviour; use IsDegenerateReference to warn about it.
func MakeCorrection(ref RGB) Correction {
	dr := channelDivisor(ref.R)
	dg := channelDivisor(ref.G)
	db := channelDivisor(ref.B)

	return func(c RGB) RGB {
		return RGB{
			R: scaleChannel(c.R, dr),
			G: scaleChannel(c.G, dg),
			B: scaleChannel(c.B, db),
		}
	}
}

// IsDegenerateReference reports whether ref is dark enough that the correction
// becomes numerically unstable.
func IsDegenerateReference(ref RGB) bool {
	return Luminance(ref) < DegenerateLuminance
}

// WhiteBalance holds the white reference of one calibration session.
// The zero value is uncalibrated and corrects nothing.
type WhiteBalance struct {
	reference *RGB
	correct   Correction
}

// Set captures ref as the white reference.
func (w *WhiteBalance) Set(ref RGB) {
	r := ref
	w.reference = &r
	w.correct = MakeCorrection(ref)
}

// Reset discards the white reference.
func (w *WhiteBalance) Reset() {
	w.reference = nil
	w.correct = nil
}

// Reference returns the captured reference, if any.
func (w *WhiteBalance) Reference() (RGB, bool) {
	if w.reference == nil {
		return RGB{}, false
	}
	return *w.reference, true
}

// Calibrated reports whether a reference has been captured.
func (w *WhiteBalance) Calibrated() bool {
	return w.reference != nil
}

// Apply corrects c, or returns it unchanged when uncalibrated.
func (w *WhiteBalance) Apply(c RGB) RGB {
	if w.correct == nil {
		return c
	}
	return w.correct(c)
}

func channelDivisor(ref uint8) float64 {
	return math.Max(float64(ref), 1)
}

// scaleChannel computes v*255/divisor. Multiplying before dividing keeps exact
// halves such as 100*255/200 = 127.5 exact so they round up.
func scaleChannel(v uint8, divisor float64) uint8 {
	return uint8(math.Round(math.Min(255, float64(v)*255/divisor)))
}
