// Package sampler reads single pixels from a raster surface at a display-space
// coordinate, correcting for the ratio between the surface's native resolution
// and the size it is rendered at.
package sampler

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/jmylchreest/swatch/internal/colour"
)

// ErrOutOfBounds is returned when a display point maps outside the native surface.
// It is expected while the pointer moves near surface edges.
var ErrOutOfBounds = errors.New("point outside sampled surface")

// Point is a position in display space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect describes where a surface is rendered in display space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return !(r.Width > 0) || !(r.Height > 0)
}

// Relative returns the position of pt within r as fractions of its size.
// Values are not clamped.
func (r Rect) Relative(pt Point) (fx, fy float64) {
	return (pt.X - r.X) / r.Width, (pt.Y - r.Y) / r.Height
}

// Sampler reads pixels from one surface. It holds no per-sample state so the
// pointer-move path does not allocate.
type Sampler struct {
	img    image.Image
	bounds image.Rectangle

	// Concrete views for the common decoder outputs.
	rgba     *image.RGBA
	nrgba    *image.NRGBA
	ycbcr    *image.YCbCr
	gray     *image.Gray
	paletted *image.Paletted
}

// New creates a Sampler for img.
func New(img image.Image) *Sampler {
	s := &Sampler{img: img, bounds: img.Bounds()}
	switch v := img.(type) {
	case *image.RGBA:
		s.rgba = v
	case *image.NRGBA:
		s.nrgba = v
	case *image.YCbCr:
		s.ycbcr = v
	case *image.Gray:
		s.gray = v
	case *image.Paletted:
		s.paletted = v
	}
	return s
}

// Image returns the underlying surface.
func (s *Sampler) Image() image.Image {
	return s.img
}

// MapPoint converts a display-space point into native pixel coordinates.
func (s *Sampler) MapPoint(pt Point, display Rect) (image.Point, error) {
	if display.Empty() {
		return image.Point{}, fmt.Errorf("%w: display rect %+v has no area", ErrOutOfBounds, display)
	}

	scaleX := float64(s.bounds.Dx()) / display.Width
	scaleY := float64(s.bounds.Dy()) / display.Height

	fx := math.Floor((pt.X - display.X) * scaleX)
	fy := math.Floor((pt.Y - display.Y) * scaleY)
	if math.IsNaN(fx) || math.IsNaN(fy) ||
		fx < 0 || fy < 0 || fx >= float64(s.bounds.Dx()) || fy >= float64(s.bounds.Dy()) {
		return image.Point{}, ErrOutOfBounds
	}

	return image.Point{X: s.bounds.Min.X + int(fx), Y: s.bounds.Min.Y + int(fy)}, nil
}

// Sample returns the colour of the single native pixel under pt.
func (s *Sampler) Sample(pt Point, display Rect) (colour.RGBA, error) {
	p, err := s.MapPoint(pt, display)
	if err != nil {
		return colour.RGBA{}, err
	}
	return s.At(p.X, p.Y), nil
}

// At reads the native pixel at (x, y). The caller guarantees it is in bounds.
func (s *Sampler) At(x, y int) colour.RGBA {
	switch {
	case s.nrgba != nil:
		i := s.nrgba.PixOffset(x, y)
		px := s.nrgba.Pix[i : i+4 : i+4]
		return colour.RGBA{R: px[0], G: px[1], B: px[2], A: px[3]}
	case s.rgba != nil:
		i := s.rgba.PixOffset(x, y)
		px := s.rgba.Pix[i : i+4 : i+4]
		return unpremultiply(px[0], px[1], px[2], px[3])
	case s.ycbcr != nil:
		c := s.ycbcr.YCbCrAt(x, y)
		r, g, b := color.YCbCrToRGB(c.Y, c.Cb, c.Cr)
		return colour.RGBA{R: r, G: g, B: b, A: 255}
	case s.gray != nil:
		v := s.gray.GrayAt(x, y).Y
		return colour.RGBA{R: v, G: v, B: v, A: 255}
	case s.paletted != nil:
		return colour.ToRGBA(s.paletted.At(x, y))
	}
	return colour.ToRGBA(s.img.At(x, y))
}

func unpremultiply(r, g, b, a uint8) colour.RGBA {
	switch a {
	case 255:
		return colour.RGBA{R: r, G: g, B: b, A: a}
	case 0:
		return colour.RGBA{}
	}
	un := func(c uint8) uint8 {
		return uint8((uint32(c)*255 + uint32(a)/2) / uint32(a))
	}
	return colour.RGBA{R: un(r), G: un(g), B: un(b), A: a}
}
