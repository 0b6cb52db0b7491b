// Package plugin provides the public API for swatch frame source plugins.
package plugin

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

// OpenRequest holds options for opening a frame source.
type OpenRequest struct {
	// Protocol is the host's ProtocolVersion.
	Protocol   string         `json:"protocol,omitempty"`
	Device     string         `json:"device,omitempty"`
	Verbose    bool           `json:"verbose"`
	PluginArgs map[string]any `json:"plugin_args,omitempty"`
}

// Frame is a single image transferred over RPC as non-premultiplied RGBA rows.
type Frame struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pix    []byte `json:"pix"`
}

// FrameFromImage converts img into a Frame.
func FrameFromImage(img image.Image) Frame {
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}
	return Frame{Width: b.Dx(), Height: b.Dy(), Pix: nrgba.Pix}
}

// Validate checks that the frame dimensions match its pixel data.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if f.Width > MaxFramePixels/f.Height {
		return fmt.Errorf("frame too large: %dx%d", f.Width, f.Height)
	}
	if len(f.Pix) != 4*f.Width*f.Height {
		return errors.New("frame pixel data does not match its size")
	}
	return nil
}

// Image returns the frame as an image without copying its pixels.
func (f Frame) Image() (*image.NRGBA, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &image.NRGBA{
		Pix:    f.Pix,
		Stride: 4 * f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}, nil
}
