//go:build !gocv

package webcam

import (
	"context"
	"errors"

	"github.com/jmylchreest/swatch/internal/capture"
)

// Supported reports whether camera support was compiled in.
const Supported = false

// Open implements capture.Device. Without OpenCV there is never a camera.
func (d *Device) Open(ctx context.Context) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, &capture.DeviceError{
		Reason: capture.ReasonNoDevice,
		Err:    errors.New("camera support not built in (rebuild with -tags gocv)"),
	}
}
