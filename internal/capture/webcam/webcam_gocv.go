//go:build gocv

package webcam

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"gocv.io/x/gocv"

	"github.com/jmylchreest/swatch/internal/capture"
)

// Supported reports whether camera support was compiled in.
const Supported = true

// Open implements capture.Device.
func (d *Device) Open(ctx context.Context) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vc, err := gocv.OpenVideoCapture(d.index)
	if err != nil {
		return nil, &capture.DeviceError{Reason: classify(err), Err: err}
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, &capture.DeviceError{
			Reason: capture.ReasonNoDevice,
			Err:    fmt.Errorf("camera %d could not be opened", d.index),
		}
	}
	d.logger.Debug("camera opened", "index", d.index)

	return &stream{vc: vc, mat: gocv.NewMat(), logger: d.logger}, nil
}

type stream struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
	logger hclog.Logger
}

func (s *stream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("camera already released")
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, capture.ErrPermissionRevoked
	}

	img, err := s.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return img, nil
}

func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.mat.Close()
	s.logger.Debug("camera released")
	return s.vc.Close()
}

func classify(err error) capture.Reason {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission"), strings.Contains(msg, "denied"):
		return capture.ReasonPermissionDenied
	case strings.Contains(msg, "no such"), strings.Contains(msg, "not found"):
		return capture.ReasonNoDevice
	default:
		return capture.ReasonUnknown
	}
}
