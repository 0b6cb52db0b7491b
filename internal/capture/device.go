// Package capture orchestrates a colour sampling session: acquiring a camera
// frame or an uploaded image, optional white-balance calibration, sampling and
// committing a colour.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// Reason is the coarse cause of a capture failure reported to the user.
type Reason string

const (
	// ReasonPermissionDenied means access to the device was refused or revoked.
	ReasonPermissionDenied Reason = "permission-denied"
	// ReasonNoDevice means no capture device exists.
	ReasonNoDevice Reason = "no-device"
	// ReasonUnknown covers every other failure.
	ReasonUnknown Reason = "unknown"
)

var (
	// ErrDeviceUnavailable is matched by every device acquisition failure.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrPermissionRevoked is returned by a Stream that lost access to its device mid-session.
	ErrPermissionRevoked = errors.New("capture permission revoked")

	// ErrInvalidState is returned when an operation is not allowed in the current state.
	ErrInvalidState = errors.New("operation not valid in current capture state")

	// ErrCancelled is returned when an acquisition was superseded or stopped before it resolved.
	ErrCancelled = errors.New("capture cancelled")
)

// DeviceError describes a failed device acquisition.
// It matches ErrDeviceUnavailable with errors.Is.
type DeviceError struct {
	Reason Reason
	Err    error
}

// Error implements error.
func (e *DeviceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("capture device unavailable (%s)", e.Reason)
	}
	return fmt.Sprintf("capture device unavailable (%s): %v", e.Reason, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Is makes every DeviceError match ErrDeviceUnavailable.
func (e *DeviceError) Is(target error) bool {
	return target == ErrDeviceUnavailable
}

// ReasonOf classifies err into a Reason.
func ReasonOf(err error) Reason {
	var de *DeviceError
	if errors.As(err, &de) && de.Reason != "" {
		return de.Reason
	}
	if errors.Is(err, ErrPermissionRevoked) {
		return ReasonPermissionDenied
	}
	return ReasonUnknown
}

// Device is a source of live frames such as a camera.
type Device interface {
	// Open acquires the device. ctx bounds the acquisition only; cancelling it
	// after Open returns does not affect the Stream.
	Open(ctx context.Context) (Stream, error)
}

// Stream is an acquired device. Close must be called exactly once.
type Stream interface {
	// Frame returns the current frame.
	Frame(ctx context.Context) (image.Image, error)

	// Close releases the device.
	Close() error
}

// ImageDevice is a Device whose stream always yields the same image.
type ImageDevice struct {
	img image.Image
}

// NewImageDevice creates an ImageDevice for img.
func NewImageDevice(img image.Image) *ImageDevice {
	return &ImageDevice{img: img}
}

// Open implements Device.
func (d *ImageDevice) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.img == nil {
		return nil, &DeviceError{Reason: ReasonNoDevice}
	}
	return imageStream{img: d.img}, nil
}

type imageStream struct {
	img image.Image
}

func (s imageStream) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.img, nil
}

func (s imageStream) Close() error {
	return nil
}
