// Package webcam provides a capture.Device backed by a local camera through OpenCV.
//
// Camera support requires building with the gocv tag and an installed OpenCV;
// without it every Open reports that no device exists.
package webcam

import (
	"github.com/hashicorp/go-hclog"
)

// Device opens a camera by index.
type Device struct {
	index  int
	logger hclog.Logger
}

// New creates a Device for the camera at index. logger may be nil.
func New(index int, logger hclog.Logger) *Device {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Device{index: index, logger: logger.Named("webcam")}
}

// Index returns the camera index.
func (d *Device) Index() int {
	return d.index
}
