package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"

	swatchimage "github.com/jmylchreest/swatch/internal/image"
	pluginapi "github.com/jmylchreest/swatch/pkg/plugin"
)

// ImageSource implements pluginapi.FrameSource over a still image.
type ImageSource struct {
	mu     sync.Mutex
	frame  *pluginapi.Frame
	load   func(ctx context.Context, path string) (image.Image, error)
	logger hclog.Logger
}

// NewImageSource creates an ImageSource that loads images with the smart loader.
func NewImageSource() *ImageSource {
	return &ImageSource{
		load:   swatchimage.NewSmartLoader().LoadContext,
		logger: newLogger(false),
	}
}

// newLogger writes JSON lines to stderr, which the host re-emits through its own logger.
func newLogger(verbose bool) hclog.Logger {
	level := hclog.Info
	if verbose {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "source-image",
		Level:      level,
		Output:     os.Stderr,
		JSONFormat: true,
	})
}

// Open loads the configured image.
func (s *ImageSource) Open(ctx context.Context, req pluginapi.OpenRequest) error {
	if req.Verbose {
		s.logger = newLogger(true)
	}
	if err := req.CheckHost(); err != nil {
		return &pluginapi.RPCError{Reason: pluginapi.ReasonUnknown, Message: err.Error()}
	}

	path, _ := req.PluginArgs["image"].(string)
	if path == "" {
		path = req.Device
	}
	if path == "" {
		return &pluginapi.RPCError{
			Reason:  pluginapi.ReasonNoDevice,
			Message: "no image configured; pass --plugin-arg image=<path>",
		}
	}

	if !swatchimage.IsURL(path) {
		if _, err := os.Stat(path); err != nil {
			return &pluginapi.RPCError{Reason: reasonFor(err), Message: fmt.Sprintf("cannot open image: %v", err)}
		}
	}

	s.logger.Debug("loading image", "path", path)
	img, err := s.load(ctx, path)
	if err != nil {
		return &pluginapi.RPCError{Reason: reasonFor(err), Message: fmt.Sprintf("failed to load image: %v", err)}
	}
	frame := pluginapi.FrameFromImage(img)
	if err := frame.Validate(); err != nil {
		return &pluginapi.RPCError{Reason: pluginapi.ReasonUnknown, Message: err.Error()}
	}

	s.mu.Lock()
	s.frame = &frame
	s.mu.Unlock()
	s.logger.Info("image source opened", "path", path, "width", frame.Width, "height", frame.Height)
	return nil
}

// Capture returns the loaded image.
func (s *ImageSource) Capture(ctx context.Context) (pluginapi.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pluginapi.Frame{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame == nil {
		return pluginapi.Frame{}, &pluginapi.RPCError{Reason: pluginapi.ReasonNoDevice, Message: "frame source is not open"}
	}
	return *s.frame, nil
}

// Close releases the image.
func (s *ImageSource) Close() error {
	s.mu.Lock()
	s.frame = nil
	s.mu.Unlock()
	return nil
}

// GetMetadata returns plugin metadata.
func (s *ImageSource) GetMetadata() pluginapi.PluginInfo {
	return pluginapi.PluginInfo{
		Name:            "image",
		Version:         "0.1.0",
		ProtocolVersion: pluginapi.ProtocolVersion,
		Description:     "Serve a still image file or URL as a frame source",
	}
}

// GetFlagHelp returns help information for plugin args.
func (s *ImageSource) GetFlagHelp() []pluginapi.FlagHelp {
	return []pluginapi.FlagHelp{
		{
			Name:        "image",
			Type:        "string",
			Description: "Path or http(s) URL of the image to serve",
			Required:    true,
		},
	}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return pluginapi.ReasonPermissionDenied
	case errors.Is(err, fs.ErrNotExist):
		return pluginapi.ReasonNoDevice
	default:
		return pluginapi.ReasonUnknown
	}
}
