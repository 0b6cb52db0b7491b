// Package executor runs frame source plugins and exposes them as capture devices.
package executor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/swatch/internal/capture"
	pluginapi "github.com/jmylchreest/swatch/pkg/plugin"
)

// Option configures a PluginDevice.
type Option func(*PluginDevice)

// WithLogger sets the logger. Plugin output is forwarded to it.
func WithLogger(logger hclog.Logger) Option {
	return func(d *PluginDevice) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithLauncher replaces the process launcher.
func WithLauncher(l Launcher) Option {
	return func(d *PluginDevice) {
		d.launcher = l
	}
}

// WithOpenRequest sets the request passed to the plugin on every Open.
func WithOpenRequest(req pluginapi.OpenRequest) Option {
	return func(d *PluginDevice) {
		d.req = req
	}
}

// PluginDevice is a capture.Device backed by a frame source plugin. Every Open
// starts a fresh plugin process that is killed when the stream is closed.
type PluginDevice struct {
	path     string
	req      pluginapi.OpenRequest
	launcher Launcher
	logger   hclog.Logger
}

// New creates a PluginDevice for the plugin binary at path.
func New(path string, opts ...Option) (*PluginDevice, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat plugin: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("plugin path is a directory: %s", path)
	}

	d := &PluginDevice{
		path:     path,
		launcher: NewProcessLauncher(),
		logger: hclog.New(&hclog.LoggerOptions{
			Name:   "plugin",
			Output: io.Discard,
			Level:  hclog.Off,
		}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Path returns the plugin binary path.
func (d *PluginDevice) Path() string {
	return d.path
}

// Open implements capture.Device.
func (d *PluginDevice) Open(ctx context.Context) (capture.Stream, error) {
	source, kill, err := d.launcher.Launch(ctx, d.path, d.logger)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &capture.DeviceError{Reason: capture.ReasonNoDevice, Err: err}
	}

	info := source.GetMetadata()
	if err := pluginapi.CheckSource(info); err != nil {
		kill()
		d.logger.Warn("frame source rejected", "plugin", d.path, "error", err)
		return nil, &capture.DeviceError{Reason: capture.ReasonUnknown, Err: err}
	}

	req := d.req
	req.Protocol = pluginapi.ProtocolVersion
	if err := source.Open(ctx, req); err != nil {
		kill()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &capture.DeviceError{Reason: reasonOf(err), Err: err}
	}

	d.logger.Debug("frame source opened", "plugin", info.Name, "version", info.Version)
	return &stream{source: source, kill: kill, logger: d.logger}, nil
}

type stream struct {
	mu     sync.Mutex
	source pluginapi.FrameSource
	kill   func()
	closed bool
	logger hclog.Logger
}

func (s *stream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("frame source already closed")
	}

	frame, err := s.source.Capture(ctx)
	if err != nil {
		if reasonOf(err) == capture.ReasonPermissionDenied {
			return nil, fmt.Errorf("%w: %v", capture.ErrPermissionRevoked, err)
		}
		return nil, fmt.Errorf("failed to capture frame: %w", err)
	}
	img, err := frame.Image()
	if err != nil {
		return nil, fmt.Errorf("plugin returned invalid frame: %w", err)
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

	err := s.source.Close()
	s.kill()
	if err != nil {
		s.logger.Warn("frame source close failed", "error", err)
		return fmt.Errorf("failed to close frame source: %w", err)
	}
	return nil
}

// reasonOf maps a plugin failure onto a capture reason.
func reasonOf(err error) capture.Reason {
	var rerr *pluginapi.RPCError
	if !errors.As(err, &rerr) {
		return capture.ReasonUnknown
	}
	switch rerr.Reason {
	case pluginapi.ReasonPermissionDenied:
		return capture.ReasonPermissionDenied
	case pluginapi.ReasonNoDevice:
		return capture.ReasonNoDevice
	default:
		return capture.ReasonUnknown
	}
}
