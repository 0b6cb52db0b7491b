// Package plugin provides the public API for swatch frame source plugins.
package plugin

import (
	"context"
)

// FrameSource is the interface that frame source plugins must implement for go-plugin RPC.
// A source is opened once, asked for any number of frames, and closed.
type FrameSource interface {
	// Open acquires the underlying device.
	Open(ctx context.Context, req OpenRequest) error

	// Capture returns the current frame. Open must have succeeded.
	Capture(ctx context.Context) (Frame, error)

	// Close releases the device. It must be safe to call more than once.
	Close() error

	// GetMetadata returns plugin metadata.
	GetMetadata() PluginInfo

	// GetFlagHelp returns help information for plugin arguments.
	GetFlagHelp() []FlagHelp
}
