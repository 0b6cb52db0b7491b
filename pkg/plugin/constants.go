// Package plugin provides the public API for swatch frame source plugins.
package plugin

import (
	"github.com/hashicorp/go-plugin"
)

const (
	// ProtocolVersion defines the current plugin API version.
	// Format: MAJOR.MINOR.PATCH.
	// - Increment MAJOR for breaking changes (incompatible API changes).
	// - Increment MINOR for backward-compatible additions.
	// - Increment PATCH for backward-compatible bug fixes.
	ProtocolVersion = "0.1.0"

	// MinCompatibleVersion is the oldest protocol version this swatch version can work with.
	MinCompatibleVersion = "0.1.0"

	// FrameSourcePluginName is the key frame sources are dispensed under.
	FrameSourcePluginName = "framesource"

	// MaxFramePixels bounds the size of a single frame accepted over RPC.
	MaxFramePixels = 8192 * 8192
)

// Handshake is the handshake configuration for go-plugin protocol.
// This ensures that plugins using go-plugin can only connect to compatible hosts.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  0, // Major version from ProtocolVersion
	MagicCookieKey:   "SWATCH_PLUGIN",
	MagicCookieValue: "swatch_frame_source",
}

// Failure reasons reported by plugins. They mirror the reasons shown to users
// when a capture device cannot be used.
const (
	ReasonPermissionDenied = "permission-denied"
	ReasonNoDevice         = "no-device"
	ReasonUnknown          = "unknown"
)
