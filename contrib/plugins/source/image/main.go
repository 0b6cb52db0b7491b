// image - Still Image Frame Source (Swatch Source Plugin)
//
// Serves a single image file or URL as a live frame source, so the session
// server can be driven without a camera.
//
// Build:
//   go build -o swatch-source-image
//
// Usage:
//   swatch serve --plugin ./swatch-source-image --plugin-arg image=card.png
//
// Plugin Args:
//   image: Path or http(s) URL of the image to serve (required)
//
// Author: Swatch Contributors
// License: MIT

package main

import (
	pluginapi "github.com/jmylchreest/swatch/pkg/plugin"
)

func main() {
	pluginapi.Serve(NewImageSource())
}
