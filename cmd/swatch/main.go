// Swatch - Exact colour sampling from images and cameras
//
// Swatch derives precise colour values by direct manipulation of an HSV
// picker or by sampling single pixels from camera frames and images, with
// optional white-balance correction.
//
// Copyright (c) 2025 John Mylchreest
// Licensed under the MIT License
package main

import (
	"github.com/jmylchreest/swatch/internal/cli"
)

func main() {
	cli.Execute()
}
