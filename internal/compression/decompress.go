// Package compression detects and unwraps compressed image payloads.
package compression

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/jmylchreest/swatch/internal/security"
)

// Format is a compression container format.
type Format string

const (
	// FormatNone means the payload is not compressed.
	FormatNone Format = "none"
	// FormatGzip is gzip (.gz).
	FormatGzip Format = "gzip"
	// FormatXz is xz (.xz).
	FormatXz Format = "xz"
	// FormatBzip2 is bzip2 (.bz2).
	FormatBzip2 Format = "bzip2"
)

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	xzMagic    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	bzip2Magic = []byte("BZh")
)

// Detect sniffs the compression format from the leading bytes of a payload.
func Detect(header []byte) Format {
	switch {
	case bytes.HasPrefix(header, xzMagic):
		return FormatXz
	case bytes.HasPrefix(header, gzipMagic):
		return FormatGzip
	case bytes.HasPrefix(header, bzip2Magic):
		return FormatBzip2
	default:
		return FormatNone
	}
}

// NewReader returns a reader yielding the decompressed payload of r. Payloads
// that are not compressed are passed through. At most maxBytes of decompressed
// data are read; going past that limit fails the read.
func NewReader(r io.Reader, maxBytes int64) (io.Reader, Format, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(len(xzMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, FormatNone, fmt.Errorf("failed to read payload header: %w", err)
	}

	format := Detect(header)
	var dr io.Reader
	switch format {
	case FormatGzip:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return nil, format, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		dr = gzr
	case FormatXz:
		xzr, err := xz.NewReader(br)
		if err != nil {
			return nil, format, fmt.Errorf("failed to create xz reader: %w", err)
		}
		dr = xzr
	case FormatBzip2:
		dr = bzip2.NewReader(br)
	default:
		dr = br
	}

	return security.NewLimitedReader(dr, maxBytes), format, nil
}
