package colour

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFormat is returned when a hex colour string is malformed.
var ErrInvalidFormat = errors.New("invalid hex colour format")

// ParseHex parses a six-digit hex colour. A single leading "#" is accepted and
// digits may be in either case. Anything else fails with ErrInvalidFormat.
func ParseHex(s string) (RGB, error) {
	digits := strings.TrimPrefix(s, "#")
	if len(digits) != 6 {
		return RGB{}, fmt.Errorf("%w: %q must have exactly 6 hex digits", ErrInvalidFormat, s)
	}

	var v [3]uint8
	for i := 0; i < 3; i++ {
		hi, ok1 := hexNibble(digits[2*i])
		lo, ok2 := hexNibble(digits[2*i+1])
		if !ok1 || !ok2 {
			return RGB{}, fmt.Errorf("%w: %q contains non-hex characters", ErrInvalidFormat, s)
		}
		v[i] = hi<<4 | lo
	}

	return RGB{R: v[0], G: v[1], B: v[2]}, nil
}

// NormalizeHex returns the canonical form of a valid hex colour.
func NormalizeHex(s string) (string, error) {
	rgb, err := ParseHex(s)
	if err != nil {
		return "", err
	}
	return rgb.Hex(), nil
}

// IsValidHex reports whether s parses as a hex colour.
func IsValidHex(s string) bool {
	_, err := ParseHex(s)
	return err == nil
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
