package plugin

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrIncompatible is matched by every protocol mismatch between a host and a frame source.
var ErrIncompatible = errors.New("incompatible frame source protocol")

// CompatibilityError describes a peer whose protocol version cannot be served.
type CompatibilityError struct {
	Peer    string
	Version string
	Detail  string
}

// Error implements error.
func (e *CompatibilityError) Error() string {
	return fmt.Sprintf("%s speaks protocol %q: %s", e.Peer, e.Version, e.Detail)
}

// Is makes every CompatibilityError match ErrIncompatible.
func (e *CompatibilityError) Is(target error) bool {
	return target == ErrIncompatible
}

// CheckSource verifies, on the host side, that the frame source described by
// info can be driven: its major protocol version must equal ProtocolVersion's
// and it must not predate MinCompatibleVersion. Newer minor and patch releases
// are accepted.
func CheckSource(info PluginInfo) error {
	peer := fmt.Sprintf("frame source %q", info.Name)
	got, err := parseProtocol(info.ProtocolVersion)
	if err != nil {
		return &CompatibilityError{Peer: peer, Version: info.ProtocolVersion, Detail: err.Error()}
	}
	cur, minimum := mustParseProtocol(ProtocolVersion), mustParseProtocol(MinCompatibleVersion)
	switch {
	case got[0] != cur[0]:
		return &CompatibilityError{
			Peer:    peer,
			Version: info.ProtocolVersion,
			Detail:  fmt.Sprintf("host requires %d.x.x", cur[0]),
		}
	case got.less(minimum):
		return &CompatibilityError{
			Peer:    peer,
			Version: info.ProtocolVersion,
			Detail:  "oldest supported is " + MinCompatibleVersion,
		}
	}
	return nil
}

// CheckHost verifies, on the plugin side, that the host sending req speaks the
// same major protocol version. Hosts that leave Protocol empty are accepted.
func (r OpenRequest) CheckHost() error {
	if r.Protocol == "" {
		return nil
	}
	got, err := parseProtocol(r.Protocol)
	if err != nil {
		return &CompatibilityError{Peer: "host", Version: r.Protocol, Detail: err.Error()}
	}
	if cur := mustParseProtocol(ProtocolVersion); got[0] != cur[0] {
		return &CompatibilityError{
			Peer:    "host",
			Version: r.Protocol,
			Detail:  fmt.Sprintf("frame source requires %d.x.x", cur[0]),
		}
	}
	return nil
}

// protocolVersion is MAJOR, MINOR, PATCH.
type protocolVersion [3]int

func (v protocolVersion) less(o protocolVersion) bool {
	for i := range v {
		if v[i] != o[i] {
			return v[i] < o[i]
		}
	}
	return false
}

func parseProtocol(s string) (protocolVersion, error) {
	var v protocolVersion
	parts := strings.Split(s, ".")
	if len(parts) != len(v) {
		return v, fmt.Errorf("invalid version %q (expected MAJOR.MINOR.PATCH)", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return v, fmt.Errorf("invalid version component %q", p)
		}
		v[i] = n
	}
	return v, nil
}

func mustParseProtocol(s string) protocolVersion {
	v, err := parseProtocol(s)
	if err != nil {
		panic(err)
	}
	return v
}
