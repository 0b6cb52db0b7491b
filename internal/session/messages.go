package session

import (
	"github.com/jmylchreest/swatch/internal/sampler"
)

// Inbound message types.
const (
	MsgPointer           = "pointer"
	MsgExternal          = "external"
	MsgChannel           = "channel"
	MsgHexInput          = "hex-input"
	MsgHexEnd            = "hex-end"
	MsgCalibrate         = "calibrate"
	MsgCancelCalibration = "cancel-calibration"
	MsgResetCalibration  = "reset-calibration"
	MsgStart             = "start"
	MsgStop              = "stop"
	MsgCapture           = "capture"
)

// Pointer targets.
const (
	TargetImage = "image"
	TargetPlane = "plane"
	TargetAxis  = "axis"
)

// Outbound event types.
const (
	EventHello        = "hello"
	EventColor        = "color"
	EventCaptureError = "capture-error"
	EventState        = "state"
	EventCalibrated   = "calibrated"
	EventError        = "error"
)

// Colour sources.
const (
	SourcePicker = "picker"
	SourceSample = "sample"
)

// Message is a client request.
type Message struct {
	Type    string        `json:"type"`
	Target  string        `json:"target,omitempty"`
	X       float64       `json:"x,omitempty"`
	Y       float64       `json:"y,omitempty"`
	Phase   string        `json:"phase,omitempty"`
	Rect    *sampler.Rect `json:"rect,omitempty"`
	Hex     string        `json:"hex,omitempty"`
	Text    string        `json:"text,omitempty"`
	Channel string        `json:"channel,omitempty"`
	Value   *float64      `json:"value,omitempty"`
}

// Event is a server notification.
type Event struct {
	Type       string `json:"type"`
	Session    string `json:"session,omitempty"`
	Hex        string `json:"hex,omitempty"`
	Source     string `json:"source,omitempty"`
	Final      bool   `json:"final,omitempty"`
	Reason     string `json:"reason,omitempty"`
	State      string `json:"state,omitempty"`
	Degenerate bool   `json:"degenerate,omitempty"`
	Message    string `json:"message,omitempty"`
}
