package picker

import (
	"fmt"
	"math"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/swatch/internal/colour"
	"github.com/jmylchreest/swatch/internal/sampler"
)

// maxHue is the largest hue strictly below 360.
var maxHue = math.Nextafter(360, 0)

// Region identifies one of the two input surfaces.
type Region int

const (
	// RegionPlane is the saturation (x) by brightness (y) surface.
	RegionPlane Region = iota
	// RegionAxis is the hue slider.
	RegionAxis
)

func (r Region) String() string {
	if r == RegionAxis {
		return "axis"
	}
	return "plane"
}

// Mode says which source is authoritative for the colour.
// At rest the external colour wins; while dragging the internal HSV snapshot wins.
type Mode int

const (
	// ModeAtRest means no pointer is engaged.
	ModeAtRest Mode = iota
	// ModeDraggingPlane means the saturation/brightness plane is being dragged.
	ModeDraggingPlane
	// ModeDraggingAxis means the hue axis is being dragged.
	ModeDraggingAxis
)

func (m Mode) String() string {
	switch m {
	case ModeDraggingPlane:
		return "dragging-plane"
	case ModeDraggingAxis:
		return "dragging-axis"
	default:
		return "at-rest"
	}
}

// Dragging reports whether a drag is in progress.
func (m Mode) Dragging() bool {
	return m != ModeAtRest
}

func dragModeFor(r Region) Mode {
	if r == RegionAxis {
		return ModeDraggingAxis
	}
	return ModeDraggingPlane
}

// Channel names a numerically editable component.
type Channel int

const (
	ChannelHue Channel = iota
	ChannelSaturation
	ChannelValue
	ChannelRed
	ChannelGreen
	ChannelBlue
)

// ParseChannel accepts a channel's single-letter or full name.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(s) {
	case "h", "hue":
		return ChannelHue, nil
	case "s", "saturation":
		return ChannelSaturation, nil
	case "v", "value", "brightness":
		return ChannelValue, nil
	case "r", "red":
		return ChannelRed, nil
	case "g", "green":
		return ChannelGreen, nil
	case "b", "blue":
		return ChannelBlue, nil
	default:
		return 0, fmt.Errorf("unknown channel: %q", s)
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for state transitions.
func WithLogger(logger hclog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller owns the picker state. It is not safe for concurrent use; all
// events must be delivered from the goroutine that owns it.
type Controller struct {
	hsv      colour.HSV
	hex      string
	mode     Mode
	hexField HexField

	onChange func(hex string)
	logger   hclog.Logger
}

// New creates a Controller showing initialHex. onChange receives the canonical hex
// of every colour the user produces; it may be nil.
func New(initialHex string, onChange func(hex string), opts ...Option) (*Controller, error) {
	rgb, err := colour.ParseHex(initialHex)
	if err != nil {
		return nil, fmt.Errorf("invalid initial colour: %w", err)
	}

	c := &Controller{
		hsv:      colour.RGBToHSV(rgb),
		hex:      rgb.Hex(),
		onChange: onChange,
		logger:   hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Mode returns the current interaction mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// HSV returns the internal HSV snapshot.
func (c *Controller) HSV() colour.HSV {
	return c.hsv
}

// Hex returns the canonical hex of the current colour.
func (c *Controller) Hex() string {
	return c.hex
}

// RGB returns the current colour.
func (c *Controller) RGB() colour.RGB {
	return c.hsv.RGB()
}

// PlanePosition returns where the plane thumb sits, as fractions of the plane.
func (c *Controller) PlanePosition() (fx, fy float64) {
	return c.hsv.S / 100, 1 - c.hsv.V/100
}

// AxisPosition returns where the hue thumb sits, as a fraction along the axis.
func (c *Controller) AxisPosition() float64 {
	return c.hsv.H / 360
}

// Handle feeds one pointer sample targeted at region. bounds is the region's
// bounding rectangle measured at the time of the event.
//
// A down starts a drag on region. Moves are applied only while that same region
// is being dragged. Up or leave ends any drag.
func (c *Controller) Handle(region Region, p Pointer, bounds sampler.Rect) {
	if p.Phase.Ends() {
		if c.mode == ModeAtRest {
			return
		}
		c.logger.Trace("drag ended", "mode", c.mode, "phase", p.Phase, "hex", c.hex)
		c.mode = ModeAtRest
		return
	}

	switch p.Phase {
	case PhaseDown:
		if bounds.Empty() {
			c.logger.Trace("ignoring pointer down on empty region", "region", region)
			return
		}
		c.mode = dragModeFor(region)
		c.logger.Trace("drag started", "region", region)
		c.apply(region, p, bounds)
	case PhaseMove:
		if c.mode != dragModeFor(region) || bounds.Empty() {
			return
		}
		c.apply(region, p, bounds)
	}
}

func (c *Controller) apply(region Region, p Pointer, bounds sampler.Rect) {
	fx, fy := bounds.Relative(p.Point())
	next := c.hsv

	switch region {
	case RegionPlane:
		next.S = clamp01(fx) * 100
		next.V = (1 - clamp01(fy)) * 100
	case RegionAxis:
		t := fx
		if OrientationFor(bounds) == Vertical {
			t = fy
		}
		next.H = math.Min(clamp01(t)*360, maxHue)
	}

	c.set(next)
}

// SetExternal reconciles a colour pushed by the consumer. It is applied only at
// rest; during a drag the internal snapshot is authoritative and the update is
// dropped. Invalid hex is ignored. The colour is not re-emitted. Returns whether
// the update was applied.
func (c *Controller) SetExternal(hex string) bool {
	if c.mode.Dragging() {
		c.logger.Trace("external colour ignored during drag", "hex", hex, "mode", c.mode)
		return false
	}

	rgb, err := colour.ParseHex(hex)
	if err != nil {
		c.logger.Debug("external colour ignored", "error", err)
		return false
	}

	// Re-deriving from an unchanged colour would only lose float precision.
	if rgb.Hex() == c.hex {
		return true
	}

	c.hsv = colour.RGBToHSVPreserving(rgb, c.hsv)
	c.hex = rgb.Hex()
	return true
}

// SetChannel applies a typed value for one channel. The value is clamped to the
// channel's range. It does not affect the drag mode.
func (c *Controller) SetChannel(ch Channel, value float64) {
	if math.IsNaN(value) {
		return
	}

	next := c.hsv
	switch ch {
	case ChannelHue:
		next.H = math.Min(math.Max(value, 0), maxHue)
	case ChannelSaturation:
		next.S = math.Min(math.Max(value, 0), 100)
	case ChannelValue:
		next.V = math.Min(math.Max(value, 0), 100)
	case ChannelRed, ChannelGreen, ChannelBlue:
		rgb := c.hsv.RGB()
		v := int(math.Round(math.Min(math.Max(value, 0), 255)))
		switch ch {
		case ChannelRed:
			rgb = colour.NewRGB(v, int(rgb.G), int(rgb.B))
		case ChannelGreen:
			rgb = colour.NewRGB(int(rgb.R), v, int(rgb.B))
		case ChannelBlue:
			rgb = colour.NewRGB(int(rgb.R), int(rgb.G), v)
		}
		next = colour.RGBToHSVPreserving(rgb, c.hsv)
	default:
		return
	}

	c.set(next)
}

// BeginHexEdit marks the hex field as being edited.
func (c *Controller) BeginHexEdit() {
	c.hexField.Begin(c.hex)
}

// TypeHex records the raw text of the hex field. Once the text is a valid colour
// it is applied like any other direct entry. Returns whether it was applied.
func (c *Controller) TypeHex(text string) bool {
	rgb, ok := c.hexField.Type(text)
	if !ok {
		return false
	}
	if rgb.Hex() != c.hex {
		c.set(colour.RGBToHSVPreserving(rgb, c.hsv))
	}
	return true
}

// EndHexEdit stops editing; the field shows the canonical colour again.
func (c *Controller) EndHexEdit() {
	c.hexField.End()
}

// HexDisplay returns what the hex field should show.
func (c *Controller) HexDisplay() string {
	return c.hexField.Display(c.hex)
}

func (c *Controller) set(next colour.HSV) {
	c.hsv = next.Clamp()
	hex := c.hsv.Hex()
	if hex == c.hex {
		return
	}
	c.hex = hex
	if c.onChange != nil {
		c.onChange(hex)
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	return v
}
