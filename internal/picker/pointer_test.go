package picker

import (
	"testing"

	"github.com/jmylchreest/swatch/internal/sampler"
)

func TestParsePhase(t *testing.T) {
	tests := []struct {
		input   string
		want    Phase
		wantErr bool
	}{
		{input: "down", want: PhaseDown},
		{input: "pointermove", want: PhaseMove},
		{input: "touchend", want: PhaseUp},
		{input: "pointercancel", want: PhaseLeave},
		{input: "MouseLeave", want: PhaseLeave},
		{input: "wheel", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePhase(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParsePhase(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePhase(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParsePhase(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPhaseEnds(t *testing.T) {
	tests := []struct {
		phase Phase
		want  bool
	}{
		{PhaseDown, false},
		{PhaseMove, false},
		{PhaseUp, true},
		{PhaseLeave, true},
	}
	for _, tt := range tests {
		t.Run(tt.phase.String(), func(t *testing.T) {
			if got := tt.phase.Ends(); got != tt.want {
				t.Errorf("%v.Ends() = %v, want %v", tt.phase, got, tt.want)
			}
		})
	}
}

func TestOrientationFor(t *testing.T) {
	tests := []struct {
		name string
		rect sampler.Rect
		want Orientation
	}{
		{name: "wide", rect: sampler.Rect{Width: 300, Height: 20}, want: Horizontal},
		{name: "tall", rect: sampler.Rect{Width: 20, Height: 300}, want: Vertical},
		{name: "square", rect: sampler.Rect{Width: 50, Height: 50}, want: Horizontal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OrientationFor(tt.rect); got != tt.want {
				t.Errorf("OrientationFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseChannel(t *testing.T) {
	for input, want := range map[string]Channel{
		"h": ChannelHue, "Saturation": ChannelSaturation, "brightness": ChannelValue,
		"r": ChannelRed, "green": ChannelGreen, "B": ChannelBlue,
	} {
		got, err := ParseChannel(input)
		if err != nil || got != want {
			t.Errorf("ParseChannel(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := ParseChannel("alpha"); err == nil {
		t.Error("ParseChannel(alpha) expected error")
	}
}
