package colour

import "testing"

func TestMakeCorrection(t *testing.T) {
	tests := []struct {
		name    string
		ref     RGB
		sampled RGB
		want    RGB
	}{
		{
			name:    "neutral grey reference",
			ref:     RGB{R: 200, G: 200, B: 200},
			sampled: RGB{R: 100, G: 100, B: 100},
			want:    RGB{R: 128, G: 128, B: 128},
		},
		{
			name:    "white reference is identity",
			ref:     RGB{R: 255, G: 255, B: 255},
			sampled: RGB{R: 12, G: 34, B: 56},
			want:    RGB{R: 12, G: 34, B: 56},
		},
		{
			name:    "warm cast removed",
			ref:     RGB{R: 255, G: 204, B: 170},
			sampled: RGB{R: 255, G: 204, B: 170},
			want:    RGB{R: 255, G: 255, B: 255},
		},
		{
			name:    "saturates at 255",
			ref:     RGB{R: 100, G: 100, B: 100},
			sampled: RGB{R: 200, G: 50, B: 0},
			want:    RGB{R: 255, G: 128, B: 0},
		},
		{
			name:    "zero reference channel guarded",
			ref:     RGB{R: 0, G: 255, B: 255},
			sampled: RGB{R: 1, G: 0, B: 0},
			want:    RGB{R: 255, G: 0, B: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MakeCorrection(tt.ref)(tt.sampled); got != tt.want {
				t.Errorf("correction(%+v) = %+v, want %+v", tt.sampled, got, tt.want)
			}
		})
	}
}

func TestWhiteBalanceUncalibratedIsIdentity(t *testing.T) {
	var wb WhiteBalance
	in := RGB{R: 10, G: 20, B: 30}

	if got := wb.Apply(in); got != in {
		t.Errorf("Apply() = %+v, want %+v", got, in)
	}
	if wb.Calibrated() {
		t.Error("zero WhiteBalance reports calibrated")
	}
	if got := Identity(in); got != in {
		t.Errorf("Identity() = %+v, want %+v", got, in)
	}
}

func TestWhiteBalanceSetAndReset(t *testing.T) {
	var wb WhiteBalance
	wb.Set(RGB{R: 200, G: 200, B: 200})

	ref, ok := wb.Reference()
	if !ok || ref != (RGB{R: 200, G: 200, B: 200}) {
		t.Fatalf("Reference() = %+v, %v", ref, ok)
	}
	if got := wb.Apply(RGB{R: 100, G: 100, B: 100}); got != (RGB{R: 128, G: 128, B: 128}) {
		t.Errorf("Apply() = %+v", got)
	}

	wb.Reset()
	if _, ok := wb.Reference(); ok {
		t.Error("Reference() still set after Reset")
	}
	if got := wb.Apply(RGB{R: 100, G: 100, B: 100}); got != (RGB{R: 100, G: 100, B: 100}) {
		t.Errorf("Apply() after Reset = %+v", got)
	}
}

func TestIsDegenerateReference(t *testing.T) {
	tests := []struct {
		name string
		ref  RGB
		want bool
	}{
		{name: "black", ref: RGB{}, want: true},
		{name: "near black", ref: RGB{R: 20, G: 20, B: 20}, want: true},
		{name: "mid grey", ref: RGB{R: 128, G: 128, B: 128}, want: false},
		{name: "white", ref: RGB{R: 255, G: 255, B: 255}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDegenerateReference(tt.ref); got != tt.want {
				t.Errorf("IsDegenerateReference(%+v) = %v, want %v", tt.ref, got, tt.want)
			}
		})
	}
}
