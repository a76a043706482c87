package mapping

import (
	"math"
	"testing"
)

func TestFrequencyToHueAnchors(t *testing.T) {
	tests := []struct {
		freq float64
		want float64
	}{
		{20, 270},
		{2000, 30}, // 390 wraps past 360
		{-500, 270},
		{99999, 30},
		{math.NaN(), 270}, // NaN normalizes to 0, clamped up to 20 Hz
	}
	for _, tt := range tests {
		got := FrequencyToHue(tt.freq)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("FrequencyToHue(%v) = %v, want %v", tt.freq, got, tt.want)
		}
	}
}

func TestFrequencyToHueRange(t *testing.T) {
	for f := -100.0; f < 5000; f += 7.3 {
		h := FrequencyToHue(f)
		if h < 0 || h >= 360 {
			t.Fatalf("FrequencyToHue(%v) = %v, out of [0,360)", f, h)
		}
	}
}

func TestAmplitudeToIntensityMonotone(t *testing.T) {
	prev := -1.0
	for a := 0.0; a <= 1.0; a += 0.01 {
		v := AmplitudeToIntensity(a)
		if v < 0 || v > 10 {
			t.Fatalf("AmplitudeToIntensity(%v) = %v, out of [0,10]", a, v)
		}
		if v < prev {
			t.Fatalf("AmplitudeToIntensity not monotone at %v: %v < %v", a, v, prev)
		}
		prev = v
	}
	if got := AmplitudeToIntensity(1); got != 10 {
		t.Errorf("AmplitudeToIntensity(1) = %v, want 10", got)
	}
	if got := AmplitudeToIntensity(math.NaN()); got != 0 {
		t.Errorf("AmplitudeToIntensity(NaN) = %v, want 0", got)
	}
}

func TestCompositeWeights(t *testing.T) {
	if got := Composite(1, 10, 10); math.Abs(got-1) > 1e-9 {
		t.Errorf("Composite(max) = %v, want 1", got)
	}
	if got := Composite(0, 0, 0); got != 0 {
		t.Errorf("Composite(zero) = %v, want 0", got)
	}
	// amplitude carries weight 0.4
	if got := Composite(0.5, 0, 0); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("Composite(0.5,0,0) = %v, want 0.2", got)
	}
	// inputs beyond range are clamped, not propagated
	if got := Composite(5, 50, math.Inf(1)); got > 1 {
		t.Errorf("Composite(overrange) = %v, want <= 1", got)
	}
}

func TestHueSector(t *testing.T) {
	tests := []struct {
		hue  float64
		n    int
		want int
	}{
		{0, 4, 0},
		{89, 4, 0},
		{90, 4, 1},
		{359.9, 4, 3},
		{360, 4, 0}, // wraps
		{-30, 4, 3}, // negative wraps
		{180, 1, 0},
		{10, 0, 0}, // degenerate n
	}
	for _, tt := range tests {
		if got := HueSector(tt.hue, tt.n); got != tt.want {
			t.Errorf("HueSector(%v, %d) = %d, want %d", tt.hue, tt.n, got, tt.want)
		}
	}
}

func TestHueToRootStaysLow(t *testing.T) {
	for h := 0.0; h < 720; h += 3.7 {
		f := HueToRoot(h)
		if f < 55 || f > 220 {
			t.Fatalf("HueToRoot(%v) = %v Hz, out of [55,220]", h, f)
		}
	}
	// stable within a degree band: no glissando under jitter
	if HueToRoot(100) != HueToRoot(101) {
		t.Error("HueToRoot changed across a 1-degree jitter inside one band")
	}
}
