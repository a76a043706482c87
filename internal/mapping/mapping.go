// Package mapping translates raw audio features into the control values that
// drive the visual field and the sound engine. All functions are total:
// NaN and infinite inputs are treated as zero.
package mapping

import "math"

const (
	// Microphone frequencies outside this range carry mostly noise, so the
	// hue mapping clamps to it.
	minFreq = 20.0
	maxFreq = 2000.0

	// Hue stays inside the purple-to-cyan aurora palette regardless of the
	// raw input scale. 390 wraps to 30.
	hueLow  = 270.0
	hueSpan = 120.0
)

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	v = sanitize(v)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FrequencyToHue maps a dominant frequency in Hz to a hue in [0, 360).
// 20 Hz maps to 270, 2000 Hz to 390 which wraps to 30.
func FrequencyToHue(freq float64) float64 {
	freq = Clamp(freq, minFreq, maxFreq)
	hue := hueLow + (freq-minFreq)/(maxFreq-minFreq)*hueSpan
	return math.Mod(hue, 360)
}

// AmplitudeToIntensity maps a normalized amplitude to a [0, 10] intensity.
// The sub-linear exponent keeps quiet sounds perceptible while loud input
// saturates.
func AmplitudeToIntensity(amp float64) float64 {
	amp = Clamp(amp, 0, 1)
	return math.Min(10, math.Pow(amp, 0.7)*10)
}

// Composite blends amplitude with normalized motion and interaction into a
// single activity score. The same formula modulates the sound engine and
// feeds the peak detector.
func Composite(amp, motion, interaction float64) float64 {
	amp = Clamp(amp, 0, 1)
	motion = Clamp(motion, 0, 10)
	interaction = Clamp(interaction, 0, 10)
	return amp*0.4 + motion/10*0.35 + interaction/10*0.25
}

// HueSector partitions the hue circle into n equal arcs and returns the
// index of the arc containing hue. n must be positive.
func HueSector(hue float64, n int) int {
	if n <= 0 {
		return 0
	}
	hue = math.Mod(sanitize(hue), 360)
	if hue < 0 {
		hue += 360
	}
	s := int(hue / (360 / float64(n)))
	if s >= n {
		s = n - 1
	}
	return s
}

// Minor pentatonic degrees in semitones.
var pentatonic = [5]float64{0, 3, 5, 7, 10}

// HueToRoot picks a drone root frequency from the hue by snapping to a
// pentatonic degree over a 55 Hz root, one octave up per half turn. Nearby
// hues land on nearby degrees so slow hue drift produces melodic motion
// instead of glissando.
func HueToRoot(hue float64) float64 {
	hue = math.Mod(sanitize(hue), 360)
	if hue < 0 {
		hue += 360
	}
	degree := pentatonic[int(hue/72)%5]
	octave := 0.0
	if hue >= 180 {
		octave = 1
	}
	return 55.0 * math.Pow(2, octave+degree/12)
}
