package capture

import "time"

// Preset bundles the activation threshold and cooldown controlling how
// eagerly captures fire.
type Preset struct {
	Name string

	// Threshold is the base composite score a moment must beat. The dynamic
	// threshold floats within ±0.1 of it.
	Threshold float64

	// Cooldown is the minimum spacing between captures.
	Cooldown time.Duration

	// SignificantAmp is the raw amplitude that alone marks a moment as
	// genuinely strong.
	SignificantAmp float64

	// SignificantLevel is the normalized motion and interaction level that
	// together mark a strong moment.
	SignificantLevel float64
}

var presets = map[string]Preset{
	"subtle": {
		Name:             "subtle",
		Threshold:        0.75,
		Cooldown:         12 * time.Second,
		SignificantAmp:   0.7,
		SignificantLevel: 0.6,
	},
	"balanced": {
		Name:             "balanced",
		Threshold:        0.6,
		Cooldown:         8 * time.Second,
		SignificantAmp:   0.55,
		SignificantLevel: 0.5,
	},
	"explosive": {
		Name:             "explosive",
		Threshold:        0.45,
		Cooldown:         5 * time.Second,
		SignificantAmp:   0.4,
		SignificantLevel: 0.35,
	},
}

// PresetByName returns the named preset, falling back to balanced.
func PresetByName(name string) Preset {
	if p, ok := presets[name]; ok {
		return p
	}
	return presets["balanced"]
}

// PresetNames returns the cycle order for the UI.
func PresetNames() []string {
	return []string{"subtle", "balanced", "explosive"}
}
