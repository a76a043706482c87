// Package capture watches the composite activity score for peak moments and
// fires the screenshot collaborator when one arrives.
package capture

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/kmoroz/aurora/internal/logger"
)

const (
	// PollInterval is the cadence the owner is expected to call Observe at.
	PollInterval = 500 * time.Millisecond

	windowCapacity = 50

	// minSamples is how much history the rolling mean needs before the
	// dynamic threshold is considered stable enough to fire on.
	minSamples = 10
)

// Func is the opaque capture side-effect. It must be safe to call
// repeatedly; the detector invokes it asynchronously and only logs failures.
type Func func(ctx context.Context) error

// window is a fixed-capacity FIFO of composite scores with a running sum.
type window struct {
	buf  [windowCapacity]float64
	head int
	n    int
	sum  float64
}

func (w *window) push(v float64) {
	if w.n == windowCapacity {
		w.sum -= w.buf[w.head]
	} else {
		w.n++
	}
	w.buf[w.head] = v
	w.sum += v
	w.head = (w.head + 1) % windowCapacity
}

func (w *window) mean() float64 {
	if w.n == 0 {
		return 0
	}
	return w.sum / float64(w.n)
}

// Detector samples the composite score on a fixed poll and fires captures
// when the statistical threshold, the significance gate, and the cooldown
// all agree.
type Detector struct {
	mu       sync.Mutex
	preset   Preset
	enabled  bool
	win      window
	lastFire time.Time
	fn       Func
}

// New creates a detector with the given preset and capture collaborator.
func New(preset Preset, fn Func) *Detector {
	return &Detector{
		preset:  preset,
		enabled: true,
		fn:      fn,
	}
}

// SetEnabled toggles auto-capture.
func (d *Detector) SetEnabled(on bool) {
	d.mu.Lock()
	d.enabled = on
	d.mu.Unlock()
}

// Enabled reports whether auto-capture is on.
func (d *Detector) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// SetPreset swaps the sensitivity preset. History carries over; only the
// thresholds change.
func (d *Detector) SetPreset(p Preset) {
	d.mu.Lock()
	d.preset = p
	d.mu.Unlock()
}

// Preset returns the active preset.
func (d *Detector) Preset() Preset {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.preset
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Observe appends the composite score to the rolling window and fires the
// capture collaborator when every gate passes. Returns true when a capture
// fired. Undefined inputs are normalized, never propagated.
func (d *Detector) Observe(score, amp, motion, interaction float64, now time.Time) bool {
	score = sanitize(score)
	amp = sanitize(amp)
	motion = sanitize(motion)
	interaction = sanitize(interaction)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.win.push(score)
	if !d.enabled || d.win.n < minSamples {
		return false
	}

	// Adaptive threshold: the rolling mean plus a margin, kept within ±0.1
	// of the preset base so a noisy room raises the bar and a quiet one
	// lowers it.
	threshold := d.win.mean() + 0.1
	if threshold < d.preset.Threshold-0.1 {
		threshold = d.preset.Threshold - 0.1
	}
	if threshold > d.preset.Threshold+0.1 {
		threshold = d.preset.Threshold + 0.1
	}

	if score <= threshold {
		return false
	}
	if !d.lastFire.IsZero() && now.Sub(d.lastFire) < d.preset.Cooldown {
		return false
	}

	// Significance gate: a strong raw amplitude, or motion and interaction
	// simultaneously high. The statistical threshold alone would still fire
	// on slow drift.
	significant := amp > d.preset.SignificantAmp ||
		(motion/10 > d.preset.SignificantLevel && interaction/10 > d.preset.SignificantLevel)
	if !significant {
		return false
	}

	d.lastFire = now
	if d.fn != nil {
		go func(fn Func) {
			if err := fn(context.Background()); err != nil {
				logger.Error("capture failed", err)
			}
		}(d.fn)
	}
	logger.Debugf("peak captured: score=%.3f threshold=%.3f preset=%s", score, threshold, d.preset.Name)
	return true
}

// WindowLen reports how many samples the rolling window currently holds.
func (d *Detector) WindowLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.win.n
}
