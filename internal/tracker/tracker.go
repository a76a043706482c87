// Package tracker maintains the leaky-bucket activity accumulators: a value
// rises on events and decays toward zero on a fixed tick, approximating
// "recent activity" rather than an exact rate.
package tracker

import (
	"math"
	"sync"
	"time"
)

const (
	maxLevel = 10.0

	// TickInterval is the cadence the owner is expected to call Tick at.
	TickInterval = 100 * time.Millisecond

	motionDecayPerTick = 0.1

	interactionDecay      = 0.5
	interactionDecayDelay = 2 * time.Second
)

// Tracker accumulates motion intensity and interaction frequency. All reads
// and writes are clamped to [0,10].
type Tracker struct {
	mu          sync.Mutex
	motion      float64
	interaction float64

	// each interaction increment schedules one decay step
	decayDue []time.Time

	lastAudioBump time.Time
}

// New creates a zeroed tracker.
func New() *Tracker {
	return &Tracker{}
}

func clampLevel(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > maxLevel {
		return maxLevel
	}
	return v
}

// AddMotion raises motion intensity by the pointer movement magnitude.
func (t *Tracker) AddMotion(mag float64) {
	if math.IsNaN(mag) || mag <= 0 {
		return
	}
	t.mu.Lock()
	t.motion = clampLevel(t.motion + mag)
	t.mu.Unlock()
}

// AddInteraction registers a click or tap. Each increment schedules a decay
// step that Tick applies once the delay has elapsed.
func (t *Tracker) AddInteraction(n float64, now time.Time) {
	if math.IsNaN(n) || n <= 0 {
		return
	}
	t.mu.Lock()
	t.interaction = clampLevel(t.interaction + n)
	t.decayDue = append(t.decayDue, now.Add(interactionDecayDelay))
	t.mu.Unlock()
}

// AddAudioInteraction treats a loud moment as a tap-like event, scaled by
// amplitude and rate-limited to once per second so sustained sound does not
// saturate the bucket.
func (t *Tracker) AddAudioInteraction(amp float64, now time.Time) {
	if math.IsNaN(amp) || amp < 0.6 {
		return
	}
	t.mu.Lock()
	if now.Sub(t.lastAudioBump) < time.Second {
		t.mu.Unlock()
		return
	}
	t.lastAudioBump = now
	t.interaction = clampLevel(t.interaction + amp)
	t.decayDue = append(t.decayDue, now.Add(interactionDecayDelay))
	t.mu.Unlock()
}

// Tick applies decay. The owner calls it every TickInterval; time is passed
// in explicitly so tests never wait on the wall clock.
func (t *Tracker) Tick(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.motion = clampLevel(t.motion - motionDecayPerTick)

	kept := t.decayDue[:0]
	for _, due := range t.decayDue {
		if now.Before(due) {
			kept = append(kept, due)
			continue
		}
		t.interaction = clampLevel(t.interaction - interactionDecay)
		// keep draining until the bucket is empty
		if t.interaction > 0 {
			kept = append(kept, due.Add(interactionDecayDelay))
		}
	}
	t.decayDue = kept
}

// Motion returns the current motion intensity in [0,10].
func (t *Tracker) Motion() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.motion
}

// Interaction returns the current interaction frequency in [0,10].
func (t *Tracker) Interaction() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interaction
}

// Reset zeroes both accumulators and drops pending decays.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.motion = 0
	t.interaction = 0
	t.decayDue = nil
	t.lastAudioBump = time.Time{}
}
