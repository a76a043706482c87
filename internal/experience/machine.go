// Package experience governs the session lifecycle: intro, active,
// immersive, reflection.
package experience

import (
	"math"
	"sync"
	"time"
)

// State is the current experience phase. Exactly one is active per session.
type State int

const (
	Intro State = iota
	Active
	Immersive
	Reflection
)

func (s State) String() string {
	switch s {
	case Intro:
		return "intro"
	case Active:
		return "active"
	case Immersive:
		return "immersive"
	case Reflection:
		return "reflection"
	default:
		return "unknown"
	}
}

const (
	introDuration = 3 * time.Second
	idleThreshold = 60 * time.Second

	immersiveLevel = 5.0
)

// Machine transitions between states on a periodic tick and on interaction
// changes. Inputs outside the defined edges are ignored, never errors.
type Machine struct {
	mu              sync.Mutex
	state           State
	startedAt       time.Time
	lastInteraction time.Time
}

// New creates a machine in Intro as of now.
func New(now time.Time) *Machine {
	return &Machine{
		state:           Intro,
		startedAt:       now,
		lastInteraction: now,
	}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Observe evaluates the transition rules against the current interaction
// frequency. Call it on the 1s tick and whenever the frequency changes.
// Undefined input is normalized to zero.
func (m *Machine) Observe(interactionFreq float64, now time.Time) State {
	if math.IsNaN(interactionFreq) || interactionFreq < 0 {
		interactionFreq = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if interactionFreq > 0 {
		m.lastInteraction = now
	}

	switch {
	// Reflection holds until the explicit restart click; pointer noise over
	// the reflection panel must not bounce the session back out.
	case m.state == Reflection:

	// Idle override: any non-intro state falls into reflection. With any
	// current interaction lastInteraction was just refreshed, so this only
	// fires on genuine silence.
	case m.state != Intro && now.Sub(m.lastInteraction) > idleThreshold:
		m.state = Reflection

	case interactionFreq > immersiveLevel:
		m.state = Immersive

	case m.state == Intro:
		if interactionFreq > 0 || now.Sub(m.startedAt) >= introDuration {
			m.state = Active
		}

	case interactionFreq > 0:
		m.state = Active

		// Immersive with zero interaction has no defined edge: it holds
		// until the idle override fires.
	}

	return m.state
}

// ReflectionClick handles the explicit user click that ends reflection and
// restarts the session. Returns true when a full reset should happen;
// clicks in any other state report false and change nothing.
func (m *Machine) ReflectionClick(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Reflection {
		return false
	}
	m.state = Intro
	m.startedAt = now
	m.lastInteraction = now
	return true
}
