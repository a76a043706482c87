// Package words emits short-lived drifting words over the visual field,
// picked to match the current activity level.
package words

import (
	"math/rand"
	"sync"
	"time"
)

const (
	fadeIn   = 400 * time.Millisecond
	hold     = 1600 * time.Millisecond
	fadeOut  = time.Second
	lifetime = fadeIn + hold + fadeOut

	spawnCooldown = 600 * time.Millisecond
	maxActive     = 6
)

// Word is one ephemeral overlay. Opacity follows a fixed envelope from
// CreatedAt: fade in, hold, fade out, gone.
type Word struct {
	Text      string
	X, Y      int
	Opacity   float64
	CreatedAt time.Time
}

// Word banks by mood tier; interaction frequency picks the tier.
var (
	calmWords = []string{
		"drift", "hush", "slow light", "breathe", "still", "low tide",
		"dusk", "settle", "quiet", "veil",
	}
	flowingWords = []string{
		"ripple", "current", "unfold", "weave", "glide", "trace",
		"shimmer", "bloom", "turn", "arc",
	}
	chargedWords = []string{
		"surge", "ignite", "cascade", "fracture", "pulse", "flare",
		"spiral", "rush", "storm glass", "burst",
	}
)

// Manager owns the active word set.
type Manager struct {
	mu        sync.Mutex
	active    []Word
	lastSpawn time.Time
	rng       *rand.Rand
}

// New creates a manager. The seed keeps tests deterministic.
func New(seed int64) *Manager {
	return &Manager{rng: rand.New(rand.NewSource(seed))}
}

func bank(interaction float64) []string {
	switch {
	case interaction > 5:
		return chargedWords
	case interaction > 1.5:
		return flowingWords
	default:
		return calmWords
	}
}

// Spawn considers emitting a word at the pointer position. Spawns are
// cooled down and probabilistic, with the probability rising alongside
// interaction so a busy field speaks more often.
func (m *Manager) Spawn(x, y int, interaction float64, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSpawn) < spawnCooldown || len(m.active) >= maxActive {
		return
	}
	p := 0.12 + interaction/10*0.5
	if m.rng.Float64() > p {
		return
	}

	words := bank(interaction)
	m.active = append(m.active, Word{
		Text:      words[m.rng.Intn(len(words))],
		X:         x,
		Y:         y,
		CreatedAt: now,
	})
	m.lastSpawn = now
}

// Tick advances every envelope and drops words whose fade-out finished.
func (m *Manager) Tick(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.active[:0]
	for _, w := range m.active {
		age := now.Sub(w.CreatedAt)
		if age >= lifetime {
			continue
		}
		switch {
		case age < fadeIn:
			w.Opacity = float64(age) / float64(fadeIn)
		case age < fadeIn+hold:
			w.Opacity = 1
		default:
			w.Opacity = 1 - float64(age-fadeIn-hold)/float64(fadeOut)
		}
		kept = append(kept, w)
	}
	m.active = kept
}

// Active returns a snapshot of the live words.
func (m *Manager) Active() []Word {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Word, len(m.active))
	copy(out, m.active)
	return out
}

// DismissAll clears every word immediately.
func (m *Manager) DismissAll() {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
}
