// Package session wires the acquirer, mapper, tracker, experience machine,
// peak detector, words, and sound engine into one controller the UI drives
// with tick messages. All periodic work happens on times the caller passes
// in; the session keeps no timers of its own.
package session

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kmoroz/aurora/internal/capture"
	"github.com/kmoroz/aurora/internal/config"
	"github.com/kmoroz/aurora/internal/engine"
	"github.com/kmoroz/aurora/internal/experience"
	"github.com/kmoroz/aurora/internal/favorites"
	"github.com/kmoroz/aurora/internal/haiku"
	"github.com/kmoroz/aurora/internal/logger"
	"github.com/kmoroz/aurora/internal/mapping"
	"github.com/kmoroz/aurora/internal/signal"
	"github.com/kmoroz/aurora/internal/tracker"
	"github.com/kmoroz/aurora/internal/words"
)

// Snapshot is one consistent read of everything the renderer needs.
type Snapshot struct {
	Hue         float64
	Amplitude   float64
	Frequency   float64
	Intensity   float64
	Composite   float64
	Motion      float64
	Interaction float64
	State       experience.State
	Volume      float64
	MicOn       bool
	AutoCapture bool
	Preset      string
	Captures    int
}

// moment is what an auto-capture writes to disk: the control values at the
// instant the detector fired.
type moment struct {
	Time        time.Time `yaml:"time"`
	Hue         float64   `yaml:"hue"`
	Amplitude   float64   `yaml:"amplitude"`
	Motion      float64   `yaml:"motion"`
	Interaction float64   `yaml:"interaction"`
	Composite   float64   `yaml:"composite"`
	State       string    `yaml:"state"`
}

// Session owns the control state and every collaborator behind it.
type Session struct {
	cfg  *config.Config
	acq  signal.Acquirer
	eng  engine.Engine
	trk  *tracker.Tracker
	exp  *experience.Machine
	det  *capture.Detector
	wrds *words.Manager
	gen  *haiku.Generator
	favs *favorites.Store

	mu        sync.Mutex
	hue       float64
	amp       float64
	freq      float64
	volume    float64
	micOn     bool
	closed    bool
	captures  int
	lastHaiku string
	lastFrame string

	lastTrackerTick time.Time
	lastExpTick     time.Time
	lastDetPoll     time.Time
}

// New builds a session around an already constructed acquirer and engine.
// The haiku generator is optional: without an API key the reflection panel
// falls back to the built-in verse.
func New(cfg *config.Config, acq signal.Acquirer, eng engine.Engine, now time.Time) *Session {
	s := &Session{
		cfg:    cfg,
		acq:    acq,
		eng:    eng,
		trk:    tracker.New(),
		exp:    experience.New(now),
		wrds:   words.New(now.UnixNano()),
		volume: cfg.Volume,
	}
	s.det = capture.New(capture.PresetByName(cfg.Sensitivity), s.captureMoment)
	s.det.SetEnabled(cfg.AutoCapture)

	if cfg.OpenAIKey != "" {
		gen, err := haiku.New(cfg)
		if err == nil {
			s.gen = gen
		} else {
			logger.Warnf("haiku generator disabled: %v", err)
		}
	}
	if dir, err := config.DataDir(); err == nil {
		s.favs = favorites.NewStore(dir)
	} else {
		logger.Warnf("favorites disabled: %v", err)
	}

	acq.SetFrameFunc(s.onFrame)
	return s
}

// Start brings up the engine, then the acquirer. A failing microphone is
// not fatal: the experience runs without live audio and reports the error
// for the UI to surface.
func (s *Session) Start() error {
	if err := s.eng.Start(); err != nil {
		return fmt.Errorf("starting sound engine: %w", err)
	}

	if !s.cfg.Microphone {
		return nil
	}
	if err := s.acq.Start(); err != nil {
		logger.Warnf("audio capture unavailable: %v", err)
		return err
	}
	s.mu.Lock()
	s.micOn = true
	s.mu.Unlock()
	return nil
}

// onFrame receives one analysis frame from the acquirer's dispatch
// goroutine.
func (s *Session) onFrame(f signal.Frame) {
	now := time.Now()
	s.trk.AddAudioInteraction(f.Amplitude, now)

	s.mu.Lock()
	s.hue = mapping.FrequencyToHue(f.Frequency)
	s.amp = mapping.Clamp(f.Amplitude, 0, 1)
	s.freq = f.Frequency
	s.mu.Unlock()
}

// Tick multiplexes the UI frame tick onto the slower component cadences and
// pushes the current control values into the engine.
func (s *Session) Tick(now time.Time) {
	if now.Sub(s.lastTrackerTick) >= tracker.TickInterval {
		s.lastTrackerTick = now
		s.trk.Tick(now)
	}
	if now.Sub(s.lastExpTick) >= time.Second {
		s.lastExpTick = now
		s.exp.Observe(s.trk.Interaction(), now)
	}

	snap := s.Snapshot()
	s.eng.Update(engine.Params{
		Hue:         snap.Hue,
		Amplitude:   snap.Amplitude,
		Motion:      snap.Motion,
		Interaction: snap.Interaction,
		Now:         now,
	})
	s.wrds.Tick(now)

	if now.Sub(s.lastDetPoll) >= capture.PollInterval {
		s.lastDetPoll = now
		s.det.Observe(snap.Composite, snap.Amplitude, snap.Motion, snap.Interaction, now)
	}
}

// PointerMove feeds pointer motion into the tracker and gives the words
// manager a spawn opportunity at the pointer cell.
func (s *Session) PointerMove(dx, dy float64, x, y int, now time.Time) {
	mag := math.Hypot(dx, dy)
	// a full-screen sweep counts for about one level
	s.trk.AddMotion(mag / 40)
	s.wrds.Spawn(x, y, s.trk.Interaction(), now)
}

// Click registers an interaction. In reflection it instead performs the
// restart: state back to intro, trackers zeroed, words dismissed, sound
// uninterrupted. Returns true when that reset happened.
func (s *Session) Click(now time.Time) bool {
	if s.exp.ReflectionClick(now) {
		s.trk.Reset()
		s.wrds.DismissAll()
		s.mu.Lock()
		s.lastHaiku = ""
		s.mu.Unlock()
		logger.Info("session restarted from reflection")
		return true
	}
	s.trk.AddInteraction(1, now)
	s.exp.Observe(s.trk.Interaction(), now)
	return false
}

// Snapshot returns a consistent copy of the control state.
func (s *Session) Snapshot() Snapshot {
	motion := s.trk.Motion()
	interaction := s.trk.Interaction()

	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Hue:         s.hue,
		Amplitude:   s.amp,
		Frequency:   s.freq,
		Intensity:   mapping.AmplitudeToIntensity(s.amp),
		Composite:   mapping.Composite(s.amp, motion, interaction),
		Motion:      motion,
		Interaction: interaction,
		State:       s.exp.State(),
		Volume:      s.volume,
		MicOn:       s.micOn,
		AutoCapture: s.det.Enabled(),
		Preset:      s.det.Preset().Name,
		Captures:    s.captures,
	}
}

// Words returns the live ephemeral words for the renderer.
func (s *Session) Words() []words.Word {
	return s.wrds.Active()
}

// ToggleMic flips audio capture on or off. The returned bool is the new
// state; the error reports a failed start.
func (s *Session) ToggleMic() (bool, error) {
	s.mu.Lock()
	on := s.micOn
	s.mu.Unlock()

	if on {
		s.acq.Stop()
		s.mu.Lock()
		s.micOn = false
		s.amp, s.freq = 0, 0
		s.mu.Unlock()
		return false, nil
	}

	if err := s.acq.Start(); err != nil {
		return false, err
	}
	s.mu.Lock()
	s.micOn = true
	s.mu.Unlock()
	return true, nil
}

// AdjustVolume nudges the engine volume and returns the new level.
func (s *Session) AdjustVolume(delta float64) float64 {
	s.mu.Lock()
	s.volume = mapping.Clamp(s.volume+delta, 0, 1)
	v := s.volume
	s.mu.Unlock()
	s.eng.SetVolume(v)
	return v
}

// CyclePreset advances to the next sensitivity preset and returns its name.
func (s *Session) CyclePreset() string {
	names := capture.PresetNames()
	cur := s.det.Preset().Name
	next := names[0]
	for i, n := range names {
		if n == cur {
			next = names[(i+1)%len(names)]
			break
		}
	}
	s.det.SetPreset(capture.PresetByName(next))
	return next
}

// EngineInfo names the active sound engine, including the leading bed
// when the sample-bed engine is running.
func (s *Session) EngineInfo() string {
	switch e := s.eng.(type) {
	case *engine.Beds:
		return fmt.Sprintf("beds (%s)", e.ActiveBed())
	case *engine.Drone:
		return "drone"
	default:
		return string(s.cfg.Engine)
	}
}

// ToggleAutoCapture flips the detector and returns the new state.
func (s *Session) ToggleAutoCapture() bool {
	on := !s.det.Enabled()
	s.det.SetEnabled(on)
	return on
}

// Haiku produces a verse for the reflection panel. Remote failures fall
// back to the built-in verse and surface the error so the UI can show a
// notice alongside it.
func (s *Session) Haiku(ctx context.Context) (string, error) {
	var (
		text string
		err  error
	)
	if s.gen != nil {
		text, err = s.gen.Generate(ctx, s.mood())
	}
	if text == "" {
		text = haiku.Fallback()
	}

	s.mu.Lock()
	s.lastHaiku = text
	s.mu.Unlock()
	return text, err
}

// mood summarizes the current control state as a short theme phrase.
func (s *Session) mood() string {
	snap := s.Snapshot()

	tone := "hushed"
	switch {
	case snap.Interaction > 5:
		tone = "charged"
	case snap.Interaction > 1.5:
		tone = "flowing"
	}

	color := "deep violet"
	switch {
	case snap.Hue >= 330 || snap.Hue < 30:
		color = "warm rose"
	case snap.Hue >= 300:
		color = "magenta"
	}
	return fmt.Sprintf("%s, %s light", tone, color)
}

// SaveFavorite persists the most recent haiku for the configured user.
func (s *Session) SaveFavorite(now time.Time) error {
	s.mu.Lock()
	text := s.lastHaiku
	s.mu.Unlock()

	if text == "" {
		return fmt.Errorf("no haiku to save yet")
	}
	if s.favs == nil {
		return fmt.Errorf("favorites storage unavailable")
	}
	return s.favs.Save(s.cfg.UserID, text, now)
}

// SetLastFrame stores the most recent rendered frame so a capture can
// preserve what was on screen at the moment it fired.
func (s *Session) SetLastFrame(frame string) {
	s.mu.Lock()
	s.lastFrame = frame
	s.mu.Unlock()
}

// captureMoment is the detector's capture collaborator: it writes the
// moment file, plus the last rendered frame when one is available, into
// the configured captures directory.
func (s *Session) captureMoment(ctx context.Context) error {
	snap := s.Snapshot()
	m := moment{
		Time:        time.Now(),
		Hue:         snap.Hue,
		Amplitude:   snap.Amplitude,
		Motion:      snap.Motion,
		Interaction: snap.Interaction,
		Composite:   snap.Composite,
		State:       snap.State.String(),
	}

	dir := s.cfg.CapturesDir
	if dir == "" {
		base, err := config.DataDir()
		if err != nil {
			return err
		}
		dir = filepath.Join(base, "captures")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating captures dir: %w", err)
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return err
	}
	stamp := m.Time.Format("20060102-150405.000")
	path := filepath.Join(dir, "moment-"+stamp+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing capture: %w", err)
	}

	s.mu.Lock()
	frame := s.lastFrame
	s.captures++
	s.mu.Unlock()

	if frame != "" {
		framePath := filepath.Join(dir, "frame-"+stamp+".txt")
		if err := os.WriteFile(framePath, []byte(frame), 0o644); err != nil {
			return fmt.Errorf("writing frame capture: %w", err)
		}
	}
	logger.Infof("captured moment to %s", path)
	return nil
}

// Close shuts everything down. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.acq.Stop()
	s.eng.Stop()
	s.det.SetEnabled(false)
	logger.Info("session closed")
}
