package session

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kmoroz/aurora/internal/capture"
	"github.com/kmoroz/aurora/internal/config"
	"github.com/kmoroz/aurora/internal/engine"
	"github.com/kmoroz/aurora/internal/experience"
	"github.com/kmoroz/aurora/internal/signal"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeAcquirer struct {
	mu      sync.Mutex
	fn      signal.FrameFunc
	started int
	stopped int
	failErr error
}

func (f *fakeAcquirer) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.started++
	return nil
}

func (f *fakeAcquirer) Stop() {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
}

func (f *fakeAcquirer) SetFrameFunc(fn signal.FrameFunc) { f.fn = fn }
func (f *fakeAcquirer) CurrentLevel() float64            { return 0 }

type fakeEngine struct {
	mu      sync.Mutex
	started int
	stopped int
	updates []engine.Params
	volume  float64
}

func (f *fakeEngine) Start() error {
	f.mu.Lock()
	f.started++
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) Update(p engine.Params) {
	f.mu.Lock()
	f.updates = append(f.updates, p)
	f.mu.Unlock()
}

func (f *fakeEngine) SetVolume(v float64) {
	f.mu.Lock()
	f.volume = v
	f.mu.Unlock()
}

func (f *fakeEngine) Stop() {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
}

func testSession(t *testing.T) (*Session, *fakeAcquirer, *fakeEngine) {
	t.Helper()
	cfg := config.Default()
	cfg.Microphone = true
	cfg.CapturesDir = t.TempDir()
	acq := &fakeAcquirer{}
	eng := &fakeEngine{}
	return New(cfg, acq, eng, t0), acq, eng
}

func TestStartBringsUpEngineAndMic(t *testing.T) {
	s, acq, eng := testSession(t)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if eng.started != 1 {
		t.Errorf("engine started %d times, want 1", eng.started)
	}
	if acq.started != 1 {
		t.Errorf("acquirer started %d times, want 1", acq.started)
	}
	if !s.Snapshot().MicOn {
		t.Error("snapshot reports mic off after a successful start")
	}
}

func TestStartSurvivesMicFailure(t *testing.T) {
	s, acq, eng := testSession(t)
	acq.failErr = signal.ErrPermissionDenied

	err := s.Start()
	if err == nil {
		t.Fatal("expected the mic error to surface")
	}
	if eng.started != 1 {
		t.Error("engine did not start despite the mic failing")
	}
	if s.Snapshot().MicOn {
		t.Error("snapshot reports mic on after a failed start")
	}
}

func TestFrameUpdatesControlState(t *testing.T) {
	s, _, _ := testSession(t)
	s.onFrame(signal.Frame{Amplitude: 0.5, Frequency: 440})

	snap := s.Snapshot()
	if snap.Amplitude != 0.5 {
		t.Errorf("Amplitude = %v, want 0.5", snap.Amplitude)
	}
	if snap.Hue < 270 || snap.Hue > 390 {
		t.Errorf("Hue = %v, want inside the mapped band", snap.Hue)
	}
	if snap.Frequency != 440 {
		t.Errorf("Frequency = %v, want 440", snap.Frequency)
	}
}

func TestTickDrivesEngine(t *testing.T) {
	s, _, eng := testSession(t)
	s.onFrame(signal.Frame{Amplitude: 0.4, Frequency: 220})
	s.Tick(t0)

	eng.mu.Lock()
	defer eng.mu.Unlock()
	if len(eng.updates) != 1 {
		t.Fatalf("engine got %d updates, want 1", len(eng.updates))
	}
	if eng.updates[0].Amplitude != 0.4 {
		t.Errorf("engine amplitude = %v, want 0.4", eng.updates[0].Amplitude)
	}
}

func TestTickCadences(t *testing.T) {
	s, _, _ := testSession(t)
	s.trk.AddMotion(0.25)

	// two ticks inside one tracker interval decay only once
	s.Tick(t0)
	s.Tick(t0.Add(30 * time.Millisecond))
	if got := s.trk.Motion(); math.Abs(got-0.15) > 1e-9 {
		t.Errorf("Motion = %v, want a single 0.1 decay", got)
	}

	s.Tick(t0.Add(130 * time.Millisecond))
	if got := s.trk.Motion(); math.Abs(got-0.05) > 1e-9 {
		t.Errorf("Motion = %v, want 0.05 after the second interval", got)
	}
}

func TestClickAdvancesExperience(t *testing.T) {
	s, _, _ := testSession(t)
	if reset := s.Click(t0.Add(time.Second)); reset {
		t.Fatal("click outside reflection reported a reset")
	}
	if got := s.Snapshot().State; got != experience.Active {
		t.Errorf("state = %v, want active after a click", got)
	}
}

func TestIdleReachesReflectionAndClickRestarts(t *testing.T) {
	s, _, _ := testSession(t)
	s.Click(t0.Add(time.Second))

	// walk forward on the experience cadence; the interaction bucket
	// drains, then the idle threshold tips the state into reflection
	now := t0
	for range 100 {
		now = now.Add(2 * time.Second)
		s.Tick(now)
	}
	if got := s.Snapshot().State; got != experience.Reflection {
		t.Fatalf("state = %v, want reflection after a long idle", got)
	}

	if reset := s.Click(now.Add(time.Second)); !reset {
		t.Fatal("reflection click did not reset")
	}
	snap := s.Snapshot()
	if snap.State != experience.Intro {
		t.Errorf("state = %v, want intro after the restart", snap.State)
	}
	if snap.Motion != 0 || snap.Interaction != 0 {
		t.Errorf("trackers not zeroed: motion=%v interaction=%v", snap.Motion, snap.Interaction)
	}
	if len(s.Words()) != 0 {
		t.Error("restart left words on screen")
	}
}

func TestPointerMoveRaisesMotion(t *testing.T) {
	s, _, _ := testSession(t)
	s.PointerMove(30, 10, 12, 4, t0)
	if got := s.Snapshot().Motion; got <= 0 {
		t.Errorf("Motion = %v, want > 0 after pointer movement", got)
	}
}

func TestAdjustVolume(t *testing.T) {
	s, _, eng := testSession(t)
	if got := s.AdjustVolume(0.5); got != 1 {
		t.Errorf("volume = %v, want clamped to 1", got)
	}
	if got := s.AdjustVolume(-2); got != 0 {
		t.Errorf("volume = %v, want clamped to 0", got)
	}
	if eng.volume != 0 {
		t.Errorf("engine volume = %v, want 0", eng.volume)
	}
}

func TestToggleMic(t *testing.T) {
	s, acq, _ := testSession(t)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	on, err := s.ToggleMic()
	if err != nil || on {
		t.Fatalf("ToggleMic() = %v, %v, want off without error", on, err)
	}
	if acq.stopped != 1 {
		t.Errorf("acquirer stopped %d times, want 1", acq.stopped)
	}

	on, err = s.ToggleMic()
	if err != nil || !on {
		t.Fatalf("ToggleMic() = %v, %v, want back on", on, err)
	}
}

func TestCyclePresetWraps(t *testing.T) {
	s, _, _ := testSession(t)
	start := s.Snapshot().Preset

	seen := map[string]bool{start: true}
	names := capture.PresetNames()
	for range len(names) {
		seen[s.CyclePreset()] = true
	}
	if len(seen) != len(names) {
		t.Errorf("cycling visited %d presets, want %d", len(seen), len(names))
	}
	if got := s.Snapshot().Preset; got != start {
		t.Errorf("full cycle ended on %q, want back at %q", got, start)
	}
}

func TestToggleAutoCapture(t *testing.T) {
	s, _, _ := testSession(t)
	was := s.Snapshot().AutoCapture
	if got := s.ToggleAutoCapture(); got == was {
		t.Errorf("ToggleAutoCapture() = %v, want flipped from %v", got, was)
	}
}

func TestCaptureMomentWritesFile(t *testing.T) {
	s, _, _ := testSession(t)
	s.onFrame(signal.Frame{Amplitude: 0.7, Frequency: 880})

	if err := s.captureMoment(t.Context()); err != nil {
		t.Fatalf("captureMoment: %v", err)
	}

	entries, err := os.ReadDir(s.cfg.CapturesDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("captures dir has %d files, want 1", len(entries))
	}
	if !strings.HasPrefix(entries[0].Name(), "moment-") {
		t.Errorf("capture file %q lacks the moment prefix", entries[0].Name())
	}

	data, err := os.ReadFile(filepath.Join(s.cfg.CapturesDir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "amplitude: 0.7") {
		t.Errorf("capture file missing the amplitude:\n%s", data)
	}
	if got := s.Snapshot().Captures; got != 1 {
		t.Errorf("capture count = %d, want 1", got)
	}
}

func TestCapturePreservesRenderedFrame(t *testing.T) {
	s, _, _ := testSession(t)
	s.SetLastFrame("··:++≡#≡++:··")

	if err := s.captureMoment(t.Context()); err != nil {
		t.Fatalf("captureMoment: %v", err)
	}

	entries, err := os.ReadDir(s.cfg.CapturesDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("captures dir has %d files, want moment and frame", len(entries))
	}

	var frameName string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "frame-") {
			frameName = e.Name()
		}
	}
	if frameName == "" {
		t.Fatal("no frame file written alongside the moment")
	}
	data, err := os.ReadFile(filepath.Join(s.cfg.CapturesDir, frameName))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "··:++≡#≡++:··" {
		t.Errorf("frame file = %q, want the stored frame", data)
	}
}

func TestSaveFavoriteRequiresHaiku(t *testing.T) {
	s, _, _ := testSession(t)
	if err := s.SaveFavorite(t0); err == nil {
		t.Error("expected an error with no haiku generated yet")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s, acq, eng := testSession(t)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	s.Close()
	s.Close()
	if acq.stopped != 1 {
		t.Errorf("acquirer stopped %d times, want 1", acq.stopped)
	}
	if eng.stopped != 1 {
		t.Errorf("engine stopped %d times, want 1", eng.stopped)
	}
}
