package capture

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func countingFunc(n *atomic.Int32) Func {
	return func(ctx context.Context) error {
		n.Add(1)
		return nil
	}
}

func TestWindowEvictsFIFO(t *testing.T) {
	var w window
	for i := range 60 {
		w.push(float64(i))
	}
	if w.n != windowCapacity {
		t.Fatalf("window length = %d, want %d", w.n, windowCapacity)
	}
	// holds 10..59 after evicting the first ten
	want := (10.0 + 59.0) / 2
	if math.Abs(w.mean()-want) > 1e-9 {
		t.Errorf("mean = %v, want %v", w.mean(), want)
	}
}

func TestNoFireBeforeWindowWarmsUp(t *testing.T) {
	var n atomic.Int32
	d := New(PresetByName("balanced"), countingFunc(&n))

	now := t0
	for i := range minSamples - 1 {
		now = now.Add(PollInterval)
		if d.Observe(0.9, 0.9, 9, 9, now) {
			t.Fatalf("fired on sample %d, before the window warmed up", i+1)
		}
	}
	if d.Observe(0.9, 0.9, 9, 9, now.Add(PollInterval)) != true {
		t.Error("did not fire once the window had enough samples")
	}
}

func TestCooldownSeparatesCaptures(t *testing.T) {
	d := New(PresetByName("balanced"), nil)

	// warm up with quiet samples so the adaptive threshold stays low
	now := t0
	for range minSamples {
		now = now.Add(PollInterval)
		d.Observe(0.1, 0, 0, 0, now)
	}

	now = now.Add(PollInterval)
	if !d.Observe(0.95, 0.9, 9, 9, now) {
		t.Fatal("first peak did not fire")
	}
	first := now

	// score stays high through the cooldown; nothing may fire
	for now.Sub(first) < d.Preset().Cooldown {
		now = now.Add(PollInterval)
		if now.Sub(first) < d.Preset().Cooldown && d.Observe(0.95, 0.9, 9, 9, now) {
			t.Fatalf("fired %v after previous capture, inside cooldown", now.Sub(first))
		}
	}
}

func TestSignificanceGate(t *testing.T) {
	d := New(PresetByName("balanced"), nil)

	now := t0
	for range minSamples {
		now = now.Add(PollInterval)
		d.Observe(0.1, 0, 0, 0, now)
	}

	// statistical threshold beaten but neither significance path satisfied
	if d.Observe(0.95, 0.2, 2, 9, now.Add(PollInterval)) {
		t.Error("fired without significance (low amp, low motion)")
	}

	// amplitude path
	if !d.Observe(0.95, 0.9, 0, 0, now.Add(2*PollInterval)) {
		t.Error("did not fire on the amplitude significance path")
	}
}

func TestMotionInteractionSignificancePath(t *testing.T) {
	d := New(PresetByName("balanced"), nil)
	now := t0
	for range minSamples {
		now = now.Add(PollInterval)
		d.Observe(0.1, 0, 0, 0, now)
	}
	if !d.Observe(0.95, 0.1, 9, 9, now.Add(PollInterval)) {
		t.Error("did not fire on the motion+interaction significance path")
	}
}

func TestDisabledDetectorNeverFires(t *testing.T) {
	d := New(PresetByName("explosive"), nil)
	d.SetEnabled(false)
	now := t0
	for range 30 {
		now = now.Add(PollInterval)
		if d.Observe(0.99, 0.99, 10, 10, now) {
			t.Fatal("disabled detector fired")
		}
	}
}

func TestAdaptiveThresholdRisesWithNoiseFloor(t *testing.T) {
	d := New(PresetByName("explosive"), nil)

	// loud room: mean near 0.5 pushes the dynamic threshold to base+0.1
	now := t0
	for range windowCapacity {
		now = now.Add(PollInterval)
		d.Observe(0.5, 0, 0, 0, now)
	}

	// a score just above base would fire in a quiet room but not here
	if d.Observe(0.5, 0.9, 9, 9, now.Add(PollInterval)) {
		t.Error("fired at the noise floor despite the adaptive threshold")
	}
	if !d.Observe(0.9, 0.9, 9, 9, now.Add(2*PollInterval)) {
		t.Error("a genuinely strong moment did not fire")
	}
}

func TestObserveNormalizesUndefinedInput(t *testing.T) {
	d := New(PresetByName("balanced"), nil)
	now := t0
	for range 20 {
		now = now.Add(PollInterval)
		d.Observe(math.NaN(), math.Inf(1), -5, math.NaN(), now)
	}
	if d.WindowLen() != 20 {
		t.Errorf("window length = %d, want 20", d.WindowLen())
	}
}

func TestCaptureFuncInvoked(t *testing.T) {
	var n atomic.Int32
	d := New(PresetByName("balanced"), countingFunc(&n))
	now := t0
	for range minSamples {
		now = now.Add(PollInterval)
		d.Observe(0.1, 0, 0, 0, now)
	}
	if !d.Observe(0.95, 0.9, 9, 9, now.Add(PollInterval)) {
		t.Fatal("peak did not fire")
	}
	deadline := time.Now().Add(time.Second)
	for n.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n.Load() != 1 {
		t.Errorf("capture func invoked %d times, want 1", n.Load())
	}
}
