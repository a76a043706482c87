package engine

import (
	"math"
	"testing"
)

func TestSmootherApproachesTargetWithoutJumps(t *testing.T) {
	s := newSmoother(0, 0.05)
	s.setTarget(1)

	prev := 0.0
	maxDelta := 0.0
	for range sampleRate / 2 {
		cur := s.step()
		d := math.Abs(cur - prev)
		if d > maxDelta {
			maxDelta = d
		}
		prev = cur
	}

	if !s.settled() {
		t.Errorf("smoother not settled after half a second, cur=%f", s.cur)
	}
	// a 50ms time constant moves well under 1% of the range per sample
	if maxDelta > 0.01 {
		t.Errorf("per-sample delta %f too large for a smooth ramp", maxDelta)
	}
}

func TestSmootherRetargetMidRamp(t *testing.T) {
	s := newSmoother(0, 0.02)
	s.setTarget(1)
	for range 100 {
		s.step()
	}
	mid := s.cur
	s.setTarget(0)
	next := s.step()
	if math.Abs(next-mid) > 0.01 {
		t.Errorf("retarget jumped from %f to %f", mid, next)
	}
}

func TestLpCoeffBounds(t *testing.T) {
	tests := []struct {
		name   string
		cutoff float64
	}{
		{"below floor", -50},
		{"normal", 800},
		{"above nyquist", 90000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := lpCoeff(tt.cutoff)
			if c <= 0 || c >= 1 {
				t.Errorf("lpCoeff(%f) = %f, want in (0,1)", tt.cutoff, c)
			}
		})
	}
}

func TestOscStaysBounded(t *testing.T) {
	var o osc
	for i := range 10000 {
		s := o.next(440)
		if s < -1 || s > 1 {
			t.Fatalf("sample %d out of range: %f", i, s)
		}
	}
}

func TestWriteFrameClips(t *testing.T) {
	p := make([]byte, frameSize)
	writeFrame(p, 0, 2.0, -2.0)

	l := int16(p[0]) | int16(p[1])<<8
	r := int16(p[2]) | int16(p[3])<<8
	if l != 32767 {
		t.Errorf("left clip = %d, want 32767", l)
	}
	if r != -32768 {
		t.Errorf("right clip = %d, want -32768", r)
	}
}

func TestDroneRenderProducesAudio(t *testing.T) {
	d := NewDrone()
	d.playing = true
	d.SetVolume(0.5)
	d.Update(Params{Hue: 300, Amplitude: 0.6, Motion: 4, Interaction: 3})

	p := make([]byte, frameSize*4096)
	// give the master ramp time to open
	for range 20 {
		n, err := d.Read(p)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if n != len(p) {
			t.Fatalf("Read returned %d bytes, want %d", n, len(p))
		}
	}

	var peak int16
	for i := 0; i < len(p); i += 2 {
		s := int16(p[i]) | int16(p[i+1])<<8
		if s > peak {
			peak = s
		}
	}
	if peak == 0 {
		t.Error("drone rendered pure silence with the master gain open")
	}
}

func TestDroneSilentBeforeStart(t *testing.T) {
	d := NewDrone()
	p := make([]byte, frameSize*1024)
	if _, err := d.Read(p); err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, b := range p {
		if b != 0 {
			t.Fatalf("byte %d = %d, want silence before Start", i, b)
		}
	}
}

func TestDroneStartNoopWhilePlaying(t *testing.T) {
	d := NewDrone()
	d.playing = true
	if err := d.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if d.player != nil {
		t.Error("second Start created a player")
	}
}

func TestDroneRestartCancelsPendingStop(t *testing.T) {
	d := NewDrone()
	d.SetVolume(0.5)
	d.playing = true

	d.Stop()
	if !d.stopping {
		t.Fatal("Stop did not begin a ramp-down")
	}

	if err := d.Start(); err != nil {
		t.Fatalf("Start during stop: %v", err)
	}
	if d.stopping {
		t.Error("Start left the engine stopping")
	}
	if !d.playing {
		t.Error("Start during stop lost the playing state")
	}
	if d.master.target != 0.5 {
		t.Errorf("master target = %f, want the volume restored", d.master.target)
	}
}

func TestBedsRestartCancelsPendingStop(t *testing.T) {
	b := testBeds(t)
	b.SetVolume(0.5)
	b.playing = true

	b.Stop()
	if !b.stopping {
		t.Fatal("Stop did not begin a ramp-down")
	}

	if err := b.Start(); err != nil {
		t.Fatalf("Start during stop: %v", err)
	}
	if b.stopping || !b.playing {
		t.Error("Start during stop did not recover the engine")
	}
	if b.master.target != 0.5 {
		t.Errorf("master target = %f, want the volume restored", b.master.target)
	}
}

func TestDroneStopBeforeStartIsNoop(t *testing.T) {
	d := NewDrone()
	d.Stop()
	d.Stop()
	if d.stopping {
		t.Error("Stop on an idle engine set stopping")
	}
}

func TestDroneSetVolumeClamps(t *testing.T) {
	d := NewDrone()
	d.SetVolume(3.0)
	if d.volume != 1 {
		t.Errorf("volume = %f, want clamped to 1", d.volume)
	}
	d.SetVolume(-1)
	if d.volume != 0 {
		t.Errorf("volume = %f, want clamped to 0", d.volume)
	}
}

func TestDroneLayerCount(t *testing.T) {
	if got := NewDrone().LayerCount(); got != 5 {
		t.Errorf("LayerCount() = %d, want 5", got)
	}
}

func TestNewFactory(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		wantErr bool
	}{
		{"drone", "drone", false},
		{"default", "", false},
		{"unknown", "granular", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, err := New(tt.mode, "")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q): %v", tt.mode, err)
			}
			if eng == nil {
				t.Fatal("New returned a nil engine")
			}
		})
	}
}

func TestReverbDecays(t *testing.T) {
	rv := newReverb()
	rv.process(1.0)

	var tail float64
	// feed silence and confirm the impulse rings then dies down
	for range sampleRate {
		tail = math.Abs(rv.process(0))
	}
	if tail > 0.05 {
		t.Errorf("reverb tail still at %f after one second of silence", tail)
	}
}
