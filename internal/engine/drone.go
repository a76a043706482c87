package engine

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/kmoroz/aurora/internal/logger"
	"github.com/kmoroz/aurora/internal/mapping"
)

// voiceKind selects the render path of a layer.
type voiceKind int

const (
	kindDrone voiceKind = iota
	kindSub
	kindNoise
)

// voice is one synthesis layer: a sound source into a one-pole lowpass into
// its own gain, with a slow amplitude LFO on drone layers.
type voice struct {
	kind   voiceKind
	ratio  float64 // pitch ratio against the root
	detune float64
	panL   float64
	panR   float64

	oscA osc
	oscB osc
	lfo  osc
	nz   noise

	freq    smoother
	gain    smoother
	cutoff  smoother
	lfoRate smoother
	filt    onePole
}

const lfoDepth = 0.3

func newVoice(kind voiceKind, ratio, pan, gain float64, seed int64) *voice {
	angle := (pan + 1) * math.Pi / 4
	return &voice{
		kind:    kind,
		ratio:   ratio,
		detune:  0.004,
		panL:    math.Cos(angle),
		panR:    math.Sin(angle),
		nz:      newNoise(seed),
		freq:    newSmoother(110*ratio, 0.8),
		gain:    newSmoother(gain, 0.4),
		cutoff:  newSmoother(400, 0.3),
		lfoRate: newSmoother(0.1, 0.5),
	}
}

// render produces one mono sample for this voice.
func (v *voice) render() float64 {
	var s float64
	switch v.kind {
	case kindDrone:
		f := v.freq.step()
		s = 0.5 * (v.oscA.next(f*(1-v.detune)) + v.oscB.next(f*(1+v.detune)))
		l := v.lfo.next(v.lfoRate.step())
		s *= 1 - lfoDepth + lfoDepth*(0.5+0.5*l)
	case kindSub:
		s = v.oscA.next(v.freq.step())
	case kindNoise:
		s = v.nz.next()
	}
	s = v.filt.process(s, lpCoeff(v.cutoff.step()))
	return s * v.gain.step()
}

// Drone synthesizes the whole soundscape from oscillators: three detuned
// drone layers, a sub-bass, and a filtered noise bed, summed into a master
// gain that feeds both a dry path and a Schroeder reverb.
type Drone struct {
	mu       sync.Mutex
	playing  bool
	stopping bool
	stopGen  int

	player *oto.Player
	voices []*voice
	rev    *reverb

	master smoother
	wet    smoother
	volume float64
}

// NewDrone builds the synthesizer with all layers in place but silent.
// Nothing touches the audio device until Start.
func NewDrone() *Drone {
	return &Drone{
		voices: []*voice{
			newVoice(kindDrone, 1.0, -0.35, 0.22, 11),
			newVoice(kindDrone, 1.5, 0.35, 0.18, 12),
			newVoice(kindDrone, 2.0, 0.0, 0.12, 13),
			newVoice(kindSub, 0.5, 0.0, 0.30, 14),
			newVoice(kindNoise, 0, 0.0, 0.04, 15),
		},
		rev:    newReverb(),
		master: newSmoother(0, startRampSeconds/5),
		wet:    newSmoother(0.28, 1.0),
		volume: 0.7,
	}
}

// Read renders the next block of s16le stereo PCM. The audio device pulls
// this from its own goroutine.
func (d *Drone) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	frames := len(p) / frameSize
	for i := range frames {
		var l, r float64
		for _, v := range d.voices {
			s := v.render()
			l += s * v.panL
			r += s * v.panR
		}
		m := d.master.step()
		wet := d.rev.process((l + r) * 0.5)
		w := d.wet.step()
		l = (l + wet*w) * m
		r = (r + wet*w) * m
		writeFrame(p, i*frameSize, l, r)
	}
	return frames * frameSize, nil
}

// Start opens the audio device and ramps the master gain in. Calling Start
// while already playing is a no-op: no new layers, no second player.
func (d *Drone) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.playing {
		if d.stopping {
			// cancel the teardown in flight and ramp back up
			d.stopping = false
			d.stopGen++
			d.master.setTarget(d.volume)
			logger.Info("drone engine restart cancelled a pending stop")
		}
		return nil
	}

	ctx, err := initOto()
	if err != nil {
		return fmt.Errorf("opening audio output: %w", err)
	}

	d.master.cur = 0
	d.master.setTarget(d.volume)
	d.player = ctx.NewPlayer(d)
	d.player.Play()
	d.playing = true
	d.stopping = false
	logger.Info("drone engine started")
	return nil
}

// Update retargets every layer from the mapped control values. All changes
// ride the per-sample smoothers; nothing jumps.
func (d *Drone) Update(p Params) {
	composite := mapping.Composite(p.Amplitude, p.Motion, p.Interaction)
	root := mapping.HueToRoot(p.Hue)
	interaction := clamp01(p.Interaction / 10)
	amp := clamp01(p.Amplitude)

	d.mu.Lock()
	defer d.mu.Unlock()

	// more activity opens the filters
	cutoff := 180 + composite*3800

	for _, v := range d.voices {
		v.cutoff.setTarget(cutoff)
		switch v.kind {
		case kindDrone:
			v.freq.setTarget(root * v.ratio)
			v.lfoRate.setTarget(0.08 + interaction*1.4)
		case kindSub:
			v.freq.setTarget(root * v.ratio)
			v.gain.setTarget(0.26 + amp*0.12)
		case kindNoise:
			v.gain.setTarget(0.03 + amp*0.08)
			// the noise bed stays darker than the drones
			v.cutoff.setTarget(120 + composite*1200)
		}
	}
	d.wet.setTarget(0.2 + interaction*0.25)
}

// SetVolume ramps the master gain to the clamped level.
func (d *Drone) SetVolume(vol float64) {
	vol = clamp01(vol)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = vol
	if d.playing && !d.stopping {
		d.master.setTarget(vol)
	}
}

// Stop ramps the master to silence, then releases the player. Idempotent
// and safe from any state, including before the first Start.
func (d *Drone) Stop() {
	d.mu.Lock()
	if !d.playing || d.stopping {
		d.mu.Unlock()
		return
	}
	d.stopping = true
	d.stopGen++
	gen := d.stopGen
	d.master.setTarget(0)
	player := d.player
	d.mu.Unlock()

	go func() {
		// let the ramp finish before tearing the player down
		time.Sleep(time.Duration(stopRampSeconds*float64(time.Second)) + 300*time.Millisecond)

		d.mu.Lock()
		if d.stopGen != gen {
			// a Start raced the teardown and reclaimed the player
			d.mu.Unlock()
			return
		}
		d.playing = false
		d.stopping = false
		d.player = nil
		d.mu.Unlock()

		if player != nil {
			player.Close()
		}
		logger.Info("drone engine stopped")
	}()
}

// LayerCount reports how many synthesis layers exist.
func (d *Drone) LayerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.voices)
}
