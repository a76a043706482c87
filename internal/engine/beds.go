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

const (
	// a new sector must hold this long before a crossfade starts
	sectorDebounce   = 1200 * time.Millisecond
	crossfadeSeconds = 3.5
)

// bed is one decoded ambient loop: interleaved stereo int16 at the engine
// sample rate. Each bed keeps its own filter state so a crossfade never
// shares a filter tail between loops.
type bed struct {
	title   string
	samples []int16
	pos     int
	filtL   onePole
	filtR   onePole
}

// frame returns the bed's current stereo frame and advances its position,
// wrapping at the end so every bed is a seamless loop.
func (b *bed) frame() (float64, float64) {
	l := float64(b.samples[b.pos*2]) / 32768
	r := float64(b.samples[b.pos*2+1]) / 32768
	b.pos++
	if b.pos*2 >= len(b.samples) {
		b.pos = 0
	}
	return l, r
}

// Beds plays pre-rendered ambient loops and crossfades between them as the
// dominant hue moves across sectors. One bed per sector; sector changes are
// debounced and never interrupt a fade already in flight.
type Beds struct {
	mu       sync.Mutex
	playing  bool
	stopping bool
	stopGen  int

	player *oto.Player
	beds   []*bed

	active int
	target int
	fade   float64 // crossfade progress in [0,1]; 1 means no fade running

	candidate      int
	candidateSince time.Time

	master smoother
	cutoff smoother
	volume float64
}

// NewBeds loads every decodable file in dir and builds the bed engine.
// At least one bed must load.
func NewBeds(dir string) (*Beds, error) {
	if dir == "" {
		return nil, fmt.Errorf("beds engine requires a beds directory")
	}
	beds, err := scanBeds(dir)
	if err != nil {
		return nil, err
	}
	if len(beds) == 0 {
		return nil, fmt.Errorf("no playable beds in %s", dir)
	}
	logger.Infof("bed engine loaded %d beds", len(beds))
	return newBedsFrom(beds), nil
}

func newBedsFrom(beds []*bed) *Beds {
	return &Beds{
		beds:      beds,
		fade:      1,
		candidate: -1,
		master:    newSmoother(0, startRampSeconds/5),
		cutoff:    newSmoother(800, 0.3),
		volume:    0.7,
	}
}

// Read renders the next block of s16le stereo PCM.
func (b *Beds) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	step := 1 / (crossfadeSeconds * sampleRate)
	frames := len(p) / frameSize
	for i := range frames {
		coeff := lpCoeff(b.cutoff.step())

		active := b.beds[b.active]
		l, r := active.frame()
		l = active.filtL.process(l, coeff)
		r = active.filtR.process(r, coeff)

		if b.fade < 1 {
			// equal-power crossfade between the outgoing and incoming bed
			next := b.beds[b.target]
			nl, nr := next.frame()
			nl = next.filtL.process(nl, coeff)
			nr = next.filtR.process(nr, coeff)

			theta := b.fade * math.Pi / 2
			out, in := math.Cos(theta), math.Sin(theta)
			l = l*out + nl*in
			r = r*out + nr*in

			b.fade += step
			if b.fade >= 1 {
				b.fade = 1
				b.active = b.target
			}
		}

		m := b.master.step()
		writeFrame(p, i*frameSize, l*m, r*m)
	}
	return frames * frameSize, nil
}

// Start opens the audio device and ramps the master gain in. Idempotent.
func (b *Beds) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.playing {
		if b.stopping {
			// cancel the teardown in flight and ramp back up
			b.stopping = false
			b.stopGen++
			b.master.setTarget(b.volume)
			logger.Info("bed engine restart cancelled a pending stop")
		}
		return nil
	}

	ctx, err := initOto()
	if err != nil {
		return fmt.Errorf("opening audio output: %w", err)
	}

	b.master.cur = 0
	b.master.setTarget(b.volume)
	b.player = ctx.NewPlayer(b)
	b.player.Play()
	b.playing = true
	b.stopping = false
	logger.Info("bed engine started")
	return nil
}

// Update maps the hue to a bed sector and the composite level to the
// shared lowpass cutoff.
func (b *Beds) Update(p Params) {
	composite := mapping.Composite(p.Amplitude, p.Motion, p.Interaction)
	sector := mapping.HueSector(p.Hue, len(b.beds))

	b.mu.Lock()
	defer b.mu.Unlock()

	b.cutoff.setTarget(250 + composite*5000)
	b.retarget(sector, p.Now)
}

// retarget applies the sector debounce. A fade in flight ignores new
// sectors entirely; the hue has to settle again afterwards.
func (b *Beds) retarget(sector int, now time.Time) {
	if b.fade < 1 || sector == b.target {
		b.candidate = -1
		return
	}
	if sector != b.candidate {
		b.candidate = sector
		b.candidateSince = now
		return
	}
	if now.Sub(b.candidateSince) < sectorDebounce {
		return
	}

	b.target = sector
	b.fade = 0
	b.beds[sector].pos = 0
	b.candidate = -1
	logger.Debugf("crossfading to bed %q", b.beds[sector].title)
}

// SetVolume ramps the master gain to the clamped level.
func (b *Beds) SetVolume(vol float64) {
	vol = clamp01(vol)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.volume = vol
	if b.playing && !b.stopping {
		b.master.setTarget(vol)
	}
}

// Stop ramps the master to silence, then releases the player. Idempotent.
func (b *Beds) Stop() {
	b.mu.Lock()
	if !b.playing || b.stopping {
		b.mu.Unlock()
		return
	}
	b.stopping = true
	b.stopGen++
	gen := b.stopGen
	b.master.setTarget(0)
	player := b.player
	b.mu.Unlock()

	go func() {
		time.Sleep(time.Duration(stopRampSeconds*float64(time.Second)) + 300*time.Millisecond)

		b.mu.Lock()
		if b.stopGen != gen {
			// a Start raced the teardown and reclaimed the player
			b.mu.Unlock()
			return
		}
		b.playing = false
		b.stopping = false
		b.player = nil
		b.mu.Unlock()

		if player != nil {
			player.Close()
		}
		logger.Info("bed engine stopped")
	}()
}

// ActiveBed reports the title of the bed currently leading the mix.
func (b *Beds) ActiveBed() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fade < 1 {
		return b.beds[b.target].title
	}
	return b.beds[b.active].title
}
