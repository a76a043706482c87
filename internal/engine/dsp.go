package engine

import (
	"math"
	"math/rand"
)

// smoother moves a value toward its target with a one-pole exponential
// approach evaluated per sample. This is the only way audible parameters
// change: setting a target never produces a discontinuity.
type smoother struct {
	cur    float64
	target float64
	coeff  float64
}

// newSmoother creates a smoother converging with time constant tau seconds.
func newSmoother(initial, tau float64) smoother {
	return smoother{
		cur:    initial,
		target: initial,
		coeff:  1 - math.Exp(-1/(tau*sampleRate)),
	}
}

func (s *smoother) setTarget(v float64) { s.target = v }

// step advances one sample and returns the current value.
func (s *smoother) step() float64 {
	s.cur += (s.target - s.cur) * s.coeff
	return s.cur
}

// settled reports whether the value has effectively reached the target.
func (s *smoother) settled() bool {
	return math.Abs(s.cur-s.target) < 1e-4
}

// onePole is a one-pole lowpass filter. Cutoff changes are applied through
// the owner's cutoff smoother, so the filter itself only needs a
// coefficient per sample.
type onePole struct {
	y float64
}

func lpCoeff(cutoff float64) float64 {
	if cutoff < 10 {
		cutoff = 10
	}
	nyquist := float64(sampleRate) / 2
	if cutoff > nyquist*0.9 {
		cutoff = nyquist * 0.9
	}
	return 1 - math.Exp(-2*math.Pi*cutoff/sampleRate)
}

func (f *onePole) process(x, coeff float64) float64 {
	f.y += (x - f.y) * coeff
	return f.y
}

// osc is a phase accumulator sine oscillator.
type osc struct {
	phase float64
}

func (o *osc) next(freq float64) float64 {
	o.phase += 2 * math.Pi * freq / sampleRate
	if o.phase > 2*math.Pi {
		o.phase -= 2 * math.Pi
	}
	return math.Sin(o.phase)
}

// noise produces white noise from a seeded source. Seeding keeps renders
// reproducible in tests.
type noise struct {
	rng *rand.Rand
}

func newNoise(seed int64) noise {
	return noise{rng: rand.New(rand.NewSource(seed))}
}

func (n *noise) next() float64 {
	return n.rng.Float64()*2 - 1
}
