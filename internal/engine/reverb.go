package engine

// reverb is a small Schroeder reverberator: four parallel feedback combs
// into two serial allpasses. Mono in, mono out; the caller mixes wet/dry
// and handles stereo spread.
type reverb struct {
	combs   [4]comb
	allpass [2]allpass
}

type comb struct {
	buf      []float64
	idx      int
	feedback float64
	damp     float64
	filt     float64
}

type allpass struct {
	buf  []float64
	idx  int
	gain float64
}

// Delay lengths in milliseconds, mutually prime-ish so the comb resonances
// never line up.
var (
	combDelaysMs    = [4]float64{29.7, 37.1, 41.1, 43.7}
	allpassDelaysMs = [2]float64{5.0, 1.7}
)

func newReverb() *reverb {
	r := &reverb{}
	for i := range r.combs {
		n := int(combDelaysMs[i] / 1000 * sampleRate)
		r.combs[i] = comb{
			buf:      make([]float64, n),
			feedback: 0.82,
			damp:     0.25,
		}
	}
	for i := range r.allpass {
		n := int(allpassDelaysMs[i] / 1000 * sampleRate)
		r.allpass[i] = allpass{
			buf:  make([]float64, n),
			gain: 0.5,
		}
	}
	return r
}

func (c *comb) process(x float64) float64 {
	out := c.buf[c.idx]
	// damped feedback keeps the tail dark instead of metallic
	c.filt += (out - c.filt) * (1 - c.damp)
	c.buf[c.idx] = x + c.filt*c.feedback
	c.idx++
	if c.idx == len(c.buf) {
		c.idx = 0
	}
	return out
}

func (a *allpass) process(x float64) float64 {
	delayed := a.buf[a.idx]
	out := -x*a.gain + delayed
	a.buf[a.idx] = x + delayed*a.gain
	a.idx++
	if a.idx == len(a.buf) {
		a.idx = 0
	}
	return out
}

func (r *reverb) process(x float64) float64 {
	var sum float64
	for i := range r.combs {
		sum += r.combs[i].process(x)
	}
	sum *= 0.25
	for i := range r.allpass {
		sum = r.allpass[i].process(sum)
	}
	return sum
}
