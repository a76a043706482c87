package signal

import "math"

const (
	captureSampleRate = 44100
	fftSize           = 1024

	// Mean spectral magnitude of typical ambient input is well below full
	// scale; this gain spreads it across [0,1] before clamping.
	spectralGain = 6.0
)

// analyzer turns a window of mono int16 samples into a Frame. Scratch
// buffers are reused across calls; not safe for concurrent use.
type analyzer struct {
	sampleRate int
	real       []float64
	imag       []float64
}

func newAnalyzer(sampleRate int) *analyzer {
	return &analyzer{
		sampleRate: sampleRate,
		real:       make([]float64, fftSize),
		imag:       make([]float64, fftSize),
	}
}

// analyze windows the newest fftSize samples, runs the FFT and extracts the
// mean normalized magnitude and the dominant-bin frequency.
func (a *analyzer) analyze(samples []int16) Frame {
	if len(samples) < fftSize {
		return Frame{}
	}
	off := len(samples) - fftSize

	for i := range fftSize {
		v := float64(samples[off+i]) / 32768.0
		w := 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(fftSize-1)))
		a.real[i] = v * w
		a.imag[i] = 0
	}

	fft(a.real, a.imag)

	// fullScale is the peak-bin magnitude of a full-scale Hann-windowed
	// sine; dividing by it normalizes each bin to [0,1].
	const fullScale = fftSize / 4.0
	maxBin := fftSize / 2

	var sum, maxMag float64
	maxIdx := 0
	for i := 1; i < maxBin; i++ {
		mag := math.Sqrt(a.real[i]*a.real[i]+a.imag[i]*a.imag[i]) / fullScale
		sum += mag
		if mag > maxMag {
			maxMag = mag
			maxIdx = i
		}
	}

	amp := sum / float64(maxBin-1) * spectralGain
	if amp > 1 {
		amp = 1
	}
	if amp < 0 || math.IsNaN(amp) {
		amp = 0
	}

	nyquist := float64(a.sampleRate) / 2
	freq := float64(maxIdx) / float64(maxBin) * nyquist

	return Frame{Amplitude: amp, Frequency: freq}
}

// rms computes the root-mean-square level of samples, normalized to [0,1].
func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
