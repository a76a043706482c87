package signal

import "math"

// fft runs an in-place radix-2 decimation-in-time transform over the
// spectrum buffers. Both slices must share a power-of-two length; the
// analyzer guarantees that by always handing it fftSize samples.
func fft(re, im []float64) {
	n := len(re)
	if n <= 1 {
		return
	}

	// reorder into bit-reversed positions so the stages below can
	// combine in place
	j := 0
	for i := 1; i < n; i++ {
		bit := n >> 1
		for j&bit != 0 {
			j ^= bit
			bit >>= 1
		}
		j ^= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	// merge pairs of half-size spectra, doubling the span each stage
	for span := 2; span <= n; span <<= 1 {
		half := span >> 1
		step := -2.0 * math.Pi / float64(span)
		for base := 0; base < n; base += span {
			for k := 0; k < half; k++ {
				angle := step * float64(k)
				wr := math.Cos(angle)
				wi := math.Sin(angle)
				lo := base + k
				hi := lo + half
				tr := wr*re[hi] - wi*im[hi]
				ti := wr*im[hi] + wi*re[hi]
				re[hi] = re[lo] - tr
				im[hi] = im[lo] - ti
				re[lo] += tr
				im[lo] += ti
			}
		}
	}
}
