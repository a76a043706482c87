package signal

import (
	"math"
	"sync"
	"time"
)

// Sine is a synthetic acquirer producing a slowly drifting tone. It stands
// in for the microphone in --no-mic mode and in tests, running the same
// analysis pipeline as the real device.
type Sine struct {
	mu      sync.Mutex
	running bool

	freq  float64
	amp   float64
	drift bool
	phase float64

	ring    *Ring
	anl     *analyzer
	frameFn FrameFunc

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewSine creates a synthetic acquirer. With drift enabled the tone slowly
// wanders so the downstream hue mapping stays alive.
func NewSine(freq, amp float64, drift bool) *Sine {
	return &Sine{
		freq:  freq,
		amp:   amp,
		drift: drift,
		ring:  NewRing(ringCapacity),
		anl:   newAnalyzer(captureSampleRate),
	}
}

// SetFrameFunc registers the per-frame callback.
func (s *Sine) SetFrameFunc(fn FrameFunc) {
	s.mu.Lock()
	s.frameFn = fn
	s.mu.Unlock()
}

// Start begins synthesis. No device involved, so it cannot fail.
func (s *Sine) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	frames := make(chan Frame, 1)
	s.wg.Add(2)
	go s.loop(s.stopCh, frames)
	go s.dispatchLoop(frames)
	return nil
}

func (s *Sine) loop(stop <-chan struct{}, frames chan<- Frame) {
	defer s.wg.Done()
	defer close(frames)

	ticker := time.NewTicker(analysisInterval)
	defer ticker.Stop()

	start := time.Now()
	buf := make([]int16, captureSampleRate*int(analysisInterval)/int(time.Second))

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			freq := s.freq
			if s.drift {
				// wander a few hundred Hz over ~30s
				t := time.Since(start).Seconds()
				freq += 200 * math.Sin(2*math.Pi*t/30)
			}
			for i := range buf {
				s.phase += 2 * math.Pi * freq / captureSampleRate
				buf[i] = int16(s.amp * 32767 * math.Sin(s.phase))
			}
			s.ring.Write(buf)
			frame := s.anl.analyze(s.ring.Latest(fftSize))
			s.mu.Unlock()

			// drop the frame when the consumer is still busy,
			// synthesis never waits on the callback
			select {
			case frames <- frame:
			default:
			}
		}
	}
}

func (s *Sine) dispatchLoop(frames <-chan Frame) {
	defer s.wg.Done()
	for frame := range frames {
		s.mu.Lock()
		fn := s.frameFn
		s.mu.Unlock()
		if fn != nil {
			fn(frame)
		}
	}
}

// Stop halts synthesis. Idempotent.
func (s *Sine) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()
	s.wg.Wait()
	s.ring.Clear()
}

// CurrentLevel returns the RMS level of the newest window.
func (s *Sine) CurrentLevel() float64 {
	return rms(s.ring.Latest(fftSize))
}
