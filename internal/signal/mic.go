package signal

import (
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/kmoroz/aurora/internal/logger"
)

const (
	analysisInterval = 33 * time.Millisecond // one visual frame
	ringCapacity     = fftSize * 4
)

// Mic captures the default microphone with miniaudio and feeds the analysis
// loop from the device callback.
type Mic struct {
	mu      sync.Mutex
	running bool

	ctx    *malgo.AllocatedContext
	device *malgo.Device

	ring    *Ring
	anl     *analyzer
	frameFn FrameFunc

	stopCh chan struct{}
	frames chan Frame
	wg     sync.WaitGroup
}

// NewMic creates a microphone acquirer. No device is touched until Start.
func NewMic() *Mic {
	return &Mic{
		ring: NewRing(ringCapacity),
		anl:  newAnalyzer(captureSampleRate),
	}
}

// SetFrameFunc registers the per-frame callback.
func (m *Mic) SetFrameFunc(fn FrameFunc) {
	m.mu.Lock()
	m.frameFn = fn
	m.mu.Unlock()
}

// Start opens the capture device and begins the analysis loop. The error is
// ErrDeviceUnavailable when no backend exists and ErrPermissionDenied when
// the device refuses to open; callers must surface either to the user.
func (m *Mic) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = captureSampleRate
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(outputBuffer, inputBuffer []byte, frameCount uint32) {
			m.ring.Write(bytesToSamples(inputBuffer))
		},
	})
	if err != nil {
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	m.ctx = ctx
	m.device = device
	m.running = true
	m.stopCh = make(chan struct{})
	m.frames = make(chan Frame, 1)

	m.wg.Add(2)
	go m.analysisLoop(m.stopCh, m.frames)
	go m.dispatchLoop(m.frames)

	logger.Infof("microphone capture started (%d Hz mono)", captureSampleRate)
	return nil
}

// analysisLoop runs the FFT once per visual frame on the newest window and
// hands the result to the dispatcher without ever blocking on it.
func (m *Mic) analysisLoop(stop <-chan struct{}, frames chan<- Frame) {
	defer m.wg.Done()
	defer close(frames)

	ticker := time.NewTicker(analysisInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame := m.anl.analyze(m.ring.Latest(fftSize))
			select {
			case frames <- frame:
			default:
				// consumer still busy, drop this frame
			}
		}
	}
}

func (m *Mic) dispatchLoop(frames <-chan Frame) {
	defer m.wg.Done()
	for frame := range frames {
		m.mu.Lock()
		fn := m.frameFn
		m.mu.Unlock()
		if fn != nil {
			fn(frame)
		}
	}
}

// Stop halts the loops and releases the device. Idempotent; a Stop without
// a prior Start is a no-op.
func (m *Mic) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	device := m.device
	ctx := m.ctx
	m.device = nil
	m.ctx = nil
	m.mu.Unlock()

	m.wg.Wait()

	device.Uninit()
	ctx.Uninit()
	ctx.Free()
	m.ring.Clear()
	logger.Info("microphone capture stopped")
}

// CurrentLevel returns the RMS level of the newest capture window. Works
// independently of the frame callback.
func (m *Mic) CurrentLevel() float64 {
	return rms(m.ring.Latest(fftSize))
}

func bytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}
