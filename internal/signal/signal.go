// Package signal acquires live audio and reduces it to one Frame per
// animation tick: a normalized amplitude and the dominant frequency.
package signal

import "errors"

var (
	// ErrPermissionDenied is returned when the microphone exists but cannot
	// be opened for capture.
	ErrPermissionDenied = errors.New("microphone access denied")
	// ErrDeviceUnavailable is returned when no capture backend is available.
	ErrDeviceUnavailable = errors.New("audio capture device unavailable")
)

// Frame is one analysis result. Frames are ephemeral: each one replaces the
// last, nothing is persisted.
type Frame struct {
	Amplitude float64 // [0,1]
	Frequency float64 // dominant frequency, Hz
}

// FrameFunc receives frames from an acquirer. It runs on a dispatch
// goroutine so a slow consumer never stalls acquisition; frames that arrive
// while the consumer is busy are dropped.
type FrameFunc func(Frame)

// Acquirer produces a stream of analysis frames from some audio source.
type Acquirer interface {
	// Start begins capture and analysis. Starting an already running
	// acquirer is a no-op.
	Start() error
	// Stop halts capture and releases the device. Safe to call repeatedly
	// and without a prior Start.
	Stop()
	// SetFrameFunc registers the per-frame callback. Must be called before
	// Start.
	SetFrameFunc(fn FrameFunc)
	// CurrentLevel is a synchronous amplitude read independent of the
	// callback loop.
	CurrentLevel() float64
}
