// Package engine produces the ambient soundscape. Two implementations share
// one contract: a drone synthesizer building everything from oscillators,
// and a bed player crossfading between pre-rendered ambient files. Both
// render s16le stereo PCM pulled by the audio device, and both move every
// audible parameter through smoothed ramps so control changes never click.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	sampleRate   = 44100
	channelCount = 2
	bitDepth     = 2 // 16-bit = 2 bytes
	frameSize    = channelCount * bitDepth

	startRampSeconds = 2.5
	stopRampSeconds  = 2.0
)

// Params carries the mapped control values into Update. Motion and
// interaction are on the [0,10] scale; Update normalizes internally.
type Params struct {
	Hue         float64
	Amplitude   float64
	Motion      float64
	Interaction float64

	// Now is the tick time of the control update; time-based behavior
	// like the bed debounce runs off it rather than the wall clock.
	Now time.Time
}

// Engine is the soundscape contract. Start and Stop are idempotent; Update
// and SetVolume are safe from any state.
type Engine interface {
	Start() error
	Update(p Params)
	SetVolume(v float64)
	Stop()
}

var (
	globalOtoCtx *oto.Context
	otoOnce      sync.Once
	otoInitErr   error
)

func initOto() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channelCount,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
		}
	})
	return globalOtoCtx, otoInitErr
}

// clamp01 bounds v to [0,1].
func clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// writeFrame writes one stereo frame as little-endian int16.
func writeFrame(p []byte, off int, l, r float64) {
	li := int32(l * 32767)
	ri := int32(r * 32767)
	if li > 32767 {
		li = 32767
	} else if li < -32768 {
		li = -32768
	}
	if ri > 32767 {
		ri = 32767
	} else if ri < -32768 {
		ri = -32768
	}
	p[off] = byte(li)
	p[off+1] = byte(li >> 8)
	p[off+2] = byte(ri)
	p[off+3] = byte(ri >> 8)
}

// New builds the engine named by mode.
func New(mode string, bedsDir string) (Engine, error) {
	switch mode {
	case "drone", "":
		return NewDrone(), nil
	case "beds":
		return NewBeds(bedsDir)
	default:
		return nil, fmt.Errorf("unknown engine mode %q", mode)
	}
}
