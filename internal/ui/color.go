package ui

import (
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
)

type colorProfile uint8

const (
	colorNone colorProfile = iota
	colorANSI16
	colorANSI256
	colorTrueColor
)

var (
	profileOnce sync.Once
	profile     colorProfile
	seqCache    sync.Map
)

func currentColorProfile() colorProfile {
	profileOnce.Do(func() {
		if _, disabled := os.LookupEnv("NO_COLOR"); disabled {
			profile = colorNone
			return
		}
		term := strings.ToLower(os.Getenv("TERM"))
		colorTerm := strings.ToLower(os.Getenv("COLORTERM"))
		switch {
		case strings.Contains(colorTerm, "truecolor"), strings.Contains(colorTerm, "24bit"):
			profile = colorTrueColor
		case strings.Contains(term, "256color"):
			profile = colorANSI256
		case term == "", term == "dumb":
			profile = colorNone
		default:
			profile = colorANSI16
		}
	})
	return profile
}

// ansiWriter emits foreground color sequences, skipping runs of the same
// color. The field redraws every frame, so sequences are cached globally.
type ansiWriter struct {
	profile colorProfile
	current uint32
}

func newANSIWriter() ansiWriter {
	return ansiWriter{profile: currentColorProfile(), current: ^uint32(0)}
}

func (w *ansiWriter) set(sb *strings.Builder, r, g, b uint8) {
	if w.profile == colorNone {
		return
	}
	key := uint32(r)<<16 | uint32(g)<<8 | uint32(b)
	if key == w.current {
		return
	}
	sb.WriteString(colorSequence(w.profile, r, g, b))
	w.current = key
}

func (w *ansiWriter) reset(sb *strings.Builder) {
	if w.profile == colorNone || w.current == ^uint32(0) {
		return
	}
	sb.WriteString("\x1b[0m")
	w.current = ^uint32(0)
}

func colorSequence(profile colorProfile, r, g, b uint8) string {
	key := uint32(profile)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
	if seq, ok := seqCache.Load(key); ok {
		return seq.(string)
	}

	var seq string
	switch profile {
	case colorTrueColor:
		seq = fmt.Sprintf("\x1b[38;2;%d;%d;%dm", r, g, b)
	case colorANSI256:
		idx := 16 + 36*(int(r)*5/255) + 6*(int(g)*5/255) + int(b)*5/255
		seq = fmt.Sprintf("\x1b[38;5;%dm", idx)
	case colorANSI16:
		seq = fmt.Sprintf("\x1b[%dm", 30+nearestANSI16(r, g, b))
	default:
		seq = ""
	}

	seqCache.Store(key, seq)
	return seq
}

var ansi16Palette = [8][3]uint8{
	{0, 0, 0},
	{205, 49, 49},
	{13, 188, 121},
	{229, 229, 16},
	{36, 114, 200},
	{188, 63, 188},
	{17, 168, 205},
	{229, 229, 229},
}

func nearestANSI16(r, g, b uint8) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, p := range ansi16Palette {
		dr := float64(r) - float64(p[0])
		dg := float64(g) - float64(p[1])
		db := float64(b) - float64(p[2])
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}
