package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/harmonica"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/kmoroz/aurora/internal/session"
	"github.com/kmoroz/aurora/internal/words"
)

// density ramp from empty sky to the bright core of a band
var fieldRamp = []rune(" .·:+*≡#")

var glowWhite = colorful.Color{R: 1, G: 1, B: 1}

// Field renders the aurora plasma: layered sines colored from the current
// hue, brightness lifted by amplitude, drift speed by motion. The pointer
// drags a glow behind it on a spring so it trails instead of teleporting.
type Field struct {
	phase  float64
	spring harmonica.Spring

	glowX, glowY float64
	velX, velY   float64
	seeded       bool
}

func NewField() *Field {
	return &Field{spring: harmonica.NewSpring(harmonica.FPS(30), 4.0, 0.7)}
}

// cell is one colored character of the frame.
type cell struct {
	ch      rune
	r, g, b uint8
}

// Render draws one frame at the given size. px, py is the raw pointer cell.
func (f *Field) Render(width, height int, snap session.Snapshot, ws []words.Word, px, py int) string {
	if width < 1 || height < 1 {
		return ""
	}

	motion := snap.Motion / 10
	interaction := snap.Interaction / 10
	f.phase += 0.035 + motion*0.12

	if !f.seeded {
		f.glowX = float64(px)
		f.glowY = float64(py)
		f.seeded = true
	}
	f.glowX, f.velX = f.spring.Update(f.glowX, f.velX, float64(px))
	f.glowY, f.velY = f.spring.Update(f.glowY, f.velY, float64(py))

	glowRadius := 4.0 + interaction*8
	glowGain := 0.35 + interaction*0.45

	grid := make([][]cell, height)
	for y := range height {
		grid[y] = make([]cell, width)
		for x := range width {
			v := f.plasma(float64(x), float64(y), motion)

			// terminal cells are about twice as tall as wide
			dx := float64(x) - f.glowX
			dy := (float64(y) - f.glowY) * 2
			glow := math.Exp(-(dx*dx+dy*dy)/(glowRadius*glowRadius)) * glowGain

			hue := math.Mod(snap.Hue+(v-0.5)*50, 360)
			if hue < 0 {
				hue += 360
			}
			sat := 0.75 - 0.25*v - glow*0.4
			val := 0.10 + 0.45*snap.Amplitude + 0.35*v + glow
			if val > 1 {
				val = 1
			}

			c := colorful.Hsv(hue, clampUnit(sat), val)
			if glow > 0.05 {
				c = c.BlendRgb(glowWhite, glow*0.5)
			}

			idx := int(v * float64(len(fieldRamp)-1) * (0.4 + 0.6*val))
			if idx >= len(fieldRamp) {
				idx = len(fieldRamp) - 1
			}
			r8, g8, b8 := c.RGB255()
			grid[y][x] = cell{ch: fieldRamp[idx], r: r8, g: g8, b: b8}
		}
	}

	overlayWords(grid, ws)

	var sb strings.Builder
	sb.Grow(height * width * 4)
	w := newANSIWriter()
	for y := range height {
		for x := range width {
			c := grid[y][x]
			if c.ch == ' ' {
				sb.WriteByte(' ')
				continue
			}
			w.set(&sb, c.r, c.g, c.b)
			sb.WriteRune(c.ch)
		}
		w.reset(&sb)
		if y < height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// plasma is the layered sine value at a cell, in [0,1].
func (f *Field) plasma(x, y, motion float64) float64 {
	t := f.phase
	turb := 1 + motion*1.5
	v := math.Sin(x*0.055*turb+t) +
		math.Sin(y*0.16-t*0.7) +
		math.Sin((x+y*2)*0.04+t*0.4) +
		math.Sin(math.Hypot(x*0.5, y)*0.11*turb-t*0.6)
	return clampUnit(v/8 + 0.5)
}

// overlayWords composites the ephemeral words, brightness following each
// word's opacity envelope.
func overlayWords(grid [][]cell, ws []words.Word) {
	height := len(grid)
	if height == 0 {
		return
	}
	width := len(grid[0])

	for _, w := range ws {
		if w.Opacity <= 0.05 || w.Y < 0 || w.Y >= height {
			continue
		}
		level := uint8(120 + w.Opacity*135)
		for i, ch := range w.Text {
			x := w.X + i
			if x < 0 || x >= width {
				continue
			}
			grid[w.Y][x] = cell{ch: ch, r: level, g: level, b: level}
		}
	}
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
