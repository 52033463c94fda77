package theme

import (
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"karolbroda.com/chromaplay/internal/colors"
)

const (
	gradientSteps = 256
	sizeFactor    = 4.0
	cellAspect    = 2.0
)

var easeCurve = cubicBezier{x1: 0.25, y1: 0.1, x2: 0.25, y2: 1.0}

func Period() time.Duration {
	return AnimationSeconds * time.Second
}

// Position returns the horizontal background-position, 0 to 1, that the
// keyframes reach after elapsed. Each half of the cycle is eased separately,
// the way a browser applies the timing function per keyframe interval.
func Position(elapsed time.Duration) float64 {
	period := Period()
	if elapsed < 0 {
		elapsed = 0
	}
	phase := float64(elapsed%period) / float64(period)

	if phase < 0.5 {
		return easeCurve.at(phase / 0.5)
	}
	return 1 - easeCurve.at((phase-0.5)/0.5)
}

// Background returns a height x width grid of hex colors: the viewport of a
// 45 degree gradient sized 400% and shifted to Position(elapsed). Terminal
// cells are treated as twice as tall as they are wide.
func Background(t Theme, width int, height int, elapsed time.Duration) [][]string {
	if width <= 0 || height <= 0 {
		return nil
	}

	ramp := colors.GenerateMultiGradient(t.Colors.Hexes(), gradientSteps)

	viewW := float64(width)
	viewH := float64(height) * cellAspect
	imgW := viewW * sizeFactor
	imgH := viewH * sizeFactor

	x0 := Position(elapsed) * (imgW - viewW)
	y0 := 0.5 * (imgH - viewH)
	span := imgW + imgH

	grid := make([][]string, height)
	for cy := 0; cy < height; cy++ {
		row := make([]string, width)
		y := y0 + (float64(cy)+0.5)*cellAspect
		for cx := 0; cx < width; cx++ {
			x := x0 + float64(cx) + 0.5
			s := (x + (imgH - y)) / span
			row[cx] = ramp[rampIndex(s, len(ramp))]
		}
		grid[cy] = row
	}
	return grid
}

// Frame renders the background as terminal lines of colored blanks.
func Frame(t Theme, width int, height int, elapsed time.Duration) []string {
	grid := Background(t, width, height, elapsed)
	lines := make([]string, len(grid))
	for i, row := range grid {
		lines[i] = PaintRow(row)
	}
	return lines
}

// PaintRow renders one row of background colors, merging runs of the same
// color into a single styled span.
func PaintRow(row []string) string {
	var b strings.Builder
	for i := 0; i < len(row); {
		j := i + 1
		for j < len(row) && row[j] == row[i] {
			j++
		}
		b.WriteString(lipgloss.NewStyle().
			Background(lipgloss.Color(row[i])).
			Render(strings.Repeat(" ", j-i)))
		i = j
	}
	return b.String()
}

func rampIndex(s float64, n int) int {
	idx := int(math.Round(s * float64(n-1)))
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

type cubicBezier struct {
	x1, y1, x2, y2 float64
}

func (c cubicBezier) sample(a1, a2, t float64) float64 {
	u := 1 - t
	return 3*u*u*t*a1 + 3*u*t*t*a2 + t*t*t
}

func (c cubicBezier) slopeX(t float64) float64 {
	u := 1 - t
	return 3*u*u*c.x1 + 6*u*t*(c.x2-c.x1) + 3*t*t*(1-c.x2)
}

// at maps progress x to the eased output y.
func (c cubicBezier) at(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	t := x
	for i := 0; i < 8; i++ {
		dx := c.sample(c.x1, c.x2, t) - x
		if math.Abs(dx) < 1e-6 {
			return c.sample(c.y1, c.y2, t)
		}
		d := c.slopeX(t)
		if math.Abs(d) < 1e-6 {
			break
		}
		t -= dx / d
	}

	lo, hi := 0.0, 1.0
	t = x
	for i := 0; i < 32; i++ {
		v := c.sample(c.x1, c.x2, t)
		if math.Abs(v-x) < 1e-6 {
			break
		}
		if v < x {
			lo = t
		} else {
			hi = t
		}
		t = (lo + hi) / 2
	}
	return c.sample(c.y1, c.y2, t)
}
