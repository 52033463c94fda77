package ui

import (
	"math"

	"karolbroda.com/chromaplay/internal/theme"
)

const (
	panelTicks = 5
	fadeTicks  = 8
)

// AnimState tracks the short transitions layered over the looping
// background: the search panel sliding in or out and the crossfade from
// the previous theme to a newly applied one.
type AnimState struct {
	PanelProgress float64
	PanelTarget   float64
	FadeProgress  float64
	PrevTheme     *theme.Theme
}

func (a *AnimState) Reset(panelOpen bool) {
	a.PanelTarget = 0
	if panelOpen {
		a.PanelTarget = 1
	}
	a.PanelProgress = a.PanelTarget
	a.FadeProgress = 1
	a.PrevTheme = nil
}

func (a *AnimState) SetPanel(open bool) {
	if open {
		a.PanelTarget = 1
	} else {
		a.PanelTarget = 0
	}
}

// StartFade begins a crossfade away from prev. A nil prev fades in from the
// default theme.
func (a *AnimState) StartFade(prev *theme.Theme) {
	if prev == nil {
		def := theme.Default()
		prev = &def
	}
	a.PrevTheme = prev
	a.FadeProgress = 0
}

func (a *AnimState) Update() {
	step := 1.0 / float64(panelTicks)
	switch {
	case math.Abs(a.PanelProgress-a.PanelTarget) <= step+1e-9:
		a.PanelProgress = a.PanelTarget
	case a.PanelProgress < a.PanelTarget:
		a.PanelProgress += step
	default:
		a.PanelProgress -= step
	}

	if a.FadeProgress < 1 {
		a.FadeProgress += 1.0 / float64(fadeTicks)
		if a.FadeProgress >= 1-1e-9 {
			a.FadeProgress = 1
			a.PrevTheme = nil
		}
	}
}

// PanelWidth is the visible width of a panel whose open width is full.
func (a *AnimState) PanelWidth(full int) int {
	t := a.PanelProgress
	if a.PanelTarget > 0 {
		t = easeOutQuart(t)
	} else {
		t = 1 - easeOutCubic(1-t)
	}
	return int(math.Round(lerp(0, float64(full), clamp(t, 0, 1))))
}

func (a *AnimState) Fading() bool {
	return a.PrevTheme != nil && a.FadeProgress < 1
}

// FadeWeight is how much of the new theme shows through, 0 to 1.
func (a *AnimState) FadeWeight() float64 {
	return easeOutCubic(a.FadeProgress)
}

func easeOutCubic(t float64) float64 {
	if t >= 1 {
		return 1
	}
	if t <= 0 {
		return 0
	}
	return 1 - math.Pow(1-t, 3)
}

func easeOutQuart(t float64) float64 {
	if t >= 1 {
		return 1
	}
	if t <= 0 {
		return 0
	}
	return 1 - math.Pow(1-t, 4)
}

func lerp(a float64, b float64, t float64) float64 {
	return a + (b-a)*t
}

func clamp(val float64, min float64, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
