package theme

import (
	"errors"
	"fmt"
	"strings"

	"karolbroda.com/chromaplay/internal/artwork"
)

const (
	GradientAngle     = 45
	AnimationSeconds  = 15
	AnimationTiming   = "ease"
	BackgroundSize    = "400% 400%"
	keyframeNamespace = "gradient"
)

var ErrPaletteSize = errors.New("palette must have exactly 4 colors")

// Palette is the ordered set of four colors a theme is derived from.
type Palette [4]artwork.RGB

func PaletteFrom(colors []artwork.RGB) (Palette, error) {
	var p Palette
	if len(colors) != len(p) {
		return p, fmt.Errorf("%w: got %d", ErrPaletteSize, len(colors))
	}
	copy(p[:], colors)
	return p, nil
}

func DefaultPalette() Palette {
	p, _ := PaletteFrom(artwork.DefaultPalette())
	return p
}

func (p Palette) Hexes() []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[i] = c.Hex()
	}
	return out
}

// Theme is the background treatment for a palette. BackgroundStyle is the
// complete inline style and KeyframesCSS the matching @keyframes block.
type Theme struct {
	Name            string
	Colors          Palette
	BackgroundStyle string
	KeyframesCSS    string
}

// Build maps a palette to its theme. The output depends only on the palette.
func Build(p Palette) Theme {
	name := animationName(p)

	stops := make([]string, len(p))
	for i, c := range p {
		stops[i] = fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
	}

	style := fmt.Sprintf(
		"background: linear-gradient(%ddeg, %s); background-size: %s; animation: %s %ds %s infinite;",
		GradientAngle, strings.Join(stops, ", "), BackgroundSize, name, AnimationSeconds, AnimationTiming,
	)

	keyframes := fmt.Sprintf(
		"@keyframes %s { 0%% { background-position: 0%% 50%%; } 50%% { background-position: 100%% 50%%; } 100%% { background-position: 0%% 50%%; } }",
		name,
	)

	return Theme{
		Name:            name,
		Colors:          p,
		BackgroundStyle: style,
		KeyframesCSS:    keyframes,
	}
}

func Default() Theme {
	return Build(DefaultPalette())
}

func animationName(p Palette) string {
	var b strings.Builder
	b.WriteString(keyframeNamespace)
	for _, c := range p {
		fmt.Fprintf(&b, "-%02x%02x%02x", c.R, c.G, c.B)
	}
	return b.String()
}
