package colors

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

var fallback = colorful.Color{R: 1, G: 1, B: 1}

func parse(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return fallback
	}
	return c
}

func toHex(c colorful.Color) string {
	return strings.ToUpper(c.Clamped().Hex())
}

// GenerateGradient interpolates two colors in HCL space. Pairs that are far
// apart get a double smoothstep so the midpoint does not band.
func GenerateGradient(startHex string, endHex string, steps int) []string {
	if steps < 2 {
		steps = 2
	}

	start := parse(startHex)
	end := parse(endHex)

	sh, sc, sl := start.Hcl()
	eh, ec, el := end.Hcl()

	hueDistance := math.Abs(eh - sh)
	if hueDistance > 180 {
		hueDistance = 360 - hueDistance
	}
	needsSmoothing := math.Abs(ec-sc) > 0.3 || hueDistance > 60 || math.Abs(el-sl) > 0.3

	gradient := make([]string, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1)
		if needsSmoothing {
			t = smoothStep(smoothStep(t))
		}
		gradient[i] = toHex(start.BlendHcl(end, t))
	}

	return gradient
}

// GenerateMultiGradient spreads steps colors evenly across consecutive
// stops, starting on the first stop and ending on the last.
func GenerateMultiGradient(stops []string, steps int) []string {
	if len(stops) < 2 || steps < 2 {
		if len(stops) >= 1 {
			return []string{stops[0]}
		}
		return []string{"#FFFFFF"}
	}

	segments := len(stops) - 1
	gradient := make([]string, steps)
	for i := 0; i < steps; i++ {
		pos := float64(i) / float64(steps-1) * float64(segments)
		seg := int(pos)
		if seg >= segments {
			seg = segments - 1
		}
		gradient[i] = BlendColors(stops[seg], stops[seg+1], pos-float64(seg))
	}

	return gradient
}

func BlendColors(hex1 string, hex2 string, t float64) string {
	return toHex(parse(hex1).BlendHcl(parse(hex2), t))
}

func RGBToHex(r int, g int, b int) string {
	return fmt.Sprintf("#%02X%02X%02X", clampInt(r, 0, 255), clampInt(g, 0, 255), clampInt(b, 0, 255))
}

func HexToRGB(hex string) (int, int, int) {
	r, g, b := parse(hex).RGB255()
	return int(r), int(g), int(b)
}

// Lightness is the perceptual lightness of a color on a 0-100 scale.
func Lightness(hex string) float64 {
	_, _, l := parse(hex).Hcl()
	return l * 100
}

// TextOn picks a foreground that stays readable over the given background.
func TextOn(backgroundHex string) string {
	if Lightness(backgroundHex) > 60 {
		return "#111111"
	}
	return "#F5F5F5"
}

func AdjustBrightness(hex string, factor float64) string {
	r, g, b := HexToRGB(hex)
	return RGBToHex(int(float64(r)*factor), int(float64(g)*factor), int(float64(b)*factor))
}

func RenderGradientText(text string, gradient []string, bold bool) string {
	if len(text) == 0 {
		return ""
	}
	if len(gradient) == 0 {
		return text
	}

	runes := []rune(text)
	var result strings.Builder

	for i, r := range runes {
		colorIdx := 0
		if len(runes) > 1 {
			colorIdx = i * (len(gradient) - 1) / (len(runes) - 1)
		}
		if colorIdx >= len(gradient) {
			colorIdx = len(gradient) - 1
		}

		style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradient[colorIdx]))
		if bold {
			style = style.Bold(true)
		}
		result.WriteString(style.Render(string(r)))
	}

	return result.String()
}

// FormatSeconds renders m:ss; negative and NaN values show as 0:00.
func FormatSeconds(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		return "0:00"
	}
	total := int64(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func smoothStep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

func clampInt(val int, min int, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
