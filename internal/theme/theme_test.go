package theme

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"karolbroda.com/chromaplay/internal/artwork"
)

var testPalette = Palette{
	{R: 255, G: 0, B: 0},
	{R: 0, G: 128, B: 255},
	{R: 16, G: 16, B: 16},
	{R: 250, G: 240, B: 10},
}

func TestBuildDeterministic(t *testing.T) {
	a := Build(testPalette)
	b := Build(testPalette)

	if a != b {
		t.Fatalf("Build is not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestBuildStyle(t *testing.T) {
	th := Build(testPalette)

	wantName := "gradient-ff0000-0080ff-101010-faf00a"
	if th.Name != wantName {
		t.Errorf("Name = %q, want %q", th.Name, wantName)
	}

	wantStyle := "background: linear-gradient(45deg, rgb(255, 0, 0), rgb(0, 128, 255), rgb(16, 16, 16), rgb(250, 240, 10)); " +
		"background-size: 400% 400%; animation: " + wantName + " 15s ease infinite;"
	if th.BackgroundStyle != wantStyle {
		t.Errorf("BackgroundStyle =\n%s\nwant\n%s", th.BackgroundStyle, wantStyle)
	}

	for _, frag := range []string{
		"@keyframes " + wantName + " {",
		"0% { background-position: 0% 50%; }",
		"50% { background-position: 100% 50%; }",
		"100% { background-position: 0% 50%; }",
	} {
		if !strings.Contains(th.KeyframesCSS, frag) {
			t.Errorf("KeyframesCSS missing %q: %s", frag, th.KeyframesCSS)
		}
	}
}

func TestBuildDistinctPalettes(t *testing.T) {
	other := testPalette
	other[3] = artwork.RGB{R: 1, G: 2, B: 3}

	if Build(testPalette).Name == Build(other).Name {
		t.Error("different palettes should produce different animation names")
	}
}

func TestPaletteFrom(t *testing.T) {
	if _, err := PaletteFrom(make([]artwork.RGB, 3)); !errors.Is(err, ErrPaletteSize) {
		t.Errorf("err = %v, want ErrPaletteSize", err)
	}
	p, err := PaletteFrom(testPalette[:])
	if err != nil {
		t.Fatalf("PaletteFrom: %v", err)
	}
	if p != testPalette {
		t.Errorf("PaletteFrom = %v", p)
	}
}

func TestDocumentKeepsOneKeyframeBlock(t *testing.T) {
	doc := NewDocument()
	doc.AddStyle("body { margin: 0; }")

	first := Build(testPalette)
	second := Build(DefaultPalette())

	doc.Apply(first)
	doc.Apply(second)
	doc.Apply(second)

	if got := doc.InlineStyle(); got != second.BackgroundStyle {
		t.Errorf("InlineStyle = %q", got)
	}

	sheet := doc.StyleSheet()
	if len(sheet) != 2 {
		t.Fatalf("sheet has %d blocks, want 2: %v", len(sheet), sheet)
	}
	if sheet[0] != "body { margin: 0; }" {
		t.Errorf("unmanaged block lost: %v", sheet)
	}
	for _, block := range sheet {
		if strings.Contains(block, first.Name) {
			t.Errorf("superseded keyframes still present: %s", block)
		}
	}

	cur, ok := doc.Current()
	if !ok || cur.Name != second.Name {
		t.Errorf("Current = %v, %v", cur.Name, ok)
	}
	if doc.Revision() != 4 {
		t.Errorf("Revision = %d, want 4", doc.Revision())
	}
}

func TestDocumentAddStyleAfterApply(t *testing.T) {
	doc := NewDocument()
	th := Build(testPalette)
	doc.Apply(th)
	doc.AddStyle("p { color: white; }")
	doc.Apply(Build(DefaultPalette()))

	sheet := doc.StyleSheet()
	if len(sheet) != 2 || sheet[0] != "p { color: white; }" {
		t.Fatalf("sheet = %v", sheet)
	}
}

func TestDocumentHTML(t *testing.T) {
	doc := NewDocument()
	if _, ok := doc.Current(); ok {
		t.Fatal("empty document should have no theme")
	}
	th := Build(testPalette)
	doc.Apply(th)

	page := doc.HTML("a <title>", []string{"Song & Artist"})
	for _, frag := range []string{
		"<title>a &lt;title&gt;</title>",
		"<style>" + th.KeyframesCSS + "</style>",
		"Song &amp; Artist",
		"animation: " + th.Name,
	} {
		if !strings.Contains(page, frag) {
			t.Errorf("HTML missing %q", frag)
		}
	}
}

func TestPositionKeyframes(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    float64
	}{
		{0, 0},
		{7500 * time.Millisecond, 1},
		{15 * time.Second, 0},
		{22500 * time.Millisecond, 1},
		{-time.Second, 0},
	}
	for _, tt := range tests {
		if got := Position(tt.elapsed); math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("Position(%v) = %f, want %f", tt.elapsed, got, tt.want)
		}
	}

	// ease starts slow and runs ahead of linear by the middle
	if got := Position(375 * time.Millisecond); got >= 0.05 {
		t.Errorf("early position %f should lag linear", got)
	}
	if got := Position(3750 * time.Millisecond); got <= 0.5 {
		t.Errorf("mid position %f should lead linear", got)
	}
}

func TestBackgroundDeterministicAndMoving(t *testing.T) {
	th := Build(testPalette)

	a := Background(th, 20, 5, 2*time.Second)
	b := Background(th, 20, 5, 2*time.Second)
	if len(a) != 5 || len(a[0]) != 20 {
		t.Fatalf("grid = %dx%d", len(a), len(a[0]))
	}
	for y := range a {
		for x := range a[y] {
			if a[y][x] != b[y][x] {
				t.Fatalf("cell %d,%d differs between identical calls", x, y)
			}
		}
	}

	start := Background(th, 20, 5, 0)
	mid := Background(th, 20, 5, 7500*time.Millisecond)
	if start[2][10] == mid[2][10] {
		t.Error("background should move between keyframes")
	}

	if Background(th, 0, 5, 0) != nil {
		t.Error("zero width should produce no grid")
	}
}

func TestFrameLines(t *testing.T) {
	lines := Frame(Default(), 12, 3, time.Second)
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	for i, line := range lines {
		if strings.TrimSpace(stripANSI(line)) != "" {
			t.Errorf("line %d should be blank cells, got %q", i, line)
		}
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}
