package ui

import (
	"fmt"
	"image"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/mattn/go-runewidth"

	"karolbroda.com/chromaplay/internal/colors"
	"karolbroda.com/chromaplay/internal/state"
	"karolbroda.com/chromaplay/internal/terminal"
	"karolbroda.com/chromaplay/internal/theme"
	"karolbroda.com/chromaplay/internal/track"
	"karolbroda.com/chromaplay/internal/transport"
)

const (
	bannerText = "chromaplay"
	helpText   = "tab search · enter select · space play · ←/→ seek · r repeat · q quit"
	panelShade = "#000000"
)

type artPlacement struct {
	img           image.Image
	col, row      int
	width, height int
}

func (m Model) View() string {
	width := m.width
	height := m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	if m.quitting {
		return ""
	}

	c, art := m.compose(width, height)
	lines := c.Lines()
	if art != nil && m.useKittyGraphics() {
		if seq := terminal.EncodeImageForKitty(art.img, art.width, art.height); seq != "" {
			lines[art.row] = terminal.PlaceAt(art.col, seq) + lines[art.row]
		}
	}
	return strings.Join(lines, "\n")
}

// compose lays the whole screen out on a canvas. Album art is left off the
// canvas when the terminal draws it as an image.
func (m Model) compose(width int, height int) (*Canvas, *artPlacement) {
	c := NewCanvas(m.background(width, height), width, height)
	snap := m.store.Snapshot()

	content := 2
	if pw := m.animState.PanelWidth(panelWidth(width)); pw > 0 {
		m.renderPanel(c, snap, pw, height-1)
		content = pw + 3
	}

	var art *artPlacement
	if snap.Selected == nil {
		m.renderIdle(c, content, width-content-2, height-1)
	} else {
		art = m.renderNowPlaying(c, snap, content, width-content-2, height-1)
	}

	m.renderFooter(c, snap, width, height)
	return c, art
}

// background is the animated gradient, crossfaded from the previous theme
// while a new one settles in.
func (m Model) background(width int, height int) [][]string {
	bg := theme.Background(m.currentTheme(), width, height, m.elapsed)
	if !m.animState.Fading() {
		return bg
	}

	prev := theme.Background(*m.animState.PrevTheme, width, height, m.elapsed)
	w := m.animState.FadeWeight()
	for y := range bg {
		for x := range bg[y] {
			bg[y][x] = colors.BlendColors(prev[y][x], bg[y][x], w)
		}
	}
	return bg
}

func (m Model) useKittyGraphics() bool {
	return m.termCaps != nil && m.termCaps.SupportsKittyGraphics
}

func panelWidth(width int) int {
	pw := width * 2 / 5
	if pw < 24 {
		pw = 24
	}
	if pw > 48 {
		pw = 48
	}
	if pw > width-4 {
		pw = width - 4
	}
	if pw < 0 {
		pw = 0
	}
	return pw
}

// resultRows is how many results fit under the panel header.
func (m Model) resultRows() int {
	height := m.height
	if height == 0 {
		height = 24
	}
	rows := height - 8
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m Model) renderPanel(c *Canvas, snap state.Snapshot, pw int, height int) {
	c.Fill(0, 0, pw, height, panelShade, 0.35)

	inner := pw - 4
	if inner < 1 {
		return
	}
	bold := textStyle{bold: true}
	dim := textStyle{dim: true}

	c.Text(2, 1, inner, "search", bold)
	m.renderInput(c, 2, 3, inner)

	switch {
	case m.searching:
		c.Text(2, 4, inner, m.spinner.View()+" searching", dim)
	case snap.Search != "" && len(snap.Results) == 0:
		c.Text(2, 4, inner, "no results", dim)
	case snap.Search != "":
		c.Text(2, 4, inner, fmt.Sprintf("%d results", len(snap.Results)), dim)
	}

	visible := m.resultRows()
	listFocused := !m.input.Focused()
	for i := 0; i < visible; i++ {
		idx := m.offset + i
		if idx >= len(snap.Results) {
			break
		}
		t := &snap.Results[idx]
		row := 6 + i

		marker := "  "
		if idx == m.cursor {
			marker = "› "
		}
		if snap.Selected.IsSameTrack(t) {
			marker = "♪ "
			if idx == m.cursor {
				marker = "♪›"
			}
		}

		st := textStyle{}
		if idx == m.cursor && listFocused {
			st.bold = true
			c.Fill(1, row, pw-2, 1, panelShade, 0.25)
		}
		if !t.HasPreview() {
			st.dim = true
		}

		label := t.Name
		if artists := t.ArtistLine(); artists != "" {
			label += " · " + artists
		}
		n := c.Text(2, row, inner, marker, st)
		c.Text(2+n, row, inner-n, truncate(label, inner-n), st)
	}
}

func (m Model) renderInput(c *Canvas, col int, row int, width int) {
	value := []rune(m.input.Value())
	n := c.Text(col, row, width, "› ", textStyle{})
	if len(value) == 0 {
		if m.input.Focused() {
			n += c.Text(col+n, row, width-n, "▏", textStyle{})
		}
		c.Text(col+n, row, width-n, m.input.Placeholder, textStyle{dim: true})
		return
	}

	avail := width - n - 1
	if avail < 1 {
		return
	}

	pos := m.input.Position()
	if pos > len(value) {
		pos = len(value)
	}
	line := string(value)
	if m.input.Focused() {
		line = string(value[:pos]) + "▏" + string(value[pos:])
	}
	// keep the end of long queries in view
	for runewidth.StringWidth(line) > avail {
		_, size := firstRune(line)
		line = line[size:]
	}
	c.Text(col+n, row, avail+1, line, textStyle{})
}

func firstRune(s string) (rune, int) {
	for i, r := range s {
		if i > 0 {
			return r, i
		}
	}
	return 0, len(s)
}

func (m Model) renderIdle(c *Canvas, col int, width int, height int) {
	if width <= 0 {
		return
	}

	banner := bannerLines(width)
	top := (height - len(banner) - 2) / 2
	if top < 1 {
		top = 1
	}
	for i, line := range banner {
		pad := (width - runewidth.StringWidth(line)) / 2
		c.Text(col+pad, top+i, width-pad, line, textStyle{bold: true})
	}

	hint := "press tab to search"
	pad := (width - runewidth.StringWidth(hint)) / 2
	c.Text(col+pad, top+len(banner)+1, width-pad, hint, textStyle{dim: true})
}

// bannerLines renders the title in ascii art, or plain when too narrow.
func bannerLines(width int) []string {
	fig := figure.NewFigure(bannerText, "", true)
	var lines []string
	widest := 0
	for _, line := range strings.Split(fig.String(), "\n") {
		line = strings.TrimRight(line, " ")
		if line == "" {
			continue
		}
		if w := runewidth.StringWidth(line); w > widest {
			widest = w
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 || widest > width {
		return []string{bannerText}
	}
	// keep the block left-aligned as one unit
	for i := range lines {
		lines[i] += strings.Repeat(" ", widest-runewidth.StringWidth(lines[i]))
	}
	return lines
}

func (m Model) renderNowPlaying(c *Canvas, snap state.Snapshot, col int, width int, height int) *artPlacement {
	if width <= 0 {
		return nil
	}
	t := snap.Selected

	artW, artH := 16, 8
	if height < 20 || width < 48 {
		artW, artH = 10, 5
	}
	if height < 14 || width < 36 {
		artW, artH = 0, 0
	}

	top := 2
	infoCol := col
	var art *artPlacement
	if img := m.pipeline.Artwork(); img != nil && artH > 0 {
		art = &artPlacement{img: img, col: col, row: top, width: artW, height: artH}
		if !m.useKittyGraphics() {
			c.Image(col, top, artW, artH, img)
		}
		infoCol = col + artW + 3
	}
	infoW := width - (infoCol - col)

	c.Text(infoCol, top, infoW, truncate(t.Name, infoW), textStyle{bold: true})
	c.Text(infoCol, top+1, infoW, truncate(t.ArtistLine(), infoW), textStyle{})
	if t.Album != "" {
		c.Text(infoCol, top+2, infoW, truncate(t.Album, infoW), textStyle{dim: true})
	}

	c.Text(infoCol, top+4, infoW, truncate(statusLine(t, snap.Transport), infoW), textStyle{})
	if f := snap.Features; f != nil {
		c.Text(infoCol, top+5, infoW, truncate(featureLine(f), infoW), textStyle{dim: true})
	}

	barRow := top + 7
	if art != nil && top+artH+1 > barRow {
		barRow = top + artH + 1
	}
	if barRow < height {
		m.renderProgress(c, snap.Transport, col, barRow, width)
	}
	return art
}

func statusLine(t *track.Track, ts transport.State) string {
	var status string
	switch ts.Phase() {
	case transport.LoadedPlaying:
		status = "▶ playing"
	case transport.LoadedPaused:
		status = "❚❚ paused"
	default:
		if t.HasPreview() {
			status = "· loading"
		} else {
			status = "no preview available"
		}
	}
	if ts.Loop {
		status += "  · repeat"
	}
	return status
}

func featureLine(f *track.AudioFeatures) string {
	return fmt.Sprintf("energy %d%%  dance %d%%  mood %d%%  %.0f bpm",
		percent(f.Energy), percent(f.Danceability), percent(f.Valence), f.Tempo)
}

func percent(v float64) int {
	return int(clamp(v, 0, 1)*100 + 0.5)
}

func (m Model) renderProgress(c *Canvas, ts transport.State, col int, row int, width int) {
	current := colors.FormatSeconds(ts.CurrentTime)
	total := "-:--"
	if ts.DurationKnown {
		total = colors.FormatSeconds(ts.Duration)
	}

	barWidth := width - len(current) - len(total) - 4
	if barWidth < 4 {
		c.Text(col, row, width, current+" / "+total, textStyle{})
		return
	}

	progress := 0.0
	if ts.DurationKnown && ts.Duration > 0 {
		progress = clamp(ts.CurrentTime/ts.Duration, 0, 1)
	}
	filled := int(float64(barWidth) * progress)

	x := col
	x += c.Text(x, row, 0, current+"  ", textStyle{dim: true})
	for i := 0; i < barWidth; i++ {
		switch {
		case i < filled:
			c.Text(x+i, row, 1, "━", textStyle{bold: true})
		case i == filled && ts.Loaded():
			c.Text(x+i, row, 1, "●", textStyle{bold: true})
		default:
			c.Text(x+i, row, 1, "─", textStyle{dim: true})
		}
	}
	c.Text(x+barWidth+2, row, 0, total, textStyle{dim: true})
}

func (m Model) renderFooter(c *Canvas, snap state.Snapshot, width int, height int) {
	row := height - 1
	help := helpText
	if snap.PanelOpen && !m.input.Focused() {
		help = "i edit · " + help
	}

	avail := width - 4
	name := m.currentTheme().Name
	if w := runewidth.StringWidth(name); avail-w-2 >= 24 {
		c.Text(width-w-2, row, w, name, textStyle{dim: true})
		avail -= w + 2
	}
	c.Text(2, row, avail, truncate(help, avail), textStyle{dim: true})
}
