package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/chromaplay/internal/artwork"
	"karolbroda.com/chromaplay/internal/config"
	"karolbroda.com/chromaplay/internal/pipeline"
	"karolbroda.com/chromaplay/internal/state"
	"karolbroda.com/chromaplay/internal/theme"
	"karolbroda.com/chromaplay/internal/track"
	"karolbroda.com/chromaplay/internal/transport"
)

var (
	blueInGreen = track.Track{
		ID:          "t1",
		Name:        "Blue in Green",
		Artists:     []string{"Miles Davis"},
		Album:       "Kind of Blue",
		AlbumArtURL: "https://img.example/1.jpg",
		PreviewURL:  "https://p.example/1.mp3",
	}
	blueMonk = track.Track{
		ID:          "t2",
		Name:        "Blue Monk",
		Artists:     []string{"Thelonious Monk"},
		AlbumArtURL: "https://img.example/2.jpg",
		PreviewURL:  "https://p.example/2.mp3",
	}
)

type fakeCatalog struct{}

func (fakeCatalog) Search(ctx context.Context, query string) ([]track.Track, error) {
	if query == "blue" {
		return []track.Track{blueInGreen, blueMonk}, nil
	}
	return nil, nil
}

func (fakeCatalog) Features(ctx context.Context, id string) (*track.AudioFeatures, error) {
	return &track.AudioFeatures{TrackID: id, Energy: 0.62, Danceability: 0.7, Valence: 0.4, Tempo: 120}, nil
}

type fakePalette struct{}

func (fakePalette) Extract(ctx context.Context, url string, count int) ([]artwork.RGB, error) {
	return []artwork.RGB{{R: 0x10, G: 0x20, B: 0x80}, {R: 0x20, G: 0x60, B: 0xC0}, {R: 0x80, G: 0x90, B: 0xF0}, {R: 0x05, G: 0x05, B: 0x20}}, nil
}

type harness struct {
	m     Model
	store *state.Store
	ctrl  *transport.Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := state.NewStore()
	doc := theme.NewDocument()
	ctrl := transport.NewController(transport.Config{Sink: store})
	pl := pipeline.New(pipeline.Config{
		Catalog:   fakeCatalog{},
		Palette:   fakePalette{},
		Applier:   doc,
		Store:     store,
		Transport: ctrl,
	})
	m := NewModel(ModelConfig{Store: store, Pipeline: pl, Transport: ctrl})
	h := &harness{m: m, store: store, ctrl: ctrl}
	h.send(tea.WindowSizeMsg{Width: 100, Height: 30})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

func (h *harness) key(k tea.KeyType) tea.Cmd {
	return h.send(tea.KeyMsg{Type: k})
}

func (h *harness) typeText(s string) {
	for _, r := range s {
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// deliver runs cmd and feeds back the pipeline results it produces. Other
// commands (cursor blink, spinner) are dropped.
func (h *harness) deliver(cmd tea.Cmd) {
	for _, msg := range collect(cmd) {
		switch msg.(type) {
		case pipeline.SearchMsg, pipeline.FeaturesMsg, pipeline.PaletteMsg:
			h.send(msg)
		}
	}
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func (h *harness) plain() string {
	c, _ := h.m.compose(100, 30)
	return strings.Join(c.Plain(), "\n")
}

func TestPanelToggle(t *testing.T) {
	h := newHarness(t)
	if !h.store.PanelOpen() || !h.m.InputFocused() {
		t.Fatal("panel should start open with the input focused")
	}

	h.key(tea.KeyTab)
	if h.store.PanelOpen() || h.m.InputFocused() {
		t.Error("tab should close the panel and blur the input")
	}

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	if !h.store.PanelOpen() || !h.m.InputFocused() {
		t.Error("/ should reopen the panel")
	}
}

func TestSearchThenSelect(t *testing.T) {
	h := newHarness(t)

	h.typeText("blue")
	if h.m.Query() != "blue" {
		t.Fatalf("query = %q", h.m.Query())
	}

	cmd := h.key(tea.KeyEnter)
	if !h.m.Searching() {
		t.Error("enter should start a search")
	}
	h.deliver(cmd)

	if h.m.Searching() {
		t.Error("search result should stop the spinner")
	}
	if got := h.store.Results(); len(got) != 2 {
		t.Fatalf("results = %d, want 2", len(got))
	}

	h.key(tea.KeyDown)
	if h.m.Cursor() != 1 || h.m.InputFocused() {
		t.Fatalf("cursor = %d focused = %v", h.m.Cursor(), h.m.InputFocused())
	}
	h.key(tea.KeyDown)
	if h.m.Cursor() != 1 {
		t.Errorf("cursor should stop at the last result, got %d", h.m.Cursor())
	}

	h.deliver(h.key(tea.KeyEnter))

	snap := h.store.Snapshot()
	if snap.Selected == nil || snap.Selected.ID != "t2" {
		t.Fatalf("selected = %+v", snap.Selected)
	}
	if snap.Theme == nil {
		t.Fatal("theme should be applied")
	}
	if snap.Features == nil || snap.Features.TrackID != "t2" {
		t.Errorf("features = %+v", snap.Features)
	}
	if snap.Transport.SourceURL != blueMonk.PreviewURL || !snap.Transport.Playing {
		t.Errorf("transport = %+v", snap.Transport)
	}
	if !h.m.AnimState().Fading() {
		t.Error("a new theme should start a crossfade")
	}

	screen := h.plain()
	for _, want := range []string{"Blue Monk", "Thelonious Monk", "▶ playing", "energy 62%"} {
		if !strings.Contains(screen, want) {
			t.Errorf("screen missing %q:\n%s", want, screen)
		}
	}
}

func TestRapidSelectionKeepsLatest(t *testing.T) {
	h := newHarness(t)
	h.typeText("blue")
	h.deliver(h.key(tea.KeyEnter))

	first := h.key(tea.KeyEnter)
	h.key(tea.KeyDown)
	second := h.key(tea.KeyEnter)

	h.deliver(second)
	h.deliver(first)

	snap := h.store.Snapshot()
	if snap.Selected.ID != "t2" || snap.Transport.SourceURL != blueMonk.PreviewURL {
		t.Errorf("selected %s playing %s", snap.Selected.ID, snap.Transport.SourceURL)
	}
}

func TestQuitOnlyWhenInputBlurred(t *testing.T) {
	h := newHarness(t)

	h.typeText("q")
	if h.m.IsQuitting() || h.m.Query() != "q" {
		t.Fatal("q should type into the focused input")
	}

	h.key(tea.KeyEsc)
	cmd := h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if !h.m.IsQuitting() {
		t.Fatal("q should quit once the input is blurred")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.Quit")
	}
	if h.m.View() != "" {
		t.Error("view should be empty while quitting")
	}
}

func TestTransportKeys(t *testing.T) {
	h := newHarness(t)
	h.key(tea.KeyTab)

	h.key(tea.KeySpace)
	if h.ctrl.State().Phase() != transport.Idle {
		t.Fatal("space without media should stay idle")
	}

	h.ctrl.Load("https://p.example/x.mp3")
	h.send(transport.UpdateMsg{Update: transport.Update{URL: "https://p.example/x.mp3", Duration: 30, DurationKnown: true}})

	h.key(tea.KeySpace)
	if !h.ctrl.State().Playing {
		t.Error("space should start playback")
	}

	h.key(tea.KeyRight)
	if got := h.ctrl.State().CurrentTime; got != 5 {
		t.Errorf("after right = %v, want 5", got)
	}
	h.key(tea.KeyLeft)
	h.key(tea.KeyLeft)
	if got := h.ctrl.State().CurrentTime; got != 0 {
		t.Errorf("after left = %v, want 0", got)
	}

	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	if !h.store.Transport().Loop {
		t.Error("r should toggle repeat")
	}
}

func TestIdleScreen(t *testing.T) {
	h := newHarness(t)
	screen := h.plain()

	if got := len(strings.Split(screen, "\n")); got != 30 {
		t.Errorf("rows = %d, want 30", got)
	}
	if !strings.Contains(screen, "press tab to search") {
		t.Errorf("idle hint missing:\n%s", screen)
	}
	if !strings.Contains(screen, "search tracks") {
		t.Error("placeholder should show in the panel")
	}
	if !strings.Contains(screen, theme.Default().Name) {
		t.Error("footer should name the theme")
	}
}

func TestViewFillsTerminal(t *testing.T) {
	h := newHarness(t)
	view := h.m.View()
	if got := strings.Count(view, "\n") + 1; got != 30 {
		t.Errorf("view rows = %d, want 30", got)
	}
}

func TestTickAdvancesAnimation(t *testing.T) {
	h := newHarness(t)
	h.key(tea.KeyTab)

	for i := 0; i < panelTicks; i++ {
		h.send(TickMsg(h.m.started.Add(time.Duration(i+1) * config.FrameInterval)))
	}
	if w := h.m.AnimState().PanelWidth(40); w != 0 {
		t.Errorf("closed panel width = %d", w)
	}
	if h.m.TickCount() != panelTicks {
		t.Errorf("ticks = %d", h.m.TickCount())
	}
	if h.m.Elapsed() <= 0 {
		t.Error("elapsed should advance with ticks")
	}
}

func solid(hex string, w int, h int) [][]string {
	grid := make([][]string, h)
	for y := range grid {
		grid[y] = make([]string, w)
		for x := range grid[y] {
			grid[y][x] = hex
		}
	}
	return grid
}

func TestCanvasText(t *testing.T) {
	c := NewCanvas(solid("#FFFFFF", 10, 2), 10, 2)

	if n := c.Text(2, 0, 4, "abcdef", textStyle{}); n != 4 {
		t.Errorf("clipped width = %d, want 4", n)
	}
	if got := c.Plain()[0]; got != "  abcd    " {
		t.Errorf("row = %q", got)
	}
	if fg := c.cells[0][2].fg; fg != "#111111" {
		t.Errorf("text on white should be dark, got %s", fg)
	}

	c.Text(8, 1, 0, "xyz", textStyle{})
	if got := c.Plain()[1]; got != "        xy" {
		t.Errorf("edge clip row = %q", got)
	}
	if c.Text(0, 5, 0, "off", textStyle{}) != 0 {
		t.Error("rows outside the canvas should not be written")
	}
}

func TestCanvasLinesMergeRuns(t *testing.T) {
	c := NewCanvas(solid("#202020", 6, 1), 6, 1)
	lines := c.Lines()
	if len(lines) != 1 || strings.Count(lines[0], " ") != 6 {
		t.Errorf("lines = %q", lines)
	}
}

func TestAnimStateFade(t *testing.T) {
	var a AnimState
	a.Reset(true)
	if a.Fading() || a.PanelWidth(40) != 40 {
		t.Fatalf("reset state = %+v", a)
	}

	a.StartFade(nil)
	if !a.Fading() || a.FadeWeight() != 0 {
		t.Fatal("fade should start from the previous theme")
	}
	for i := 0; i < fadeTicks; i++ {
		a.Update()
	}
	if a.Fading() || a.FadeWeight() != 1 {
		t.Errorf("fade should settle after %d ticks", fadeTicks)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"Blue Monk", 20, "Blue Monk"},
		{"Blue Monk", 5, "Blue…"},
		{"Blue Monk", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
