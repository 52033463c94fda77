package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"karolbroda.com/chromaplay/internal/config"
	"karolbroda.com/chromaplay/internal/pipeline"
	"karolbroda.com/chromaplay/internal/state"
	"karolbroda.com/chromaplay/internal/terminal"
	"karolbroda.com/chromaplay/internal/theme"
	"karolbroda.com/chromaplay/internal/transport"
)

type TickMsg time.Time

type Model struct {
	store     *state.Store
	pipeline  *pipeline.Pipeline
	transport *transport.Controller
	termCaps  *terminal.Capabilities
	log       *zap.Logger

	input     textinput.Model
	spinner   spinner.Model
	searching bool
	cursor    int
	offset    int

	started   time.Time
	elapsed   time.Duration
	tickCount int
	themeName string
	animState AnimState

	quitting bool
	width    int
	height   int
}

type ModelConfig struct {
	Store     *state.Store
	Pipeline  *pipeline.Pipeline
	Transport *transport.Controller
	TermCaps  *terminal.Capabilities
	Logger    *zap.Logger
}

func NewModel(cfg ModelConfig) Model {
	ti := textinput.New()
	ti.Placeholder = "search tracks"
	ti.Prompt = ""
	ti.CharLimit = 120

	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle()

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	store := cfg.Store
	if store == nil {
		store = state.NewStore()
	}
	ctrl := cfg.Transport
	if ctrl == nil {
		ctrl = transport.NewController(transport.Config{Sink: store, Logger: log})
	}
	pl := cfg.Pipeline
	if pl == nil {
		pl = pipeline.New(pipeline.Config{Store: store, Transport: ctrl, Logger: log})
	}

	m := Model{
		store:     store,
		pipeline:  pl,
		transport: ctrl,
		termCaps:  cfg.TermCaps,
		log:       log,
		input:     ti,
		spinner:   s,
		started:   time.Now(),
	}

	m.animState.Reset(m.store.PanelOpen())
	if m.store.PanelOpen() {
		m.input.Focus()
	}
	if th := m.store.Theme(); th != nil {
		m.themeName = th.Name
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(),
		textinput.Blink,
	}
	if listen := m.transport.Listen(); listen != nil {
		cmds = append(cmds, listen)
	}
	return tea.Batch(cmds...)
}

func tickCmd() tea.Cmd {
	return tea.Tick(config.FrameInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// currentTheme is the applied theme, or the default before any selection
// has produced one.
func (m Model) currentTheme() theme.Theme {
	if th := m.store.Theme(); th != nil {
		return *th
	}
	return theme.Default()
}

// clampCursor keeps the cursor on a result and the list window around it.
func (m *Model) clampCursor(visible int) {
	n := len(m.store.Results())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if visible <= 0 {
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m Model) Width() int  { return m.width }
func (m Model) Height() int { return m.height }

func (m Model) Cursor() int              { return m.cursor }
func (m Model) Searching() bool          { return m.searching }
func (m Model) InputFocused() bool       { return m.input.Focused() }
func (m Model) Query() string            { return m.input.Value() }
func (m Model) Elapsed() time.Duration   { return m.elapsed }
func (m Model) TickCount() int           { return m.tickCount }
func (m Model) IsQuitting() bool         { return m.quitting }
func (m Model) AnimState() *AnimState    { return &m.animState }
func (m Model) Snapshot() state.Snapshot { return m.store.Snapshot() }

func (m *Model) Stop() {
	if err := m.transport.Close(); err != nil {
		m.log.Warn("failed to close audio source", zap.Error(err))
	}
}
