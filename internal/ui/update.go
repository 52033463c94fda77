package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"karolbroda.com/chromaplay/internal/config"
	"karolbroda.com/chromaplay/internal/pipeline"
	"karolbroda.com/chromaplay/internal/theme"
	"karolbroda.com/chromaplay/internal/transport"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case TickMsg:
		return m.handleTick(time.Time(msg))

	case transport.UpdateMsg:
		m.transport.HandleUpdate(msg.Update)
		return m, m.transport.Listen()

	case pipeline.SearchMsg, pipeline.FeaturesMsg, pipeline.PaletteMsg:
		return m.handlePipeline(msg)

	case spinner.TickMsg:
		if !m.searching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.input.Focused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handlePipeline(msg tea.Msg) (tea.Model, tea.Cmd) {
	prev := m.store.Theme()
	if !m.pipeline.Update(msg) {
		return m, nil
	}

	switch msg.(type) {
	case pipeline.SearchMsg:
		m.searching = false
		m.cursor = 0
		m.offset = 0
	case pipeline.PaletteMsg:
		m.themeChanged(prev)
	}
	return m, nil
}

// themeChanged starts a crossfade when a palette result swapped the theme.
func (m *Model) themeChanged(prev *theme.Theme) {
	th := m.store.Theme()
	if th == nil || th.Name == m.themeName {
		return
	}
	m.themeName = th.Name
	m.animState.StartFade(prev)
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c":
		return m.quit()

	case "tab", "/":
		return m.togglePanel()

	case "up", "down":
		if !m.store.PanelOpen() {
			return m, nil
		}
		m.input.Blur()
		if key == "up" {
			m.cursor--
		} else {
			m.cursor++
		}
		m.clampCursor(m.resultRows())
		return m, nil

	case "enter":
		if !m.store.PanelOpen() {
			return m, nil
		}
		if m.input.Focused() {
			return m.submitSearch()
		}
		return m.selectCursor()

	case "esc":
		if m.input.Focused() {
			m.input.Blur()
		}
		return m, nil
	}

	if m.input.Focused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key {
	case "q":
		return m.quit()

	case " ", "space":
		m.transport.TogglePlay()
		return m, nil

	case "left":
		m.transport.SeekBy(-config.SeekStepSeconds)
		return m, nil

	case "right":
		m.transport.SeekBy(config.SeekStepSeconds)
		return m, nil

	case "r":
		m.transport.ToggleRepeat()
		return m, nil

	case "i":
		if m.store.PanelOpen() {
			return m, m.input.Focus()
		}
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.Stop()
	return m, tea.Quit
}

func (m Model) togglePanel() (tea.Model, tea.Cmd) {
	m.store.TogglePanel()
	open := m.store.PanelOpen()
	m.animState.SetPanel(open)
	if !open {
		m.input.Blur()
		return m, nil
	}
	return m, m.input.Focus()
}

func (m Model) submitSearch() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return m, nil
	}
	m.input.Blur()
	m.searching = true
	m.log.Debug("search submitted", zap.String("query", query))
	return m, tea.Batch(m.pipeline.Search(query), m.spinner.Tick)
}

func (m Model) selectCursor() (tea.Model, tea.Cmd) {
	results := m.store.Results()
	if m.cursor < 0 || m.cursor >= len(results) {
		return m, nil
	}
	return m, m.pipeline.Select(results[m.cursor])
}

func (m Model) handleTick(t time.Time) (tea.Model, tea.Cmd) {
	m.tickCount++
	m.elapsed = t.Sub(m.started)
	m.animState.Update()
	return m, tickCmd()
}
