// Package tui is the bubbletea front end for the dashboard engine. The
// engine draws plain text into a cell grid; this layer drives the refresh
// tick, handles keys, and wraps the composed frame with a styled header
// and status bar.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/agenttop/agenttop/internal/config"
	"github.com/agenttop/agenttop/internal/layout"
	"github.com/agenttop/agenttop/internal/stats"
	"github.com/agenttop/agenttop/internal/term"
)

type tickMsg time.Time

// Engine is the dashboard surface the TUI drives.
type Engine interface {
	Render() error
	Stats() stats.DashboardStats
	LayoutMode() layout.Mode
	SetLayoutMode(m layout.Mode)
	FocusedPanel() layout.PanelType
	SetFocusedPanel(p layout.PanelType)
}

// chromeHeight is the rows reserved for the header and status bar around
// the engine's drawing surface.
const chromeHeight = 2

type Model struct {
	width    int
	height   int
	keys     KeyMap
	quitting bool

	cfg    config.Config
	engine Engine
	screen *term.Screen

	renderErr error

	isPersistent bool
	refreshRate  time.Duration

	onShutdown func()
}

func NewModel(cfg config.Config, engine Engine, screen *term.Screen, opts ...ModelOption) Model {
	m := Model{
		keys:        DefaultKeyMap(),
		cfg:         cfg,
		engine:      engine,
		screen:      screen,
		refreshRate: time.Duration(cfg.Display.RefreshRateMS) * time.Millisecond,
	}

	for _, opt := range opts {
		opt(&m)
	}

	return m
}

type ModelOption func(*Model)

func WithOnShutdown(fn func()) ModelOption {
	return func(m *Model) { m.onShutdown = fn }
}

func WithPersistenceFlag(isPersistent bool) ModelOption {
	return func(m *Model) { m.isPersistent = isPersistent }
}

func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.screen.Resize(msg.Width, max(msg.Height-chromeHeight, 1))
		m.renderErr = m.engine.Render()
		return m, nil

	case tickMsg:
		m.renderErr = m.engine.Render()
		return m, m.tickCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.onShutdown != nil {
			m.onShutdown()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.ModeFull):
		m.engine.SetLayoutMode(layout.ModeFull)
	case key.Matches(msg, m.keys.ModeGrid):
		m.engine.SetLayoutMode(layout.ModeGrid)
	case key.Matches(msg, m.keys.ModeComp):
		m.engine.SetLayoutMode(layout.ModeCompact)
	case key.Matches(msg, m.keys.ModeFocus):
		m.engine.SetLayoutMode(layout.ModeFocused)
	case key.Matches(msg, m.keys.ModeAdapt):
		m.engine.SetLayoutMode(layout.ModeAdaptive)

	case key.Matches(msg, m.keys.NextPanel):
		m.engine.SetFocusedPanel(nextPanel(m.engine.FocusedPanel()))

	case key.Matches(msg, m.keys.ForceFresh):
		// fall through to the shared render below
	default:
		return m, nil
	}

	m.renderErr = m.engine.Render()
	return m, nil
}

// nextPanel advances through the panel priority order, wrapping at the
// end.
func nextPanel(cur layout.PanelType) layout.PanelType {
	order := layout.Order()
	for i, p := range order {
		if p == cur {
			return order[(i+1)%len(order)]
		}
	}
	return order[0]
}
