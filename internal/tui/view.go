package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}
	if m.width == 0 || m.height == 0 {
		return "Starting agenttop..."
	}

	header := m.renderHeader()
	status := m.renderStatusBar()

	body := m.screen.Frame()
	bodyH := m.height - chromeHeight
	lines := strings.Split(body, "\n")
	if len(lines) > bodyH {
		lines = lines[:bodyH]
	}
	for len(lines) < bodyH {
		lines = append(lines, "")
	}

	return header + "\n" + strings.Join(lines, "\n") + "\n" + status
}

func (m Model) renderHeader() string {
	title := " agenttop"
	mode := fmt.Sprintf(" [%s]", m.engine.LayoutMode())
	indicators := m.headerIndicators()
	help := "1-5:Layout  Tab:Panel  r:Refresh  q:Quit "

	padding := m.width - lipgloss.Width(title) - lipgloss.Width(mode) -
		lipgloss.Width(indicators) - lipgloss.Width(help)
	if padding < 0 {
		padding = 0
	}

	return headerStyle.Width(m.width).Render(
		title + mode + indicators + strings.Repeat(" ", padding) + help,
	)
}

func (m Model) headerIndicators() string {
	var parts []string
	if !m.isPersistent {
		parts = append(parts, "[No persistence]")
	}
	if m.renderErr != nil {
		parts = append(parts, errStyle.Render("[render error]"))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + dimStyle.Render(strings.Join(parts, " "))
}

func (m Model) renderStatusBar() string {
	ds := m.engine.Stats()
	line := fmt.Sprintf(
		" calls:%d  errors:%.1f%%  tokens:%d  cost:$%.4f  avg:%.0fms",
		ds.TotalAPICalls, ds.ErrorRate, ds.TotalTokens, ds.TotalCostUSD, ds.AvgResponseTimeMS,
	)
	return statusBarStyle.Width(m.width).Render(line)
}
