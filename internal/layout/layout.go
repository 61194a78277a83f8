// Package layout computes panel bounds for the dashboard. Given a layout
// mode and the current terminal size it produces a set of non-overlapping
// panel rectangles that never exceed the terminal area.
package layout

import "time"

// Mode selects how panels are arranged.
type Mode string

const (
	ModeFull     Mode = "full"
	ModeCompact  Mode = "compact"
	ModeFocused  Mode = "focused"
	ModeAdaptive Mode = "adaptive"
	ModeGrid     Mode = "grid"
)

// ValidMode reports whether m names a known layout mode.
func ValidMode(m Mode) bool {
	switch m {
	case ModeFull, ModeCompact, ModeFocused, ModeAdaptive, ModeGrid:
		return true
	}
	return false
}

// PanelType names one category of derived data shown in a panel.
type PanelType string

const (
	PanelPerformance     PanelType = "performance"
	PanelTokenUsage      PanelType = "tokens"
	PanelCostTracker     PanelType = "cost"
	PanelConversation    PanelType = "conversation"
	PanelSystemResources PanelType = "system"
	PanelToolAnalytics   PanelType = "tools"
	PanelErrorLog        PanelType = "errors"
	PanelStatusOverview  PanelType = "status"
	PanelLatency         PanelType = "latency"
	PanelThroughput      PanelType = "throughput"
)

// Titles maps each panel type to its display title.
var Titles = map[PanelType]string{
	PanelPerformance:     "Performance",
	PanelTokenUsage:      "Token Usage",
	PanelCostTracker:     "Cost",
	PanelConversation:    "Conversation",
	PanelSystemResources: "System",
	PanelToolAnalytics:   "Tools",
	PanelErrorLog:        "Errors",
	PanelStatusOverview:  "Status",
	PanelLatency:         "Latency",
	PanelThroughput:      "Throughput",
}

// Bounds is a panel rectangle in terminal cells.
type Bounds struct {
	X, Y          int
	Width, Height int
}

// PanelConfig is one visible panel with computed bounds.
type PanelConfig struct {
	Type         PanelType
	Title        string
	Bounds       Bounds
	Visible      bool
	RefreshEvery time.Duration
}

const (
	minWidth  = 40
	minHeight = 10

	headerHeight = 3
)

// gridOrder is the panel priority used by the grid and full layouts.
// Panels beyond the available slots are dropped.
var gridOrder = []PanelType{
	PanelStatusOverview,
	PanelPerformance,
	PanelTokenUsage,
	PanelCostTracker,
	PanelSystemResources,
	PanelToolAnalytics,
	PanelErrorLog,
	PanelLatency,
	PanelThroughput,
	PanelConversation,
}

// Engine computes panel bounds for a layout mode.
type Engine struct {
	mode    Mode
	focused PanelType
}

// NewEngine creates a layout engine. Unknown modes fall back to adaptive.
func NewEngine(mode Mode) *Engine {
	if !ValidMode(mode) {
		mode = ModeAdaptive
	}
	return &Engine{mode: mode, focused: PanelPerformance}
}

// Mode returns the configured layout mode.
func (e *Engine) Mode() Mode {
	return e.mode
}

// SetMode changes the layout mode. Unknown modes are ignored.
func (e *Engine) SetMode(m Mode) {
	if ValidMode(m) {
		e.mode = m
	}
}

// SetFocused overrides the panel shown by the focused layout. The default
// is the performance panel.
func (e *Engine) SetFocused(p PanelType) {
	e.focused = p
}

// Focused returns the panel the focused layout shows.
func (e *Engine) Focused() PanelType {
	return e.focused
}

// Order returns the panel priority order used by the grid and full
// layouts, copied so callers cannot mutate it.
func Order() []PanelType {
	return append([]PanelType(nil), gridOrder...)
}

// Resolve maps the adaptive mode to a concrete layout for the given
// terminal size: full when the terminal is at least 120x40, grid at least
// 80x24, compact otherwise. Non-adaptive modes resolve to themselves.
func (e *Engine) Resolve(width, height int) Mode {
	if e.mode != ModeAdaptive {
		return e.mode
	}
	switch {
	case width >= 120 && height >= 40:
		return ModeFull
	case width >= 80 && height >= 24:
		return ModeGrid
	default:
		return ModeCompact
	}
}

// Compute returns the visible panels with their bounds for the given
// terminal size. Sizes below the minimum are clamped so every layout
// stays renderable.
func (e *Engine) Compute(width, height int) []PanelConfig {
	if width < minWidth {
		width = minWidth
	}
	if height < minHeight {
		height = minHeight
	}

	switch e.Resolve(width, height) {
	case ModeFull:
		return e.fullLayout(width, height)
	case ModeGrid:
		return e.gridLayout(width, height)
	case ModeFocused:
		return []PanelConfig{panel(e.focused, Bounds{0, 0, width, height})}
	default:
		return e.compactLayout(width, height)
	}
}

// fullLayout places the status overview as a header strip and tiles the
// remaining nine panels into a 3x3 grid below it.
func (e *Engine) fullLayout(width, height int) []PanelConfig {
	panels := []PanelConfig{
		panel(PanelStatusOverview, Bounds{0, 0, width, headerHeight}),
	}
	body := Bounds{0, headerHeight, width, height - headerHeight}
	for i, b := range tile(body, 3, 3) {
		panels = append(panels, panel(gridOrder[i+1], b))
	}
	return panels
}

// gridLayout tiles the first six panels of the priority order into a
// fixed 3x2 grid; panels beyond the sixth slot are dropped.
func (e *Engine) gridLayout(width, height int) []PanelConfig {
	var panels []PanelConfig
	for i, b := range tile(Bounds{0, 0, width, height}, 2, 3) {
		panels = append(panels, panel(gridOrder[i], b))
	}
	return panels
}

// compactLayout stacks a header strip, the performance chart, and the
// conversation log vertically.
func (e *Engine) compactLayout(width, height int) []PanelConfig {
	body := height - headerHeight
	perfH := body * 60 / 100
	if perfH < 3 {
		perfH = 3
	}
	convH := body - perfH
	if convH < 3 {
		convH = 3
		perfH = body - convH
	}
	return []PanelConfig{
		panel(PanelStatusOverview, Bounds{0, 0, width, headerHeight}),
		panel(PanelPerformance, Bounds{0, headerHeight, width, perfH}),
		panel(PanelConversation, Bounds{0, headerHeight + perfH, width, convH}),
	}
}

// tile splits an area into rows x cols rectangles in row-major order,
// giving remainder cells to the last column and row so the tiles cover
// the area exactly without overlap.
func tile(area Bounds, rows, cols int) []Bounds {
	cellW := area.Width / cols
	cellH := area.Height / rows

	out := make([]Bounds, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			b := Bounds{
				X:      area.X + c*cellW,
				Y:      area.Y + r*cellH,
				Width:  cellW,
				Height: cellH,
			}
			if c == cols-1 {
				b.Width = area.Width - c*cellW
			}
			if r == rows-1 {
				b.Height = area.Height - r*cellH
			}
			out = append(out, b)
		}
	}
	return out
}

func panel(t PanelType, b Bounds) PanelConfig {
	return PanelConfig{
		Type:    t,
		Title:   Titles[t],
		Bounds:  b,
		Visible: true,
	}
}
