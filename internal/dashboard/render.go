package dashboard

import (
	"fmt"
	"strings"

	"github.com/agenttop/agenttop/internal/layout"
)

// Render draws one frame: it re-queries the terminal size, computes panel
// bounds, snapshots every panel's content under the read lock, and then
// issues the text placement calls. Drawing happens after the lock is
// released so the renderer's I/O never blocks writers.
func (d *Dashboard) Render() error {
	if d.renderer == nil || d.size == nil {
		return fmt.Errorf("dashboard: renderer or size source not configured")
	}

	width, height := d.size()

	type frame struct {
		panel layout.PanelConfig
		lines []string
	}

	d.mu.RLock()
	panels := d.layout.Compute(width, height)
	frames := make([]frame, 0, len(panels))
	for _, p := range panels {
		if !p.Visible || p.Bounds.Width < 4 || p.Bounds.Height < 2 {
			continue
		}
		frames = append(frames, frame{
			panel: p,
			lines: d.panelLinesLocked(p.Type, p.Bounds.Width, p.Bounds.Height-1),
		})
	}
	d.mu.RUnlock()

	d.renderer.Clear()
	for _, f := range frames {
		b := f.panel.Bounds
		d.renderer.WriteText(b.X, b.Y, panelTitleLine(f.panel.Title, b.Width))
		for i, line := range f.lines {
			if i+1 >= b.Height {
				break
			}
			d.renderer.WriteText(b.X, b.Y+1+i, clipLine(line, b.Width))
		}
	}
	return d.renderer.Flush()
}

// panelTitleLine builds the horizontal rule with an embedded title that
// heads each panel, e.g. "─ Cost ─────".
func panelTitleLine(title string, width int) string {
	head := "─ " + title + " "
	if len([]rune(head)) >= width {
		return clipLine(head, width)
	}
	return head + strings.Repeat("─", width-len([]rune(head)))
}

// clipLine truncates a line to width terminal cells.
func clipLine(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width])
}
