package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agenttop/agenttop/internal/layout"
)

// panelLinesLocked dispatches the read-only data query for one panel
// type. Callers must hold at least the read lock. No query mutates state.
func (d *Dashboard) panelLinesLocked(t layout.PanelType, width, height int) []string {
	switch t {
	case layout.PanelStatusOverview:
		return d.statusLines()
	case layout.PanelPerformance:
		return d.performanceLines(width)
	case layout.PanelTokenUsage:
		return d.tokenLines()
	case layout.PanelCostTracker:
		return d.costLines()
	case layout.PanelConversation:
		return d.conversationLines(height)
	case layout.PanelSystemResources:
		return d.systemLines(width)
	case layout.PanelToolAnalytics:
		return d.toolLines(height)
	case layout.PanelErrorLog:
		return d.errorLines(height)
	case layout.PanelLatency:
		return d.latencyLines()
	case layout.PanelThroughput:
		return d.throughputLines()
	}
	return nil
}

func (d *Dashboard) statusLines() []string {
	s := d.agg.Snapshot()
	running := "stopped"
	if d.collector.Running() {
		running = "running"
	}
	return []string{
		fmt.Sprintf("up %s  calls %d  tools %d  cost $%.4f  err %.1f%%  monitor %s",
			formatUptime(s.Uptime), s.TotalAPICalls, s.TotalToolExecutions,
			s.TotalCostUSD, s.ErrorRate, running),
		fmt.Sprintf("alerts %d  history %d", len(d.alerts.Active()), d.history.Len()),
	}
}

func (d *Dashboard) performanceLines(width int) []string {
	s := d.agg.Snapshot()
	recent := d.apiBuf.Recent(width)
	window := make([]float64, len(recent))
	for i, rec := range recent {
		window[i] = rec.LatencyMS
	}
	return []string{
		fmt.Sprintf("avg %.0fms over %d calls", s.AvgResponseTimeMS, s.TotalAPICalls),
		sparkline(window, width),
	}
}

func (d *Dashboard) tokenLines() []string {
	s := d.agg.Snapshot()
	var in, out int
	for _, rec := range d.apiBuf.Recent(d.apiBuf.Cap()) {
		in += rec.InputTokens
		out += rec.OutputTokens
	}
	return []string{
		fmt.Sprintf("total %d tok", s.TotalTokens),
		fmt.Sprintf("recent in %d / out %d", in, out),
	}
}

func (d *Dashboard) costLines() []string {
	s := d.agg.Snapshot()
	lines := []string{fmt.Sprintf("total $%.4f", s.TotalCostUSD)}
	if s.TotalAPICalls > 0 {
		lines = append(lines, fmt.Sprintf("avg/call $%.4f", s.TotalCostUSD/float64(s.TotalAPICalls)))
	}
	if last, ok := d.apiBuf.Latest(); ok {
		lines = append(lines, fmt.Sprintf("last $%.4f (%s)", last.CostUSD, last.Model))
	}
	return lines
}

func (d *Dashboard) conversationLines(height int) []string {
	entries := d.history.Recent(height)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		content := strings.ReplaceAll(e.Content, "\n", " ")
		lines = append(lines, fmt.Sprintf("%s %s: %s",
			e.Timestamp.Format("15:04:05"), e.Role, content))
	}
	if len(lines) == 0 {
		lines = append(lines, "no conversation yet")
	}
	return lines
}

func (d *Dashboard) systemLines(width int) []string {
	sample, ok := d.sysBuf.Latest()
	if !ok {
		return []string{"no samples yet"}
	}
	lines := []string{
		fmt.Sprintf("cpu %.1f%%  mem %.0f/%.0fMB  threads %d",
			sample.CPUPercent, sample.MemoryUsedMB, sample.MemoryTotalMB, sample.ThreadCount),
		fmt.Sprintf("net rx %s tx %s  disk r %s w %s",
			formatBytes(sample.NetRxBytes), formatBytes(sample.NetTxBytes),
			formatBytes(sample.DiskReadBytes), formatBytes(sample.DiskWriteBytes)),
	}
	recent := d.sysBuf.Recent(width)
	window := make([]float64, len(recent))
	for i, s := range recent {
		window[i] = s.CPUPercent
	}
	lines = append(lines, sparkline(window, width))
	return lines
}

func (d *Dashboard) toolLines(height int) []string {
	type toolAgg struct {
		count  int
		failed int
		sumMS  float64
	}
	tools := make(map[string]*toolAgg)
	for _, rec := range d.toolBuf.Recent(d.toolBuf.Cap()) {
		agg, ok := tools[rec.ToolName]
		if !ok {
			agg = &toolAgg{}
			tools[rec.ToolName] = agg
		}
		agg.count++
		agg.sumMS += rec.DurationMS
		if !rec.Success {
			agg.failed++
		}
	}
	if len(tools) == 0 {
		return []string{"no tool executions yet"}
	}

	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	// Most used first.
	sort.Slice(names, func(i, j int) bool {
		return tools[names[i]].count > tools[names[j]].count
	})

	lines := make([]string, 0, len(names))
	for _, name := range names {
		if len(lines) >= height {
			break
		}
		agg := tools[name]
		lines = append(lines, fmt.Sprintf("%-16s %3dx avg %.0fms fail %d",
			name, agg.count, agg.sumMS/float64(agg.count), agg.failed))
	}
	return lines
}

func (d *Dashboard) errorLines(height int) []string {
	var lines []string
	active := d.alerts.Active()
	// Newest alerts first.
	for i := len(active) - 1; i >= 0 && len(lines) < height; i-- {
		a := active[i]
		lines = append(lines, fmt.Sprintf("[%s] %s %s",
			a.Severity, a.Type, a.Message))
	}
	for _, rec := range d.apiBuf.Recent(d.apiBuf.Cap()) {
		if len(lines) >= height {
			break
		}
		if !rec.Success && rec.Error != "" {
			lines = append(lines, fmt.Sprintf("api %s: %s", rec.Model, rec.Error))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, "no errors")
	}
	return lines
}

func (d *Dashboard) latencyLines() []string {
	p, ok := d.latencyPercentilesLocked()
	if !ok {
		return []string{"no data"}
	}
	return []string{
		fmt.Sprintf("p50 %.0fms", p.P50),
		fmt.Sprintf("p95 %.0fms", p.P95),
		fmt.Sprintf("p99 %.0fms", p.P99),
	}
}

func (d *Dashboard) throughputLines() []string {
	recent := d.apiBuf.Recent(d.apiBuf.Cap())
	if len(recent) == 0 {
		return []string{"no data"}
	}
	span := recent[len(recent)-1].Timestamp.Sub(recent[0].Timestamp)
	if span <= 0 {
		span = time.Second
	}
	var tokens int
	for _, rec := range recent {
		tokens += rec.TotalTokens()
	}
	perMin := float64(len(recent)) / span.Minutes()
	tokPerSec := float64(tokens) / span.Seconds()
	return []string{
		fmt.Sprintf("%.1f calls/min", perMin),
		fmt.Sprintf("%.0f tok/s", tokPerSec),
	}
}

// sparkline renders a window of values as one line of block glyphs scaled
// to the window maximum. Empty windows produce an empty string.
func sparkline(window []float64, width int) string {
	if len(window) == 0 {
		return ""
	}
	if len(window) > width && width > 0 {
		window = window[len(window)-width:]
	}
	var max float64
	for _, v := range window {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return strings.Repeat("▁", len(window))
	}

	glyphs := []rune("▁▂▃▄▅▆▇█")
	var b strings.Builder
	for _, v := range window {
		idx := int(v / max * float64(len(glyphs)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(glyphs) {
			idx = len(glyphs) - 1
		}
		b.WriteRune(glyphs[idx])
	}
	return b.String()
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%cB", float64(n)/float64(div), "KMGTPE"[exp])
}
