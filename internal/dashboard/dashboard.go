// Package dashboard composes the monitoring engine: ring buffers, the
// stats aggregator, the alert engine, the history store, the background
// collector, and the layout engine, behind one reader-writer lock.
//
// All mutating operations take the write lock for the duration of the
// mutation only, never across I/O or sleeps. All queries take the read
// lock, so concurrent readers never block each other.
package dashboard

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agenttop/agenttop/internal/alerts"
	"github.com/agenttop/agenttop/internal/collector"
	"github.com/agenttop/agenttop/internal/config"
	"github.com/agenttop/agenttop/internal/history"
	"github.com/agenttop/agenttop/internal/layout"
	"github.com/agenttop/agenttop/internal/ringbuf"
	"github.com/agenttop/agenttop/internal/stats"
	"github.com/agenttop/agenttop/internal/telemetry"
)

// Renderer is the opaque drawing surface the dashboard renders into. The
// engine issues only text placement calls with explicit coordinates; no
// color or style logic lives here.
type Renderer interface {
	Clear()
	WriteText(x, y int, text string)
	Flush() error
}

// SizeFunc reports the current terminal dimensions. It is re-queried
// before every render to support live resize.
type SizeFunc func() (width, height int)

// HistorySink is an optional best-effort persistence hook. Absence or
// failure never affects the engine's in-memory correctness.
type HistorySink interface {
	SaveHistory(entries []telemetry.ConversationEntry) error
	LoadHistory() ([]telemetry.ConversationEntry, error)
}

// Dashboard is the top-level owner of the monitoring engine. Create it
// with New and release it with Close.
type Dashboard struct {
	mu sync.RWMutex

	cfg config.Config

	agg     *stats.Aggregator
	apiBuf  *ringbuf.RingBuffer[telemetry.APICallRecord]
	toolBuf *ringbuf.RingBuffer[telemetry.ToolRecord]
	sysBuf  *ringbuf.RingBuffer[telemetry.SystemSample]
	alerts  *alerts.Engine
	history *history.Store
	layout  *layout.Engine

	collector *collector.Collector

	renderer Renderer
	size     SizeFunc
	sink     HistorySink
}

// Option configures optional Dashboard collaborators.
type Option func(*Dashboard)

// WithRenderer sets the drawing surface used by Render.
func WithRenderer(r Renderer) Option {
	return func(d *Dashboard) { d.renderer = r }
}

// WithSizeFunc sets the terminal size source used by Render.
func WithSizeFunc(fn SizeFunc) Option {
	return func(d *Dashboard) { d.size = fn }
}

// WithHistorySink attaches a best-effort persistence sink for the
// conversation log.
func WithHistorySink(s HistorySink) Option {
	return func(d *Dashboard) { d.sink = s }
}

// newOptions carries collaborators that must exist before the engine
// parts are constructed.
type newOptions struct {
	sampler   collector.Sampler
	notifier  alerts.Notifier
	persister alerts.Persister
}

// EngineOption configures engine internals at construction time.
type EngineOption func(*newOptions)

// WithSampler overrides the system sampler (used by tests).
func WithSampler(s collector.Sampler) EngineOption {
	return func(o *newOptions) { o.sampler = s }
}

// WithAlertNotifier attaches a notifier to the alert engine.
func WithAlertNotifier(n alerts.Notifier) EngineOption {
	return func(o *newOptions) { o.notifier = n }
}

// WithAlertPersister attaches a durable sink to the alert engine.
func WithAlertPersister(p alerts.Persister) EngineOption {
	return func(o *newOptions) { o.persister = p }
}

// New creates a Dashboard from the given config. The collector is created
// but not started; call Start to begin background system monitoring.
func New(cfg config.Config, opts []Option, engineOpts ...EngineOption) *Dashboard {
	var eo newOptions
	for _, opt := range engineOpts {
		opt(&eo)
	}
	if eo.sampler == nil {
		eo.sampler = collector.NewSystemSampler()
	}

	pricing := cfg.PricingTable()
	if !cfg.Dashboard.EnableCostTracking {
		pricing = nil
	}

	var alertOpts []alerts.EngineOption
	if eo.notifier != nil {
		alertOpts = append(alertOpts, alerts.WithNotifier(eo.notifier))
	}
	if eo.persister != nil {
		alertOpts = append(alertOpts, alerts.WithPersister(eo.persister))
	}

	d := &Dashboard{
		cfg:     cfg,
		agg:     stats.NewAggregator(pricing),
		apiBuf:  ringbuf.New[telemetry.APICallRecord](cfg.Chart.DataPoints),
		toolBuf: ringbuf.New[telemetry.ToolRecord](cfg.Chart.DataPoints),
		sysBuf:  ringbuf.New[telemetry.SystemSample](cfg.Chart.DataPoints),
		alerts:  alerts.NewEngine(cfg.Alerts.Thresholds(), alertOpts...),
		history: history.NewStore(cfg.History.MaxEntries, cfg.History.EnableSearchIndex),
		layout:  layout.NewEngine(layout.Mode(cfg.Dashboard.LayoutMode)),
	}

	for _, opt := range opts {
		opt(d)
	}

	interval := time.Duration(cfg.Dashboard.UpdateIntervalMS) * time.Millisecond
	d.collector = collector.New(eo.sampler, interval, d.publishSample)

	return d
}

// Start launches background system monitoring when enabled by config.
func (d *Dashboard) Start() {
	if d.cfg.Dashboard.EnableSystemMonitoring {
		d.collector.Start()
	}
}

// Close stops the collector (joining its goroutine) and saves history
// best-effort. The dashboard must not be used after Close.
func (d *Dashboard) Close() {
	d.collector.Stop()
	d.SaveHistory()
}

// publishSample is the collector's per-tick callback: it stores the
// sample and evaluates system alerts under the write lock. Sampling
// itself happens outside the lock on the collector goroutine.
func (d *Dashboard) publishSample(sample telemetry.SystemSample) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sysBuf.Push(sample)
	d.alerts.EvaluateSystem(sample)
}

// RecordAPICall ingests one API call: aggregates, buffers, and evaluates
// alert rules, all under the write lock.
func (d *Dashboard) RecordAPICall(rec telemetry.APICallRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	cost := d.agg.RecordAPICall(rec)
	rec.CostUSD = cost
	d.apiBuf.Push(rec)
	d.alerts.EvaluateAPICall(rec, cost, d.agg.ErrorRate())
}

// RecordToolExecution ingests one tool execution.
func (d *Dashboard) RecordToolExecution(rec telemetry.ToolRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.agg.RecordToolExecution(rec)
	d.toolBuf.Push(rec)
}

// AddConversationEntry appends an entry to the history store, assigning
// an id and timestamp when missing.
func (d *Dashboard) AddConversationEntry(entry telemetry.ConversationEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.history.Add(entry)
}

// Stats returns a snapshot of the running aggregates.
func (d *Dashboard) Stats() stats.DashboardStats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.agg.Snapshot()
}

// SearchHistory runs a query against the conversation log.
func (d *Dashboard) SearchHistory(q history.Query) []telemetry.ConversationEntry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.history.Search(q)
}

// Alerts returns the retained alerts, oldest first.
func (d *Dashboard) Alerts() []alerts.Alert {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.alerts.Active()
}

// RecentAPICalls returns the most recent n API call records.
func (d *Dashboard) RecentAPICalls(n int) []telemetry.APICallRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.apiBuf.Recent(n)
}

// RecentSystemSamples returns the most recent n system samples.
func (d *Dashboard) RecentSystemSamples(n int) []telemetry.SystemSample {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sysBuf.Recent(n)
}

// LatencyPercentiles computes nearest-rank percentiles over the buffered
// latency window. ok is false when no calls have been recorded.
func (d *Dashboard) LatencyPercentiles() (stats.LatencyPercentiles, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.latencyPercentilesLocked()
}

func (d *Dashboard) latencyPercentilesLocked() (stats.LatencyPercentiles, bool) {
	recent := d.apiBuf.Recent(d.apiBuf.Cap())
	if len(recent) == 0 {
		return stats.LatencyPercentiles{}, false
	}
	window := make([]float64, len(recent))
	for i, rec := range recent {
		window[i] = rec.LatencyMS
	}
	return stats.Percentiles(window)
}

// SetLayoutMode changes the layout mode at runtime.
func (d *Dashboard) SetLayoutMode(m layout.Mode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.layout.SetMode(m)
}

// LayoutMode returns the configured layout mode.
func (d *Dashboard) LayoutMode() layout.Mode {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.layout.Mode()
}

// SetFocusedPanel chooses the panel shown by the focused layout.
func (d *Dashboard) SetFocusedPanel(p layout.PanelType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.layout.SetFocused(p)
}

// FocusedPanel returns the panel the focused layout shows.
func (d *Dashboard) FocusedPanel() layout.PanelType {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.layout.Focused()
}

// SaveHistory writes the conversation log to the configured sink.
// Failures are logged as warnings; the in-memory state stays valid.
func (d *Dashboard) SaveHistory() {
	if d.sink == nil {
		return
	}
	d.mu.RLock()
	entries := d.history.All()
	d.mu.RUnlock()

	if err := d.sink.SaveHistory(entries); err != nil {
		log.Printf("WARNING: saving history failed: %v", err)
	}
}

// LoadHistory replays previously saved entries into the history store.
// Failures are logged as warnings and leave the store untouched.
func (d *Dashboard) LoadHistory() {
	if d.sink == nil {
		return
	}
	entries, err := d.sink.LoadHistory()
	if err != nil {
		log.Printf("WARNING: loading history failed: %v", err)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range entries {
		d.history.Add(e)
	}
}
