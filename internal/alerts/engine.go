// Package alerts evaluates ingested telemetry against configured
// thresholds and keeps a bounded list of recent alerts. Evaluation runs
// synchronously inside the dashboard's write lock; the engine performs no
// locking of its own.
package alerts

import (
	"fmt"
	"time"

	"github.com/agenttop/agenttop/internal/telemetry"
)

// MaxRetained is the fixed retention count of the alert list. Once
// exceeded, the oldest alert is dropped.
const MaxRetained = 10

// Engine evaluates records and system samples against thresholds and
// appends to a FIFO-bounded alert list.
type Engine struct {
	thresholds Thresholds
	active     []Alert
	notifier   Notifier
	persister  Persister
}

// EngineOption configures optional Engine collaborators.
type EngineOption func(*Engine)

// WithNotifier attaches a platform notifier invoked for every fired alert.
func WithNotifier(n Notifier) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

// WithPersister attaches a sink that records fired alerts durably.
func WithPersister(p Persister) EngineOption {
	return func(e *Engine) { e.persister = p }
}

// NewEngine creates an alert engine with the given thresholds.
func NewEngine(t Thresholds, opts ...EngineOption) *Engine {
	e := &Engine{thresholds: t}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateAPICall checks an API call record against the latency, token,
// cost, and error-rate rules. Each rule fires independently, so a single
// call may raise several alerts. costUSD is the cost attributed to the
// call and errorRate the running percentage after the call was recorded.
func (e *Engine) EvaluateAPICall(rec telemetry.APICallRecord, costUSD, errorRate float64) {
	now := rec.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	if e.thresholds.MaxResponseTimeMS > 0 && rec.LatencyMS > e.thresholds.MaxResponseTimeMS {
		e.fire(Alert{
			Type:      TypeHighLatency,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("API latency %.0fms exceeds %.0fms", rec.LatencyMS, e.thresholds.MaxResponseTimeMS),
			Timestamp: now,
		})
	}
	if e.thresholds.MaxTokensPerRequest > 0 && rec.TotalTokens() > e.thresholds.MaxTokensPerRequest {
		e.fire(Alert{
			Type:      TypeTokenLimit,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("request used %d tokens, limit %d", rec.TotalTokens(), e.thresholds.MaxTokensPerRequest),
			Timestamp: now,
		})
	}
	if e.thresholds.MaxCostPerRequest > 0 && costUSD > e.thresholds.MaxCostPerRequest {
		e.fire(Alert{
			Type:      TypeHighCost,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("request cost $%.4f exceeds $%.4f", costUSD, e.thresholds.MaxCostPerRequest),
			Timestamp: now,
		})
	}
	if e.thresholds.ErrorRateThreshold > 0 && errorRate > e.thresholds.ErrorRateThreshold {
		e.fire(Alert{
			Type:      TypeHighErrorRate,
			Severity:  SeverityError,
			Message:   fmt.Sprintf("error rate %.1f%% exceeds %.1f%%", errorRate, e.thresholds.ErrorRateThreshold),
			Timestamp: now,
		})
	}
}

// EvaluateSystem checks a system sample against the CPU and memory rules.
func (e *Engine) EvaluateSystem(sample telemetry.SystemSample) {
	now := sample.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	if e.thresholds.CPUThresholdPercent > 0 && sample.CPUPercent > e.thresholds.CPUThresholdPercent {
		e.fire(Alert{
			Type:      TypeHighCPU,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("CPU usage %.1f%% exceeds %.1f%%", sample.CPUPercent, e.thresholds.CPUThresholdPercent),
			Timestamp: now,
		})
	}
	if e.thresholds.MemoryThresholdMB > 0 && sample.MemoryUsedMB > e.thresholds.MemoryThresholdMB {
		e.fire(Alert{
			Type:      TypeHighMemory,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("memory usage %.0fMB exceeds %.0fMB", sample.MemoryUsedMB, e.thresholds.MemoryThresholdMB),
			Timestamp: now,
		})
	}
}

// fire appends the alert, evicting the oldest entry once MaxRetained is
// exceeded, then hands it to the optional notifier and persister.
func (e *Engine) fire(a Alert) {
	e.active = append(e.active, a)
	if len(e.active) > MaxRetained {
		e.active = e.active[len(e.active)-MaxRetained:]
	}
	if e.notifier != nil {
		e.notifier.Notify(a)
	}
	if e.persister != nil {
		e.persister.PersistAlert(a)
	}
}

// Active returns a copy of the retained alerts, oldest first.
func (e *Engine) Active() []Alert {
	out := make([]Alert, len(e.active))
	copy(out, e.active)
	return out
}
