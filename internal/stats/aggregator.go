// Package stats maintains the running dashboard aggregates. The
// Aggregator is updated incrementally per ingested record; it performs no
// locking of its own and relies on the owning dashboard's write lock.
package stats

import (
	"sort"
	"time"

	"github.com/agenttop/agenttop/internal/telemetry"
)

// Aggregator accumulates totals and rolling averages from ingested
// records. Rolling means use the incremental form avg += (x-avg)/n, which
// stays numerically stable without re-summing history.
type Aggregator struct {
	pricing   map[string]ModelPricing
	startedAt time.Time

	totalAPICalls      int
	successfulAPICalls int
	failedAPICalls     int
	avgResponseTimeMS  float64
	totalTokens        int64
	totalCostUSD       float64

	totalToolExecutions  int
	failedToolExecutions int
	avgToolTimeMS        float64
}

// NewAggregator creates an Aggregator. pricing maps model name to per-1M
// token prices; pass nil to disable cost computation. Models absent from
// the table fall back to the DefaultPricingTier entry when present.
func NewAggregator(pricing map[string]ModelPricing) *Aggregator {
	return &Aggregator{
		pricing:   pricing,
		startedAt: time.Now(),
	}
}

// RecordAPICall folds one API call into the running aggregates and
// returns the cost attributed to the call (the record's own cost, or the
// pricing-table cost when the record carries none).
func (a *Aggregator) RecordAPICall(rec telemetry.APICallRecord) float64 {
	a.totalAPICalls++
	if rec.Success {
		a.successfulAPICalls++
	} else {
		a.failedAPICalls++
	}

	a.avgResponseTimeMS += (rec.LatencyMS - a.avgResponseTimeMS) / float64(a.totalAPICalls)

	a.totalTokens += int64(rec.TotalTokens())

	cost := rec.CostUSD
	if cost == 0 {
		cost = a.CostFor(rec.Model, rec.InputTokens, rec.OutputTokens)
	}
	a.totalCostUSD += cost
	return cost
}

// RecordToolExecution folds one tool execution into the running aggregates.
func (a *Aggregator) RecordToolExecution(rec telemetry.ToolRecord) {
	a.totalToolExecutions++
	if !rec.Success {
		a.failedToolExecutions++
	}
	a.avgToolTimeMS += (rec.DurationMS - a.avgToolTimeMS) / float64(a.totalToolExecutions)
}

// CostFor computes the USD cost for a call from the pricing table. Unknown
// models use the default tier; with no table (or no default tier) the cost
// is zero.
func (a *Aggregator) CostFor(model string, inputTokens, outputTokens int) float64 {
	if a.pricing == nil {
		return 0
	}
	p, ok := a.pricing[model]
	if !ok {
		p, ok = a.pricing[DefaultPricingTier]
		if !ok {
			return 0
		}
	}
	return float64(inputTokens)*p.InputPerMTok/1_000_000 +
		float64(outputTokens)*p.OutputPerMTok/1_000_000
}

// ErrorRate returns the current failed/total percentage, or 0 before any
// call has been recorded.
func (a *Aggregator) ErrorRate() float64 {
	if a.totalAPICalls == 0 {
		return 0
	}
	return float64(a.failedAPICalls) / float64(a.totalAPICalls) * 100
}

// Snapshot returns a value copy of the current aggregates.
func (a *Aggregator) Snapshot() DashboardStats {
	return DashboardStats{
		TotalAPICalls:        a.totalAPICalls,
		SuccessfulAPICalls:   a.successfulAPICalls,
		FailedAPICalls:       a.failedAPICalls,
		AvgResponseTimeMS:    a.avgResponseTimeMS,
		TotalTokens:          a.totalTokens,
		TotalCostUSD:         a.totalCostUSD,
		TotalToolExecutions:  a.totalToolExecutions,
		FailedToolExecutions: a.failedToolExecutions,
		AvgToolTimeMS:        a.avgToolTimeMS,
		ErrorRate:            a.ErrorRate(),
		Uptime:               time.Since(a.startedAt),
	}
}

// Percentiles computes nearest-rank P50/P95/P99 over a latency window.
// The window is copied and sorted; the input slice is not modified.
// The second return value is false when the window is empty. For windows
// of one or two samples the three percentiles may coincide.
func Percentiles(window []float64) (LatencyPercentiles, bool) {
	if len(window) == 0 {
		return LatencyPercentiles{}, false
	}
	sorted := make([]float64, len(window))
	copy(sorted, window)
	sort.Float64s(sorted)
	return LatencyPercentiles{
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
		P99: percentile(sorted, 0.99),
	}, true
}

// percentile returns the p-th percentile from a sorted, non-empty slice
// using the nearest-rank method.
func percentile(sorted []float64, p float64) float64 {
	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
