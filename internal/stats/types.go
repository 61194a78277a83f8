package stats

import "time"

// DashboardStats is the running aggregate exposed to every query path.
// It is mutated only by the Aggregator while the dashboard holds its
// write lock and read as a value snapshot everywhere else.
type DashboardStats struct {
	TotalAPICalls      int
	SuccessfulAPICalls int
	FailedAPICalls     int
	// AvgResponseTimeMS is the rolling average API latency, updated
	// incrementally per call.
	AvgResponseTimeMS float64
	TotalTokens       int64
	TotalCostUSD      float64

	TotalToolExecutions  int
	FailedToolExecutions int
	AvgToolTimeMS        float64

	// ErrorRate is the failed/total API call ratio as a percentage (0-100).
	ErrorRate float64

	Uptime time.Duration
}

// LatencyPercentiles holds nearest-rank percentiles over a latency window,
// in milliseconds.
type LatencyPercentiles struct {
	P50 float64
	P95 float64
	P99 float64
}

// ModelPricing is the USD price per 1M input and output tokens for a model.
type ModelPricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// DefaultPricingTier is the pricing table key used for models without an
// explicit entry.
const DefaultPricingTier = "default"
