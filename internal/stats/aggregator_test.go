package stats

import (
	"math"
	"testing"

	"github.com/agenttop/agenttop/internal/telemetry"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRollingAverage(t *testing.T) {
	agg := NewAggregator(nil)
	for _, ms := range []float64{100, 200, 300} {
		agg.RecordAPICall(telemetry.APICallRecord{LatencyMS: ms, Success: true})
	}
	s := agg.Snapshot()
	if !almostEqual(s.AvgResponseTimeMS, 200) {
		t.Errorf("avg after 100,200,300 = %f, want 200", s.AvgResponseTimeMS)
	}
	if s.TotalAPICalls != 3 {
		t.Errorf("total calls = %d, want 3", s.TotalAPICalls)
	}
}

func TestErrorRate(t *testing.T) {
	agg := NewAggregator(nil)
	if agg.ErrorRate() != 0 {
		t.Errorf("error rate before any call = %f, want 0", agg.ErrorRate())
	}

	for i := 0; i < 8; i++ {
		agg.RecordAPICall(telemetry.APICallRecord{Success: true})
	}
	for i := 0; i < 2; i++ {
		agg.RecordAPICall(telemetry.APICallRecord{Success: false})
	}
	if !almostEqual(agg.ErrorRate(), 20) {
		t.Errorf("error rate = %f, want 20", agg.ErrorRate())
	}

	s := agg.Snapshot()
	if s.SuccessfulAPICalls != 8 || s.FailedAPICalls != 2 {
		t.Errorf("success/failed = %d/%d, want 8/2", s.SuccessfulAPICalls, s.FailedAPICalls)
	}
	if s.SuccessfulAPICalls+s.FailedAPICalls != s.TotalAPICalls {
		t.Error("success + failed must equal total")
	}
}

func TestTokenTotals(t *testing.T) {
	agg := NewAggregator(nil)
	agg.RecordAPICall(telemetry.APICallRecord{InputTokens: 100, OutputTokens: 50, Success: true})
	agg.RecordAPICall(telemetry.APICallRecord{InputTokens: 200, OutputTokens: 25, Success: true})
	if got := agg.Snapshot().TotalTokens; got != 375 {
		t.Errorf("total tokens = %d, want 375", got)
	}
}

func TestCostFor(t *testing.T) {
	pricing := map[string]ModelPricing{
		"sonnet-large":     {InputPerMTok: 3.0, OutputPerMTok: 15.0},
		DefaultPricingTier: {InputPerMTok: 1.0, OutputPerMTok: 5.0},
	}
	agg := NewAggregator(pricing)

	tests := []struct {
		name    string
		model   string
		in, out int
		want    float64
	}{
		{"known model", "sonnet-large", 1_000_000, 1_000_000, 18.0},
		{"known model partial", "sonnet-large", 500_000, 0, 1.5},
		{"unknown model falls back to default tier", "mystery", 1_000_000, 0, 1.0},
		{"zero tokens", "sonnet-large", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := agg.CostFor(tt.model, tt.in, tt.out)
			if !almostEqual(got, tt.want) {
				t.Errorf("CostFor(%q, %d, %d) = %f, want %f", tt.model, tt.in, tt.out, got, tt.want)
			}
		})
	}
}

func TestCostForWithoutPricing(t *testing.T) {
	agg := NewAggregator(nil)
	if got := agg.CostFor("sonnet-large", 1_000_000, 1_000_000); got != 0 {
		t.Errorf("cost with nil pricing = %f, want 0", got)
	}
}

func TestCostForNoDefaultTier(t *testing.T) {
	agg := NewAggregator(map[string]ModelPricing{
		"sonnet-large": {InputPerMTok: 3.0, OutputPerMTok: 15.0},
	})
	if got := agg.CostFor("unknown", 1_000_000, 0); got != 0 {
		t.Errorf("cost for unknown model without default tier = %f, want 0", got)
	}
}

func TestRecordAPICallPrefersRecordCost(t *testing.T) {
	agg := NewAggregator(map[string]ModelPricing{
		DefaultPricingTier: {InputPerMTok: 3.0, OutputPerMTok: 15.0},
	})

	// A record carrying its own cost keeps it.
	got := agg.RecordAPICall(telemetry.APICallRecord{CostUSD: 0.5, InputTokens: 1000, Success: true})
	if !almostEqual(got, 0.5) {
		t.Errorf("attributed cost = %f, want 0.5", got)
	}

	// A record without a cost is priced from the table.
	got = agg.RecordAPICall(telemetry.APICallRecord{InputTokens: 1_000_000, Success: true})
	if !almostEqual(got, 3.0) {
		t.Errorf("attributed cost = %f, want 3.0", got)
	}

	if total := agg.Snapshot().TotalCostUSD; !almostEqual(total, 3.5) {
		t.Errorf("total cost = %f, want 3.5", total)
	}
}

func TestToolAggregates(t *testing.T) {
	agg := NewAggregator(nil)
	agg.RecordToolExecution(telemetry.ToolRecord{DurationMS: 10, Success: true})
	agg.RecordToolExecution(telemetry.ToolRecord{DurationMS: 30, Success: false})
	s := agg.Snapshot()
	if s.TotalToolExecutions != 2 || s.FailedToolExecutions != 1 {
		t.Errorf("tool totals = %d/%d, want 2/1", s.TotalToolExecutions, s.FailedToolExecutions)
	}
	if !almostEqual(s.AvgToolTimeMS, 20) {
		t.Errorf("avg tool time = %f, want 20", s.AvgToolTimeMS)
	}
}

func TestPercentiles(t *testing.T) {
	window := make([]float64, 100)
	for i := range window {
		window[i] = float64(i + 1) // 1..100
	}
	p, ok := Percentiles(window)
	if !ok {
		t.Fatal("expected ok for non-empty window")
	}
	if p.P50 != 51 {
		t.Errorf("p50 = %f, want 51", p.P50)
	}
	if p.P95 != 96 {
		t.Errorf("p95 = %f, want 96", p.P95)
	}
	if p.P99 != 100 {
		t.Errorf("p99 = %f, want 100", p.P99)
	}
}

func TestPercentilesSingleSample(t *testing.T) {
	p, ok := Percentiles([]float64{42})
	if !ok {
		t.Fatal("expected ok for single-sample window")
	}
	// With one sample all three percentiles coincide.
	if p.P50 != 42 || p.P95 != 42 || p.P99 != 42 {
		t.Errorf("single-sample percentiles = %+v, want all 42", p)
	}
}

func TestPercentilesEmptyWindow(t *testing.T) {
	if _, ok := Percentiles(nil); ok {
		t.Error("expected ok=false for empty window")
	}
}

func TestPercentilesDoesNotMutateInput(t *testing.T) {
	window := []float64{3, 1, 2}
	Percentiles(window)
	if window[0] != 3 || window[1] != 1 || window[2] != 2 {
		t.Errorf("input window was mutated: %v", window)
	}
}
