package alerts

import (
	"testing"
	"time"

	"github.com/agenttop/agenttop/internal/telemetry"
)

func testThresholds() Thresholds {
	return Thresholds{
		MaxResponseTimeMS:   5000,
		MaxTokensPerRequest: 100_000,
		MaxCostPerRequest:   1.0,
		ErrorRateThreshold:  10,
		CPUThresholdPercent: 90,
		MemoryThresholdMB:   4096,
	}
}

func TestLatencyRule(t *testing.T) {
	e := NewEngine(Thresholds{MaxResponseTimeMS: 500})

	e.EvaluateAPICall(telemetry.APICallRecord{LatencyMS: 600, Success: true}, 0, 0)
	active := e.Active()
	if len(active) != 1 {
		t.Fatalf("expected 1 alert for 600ms over 500ms, got %d", len(active))
	}
	if active[0].Type != TypeHighLatency {
		t.Errorf("alert type = %s, want %s", active[0].Type, TypeHighLatency)
	}
	if active[0].Severity != SeverityWarning {
		t.Errorf("severity = %s, want %s", active[0].Severity, SeverityWarning)
	}

	// At the threshold exactly: no alert (strictly-greater comparison).
	e = NewEngine(Thresholds{MaxResponseTimeMS: 500})
	e.EvaluateAPICall(telemetry.APICallRecord{LatencyMS: 500, Success: true}, 0, 0)
	if len(e.Active()) != 0 {
		t.Errorf("expected no alert at exactly 500ms, got %d", len(e.Active()))
	}
}

func TestTokenRule(t *testing.T) {
	e := NewEngine(testThresholds())
	e.EvaluateAPICall(telemetry.APICallRecord{InputTokens: 90_000, OutputTokens: 20_000, Success: true}, 0, 0)
	active := e.Active()
	if len(active) != 1 || active[0].Type != TypeTokenLimit {
		t.Fatalf("expected one token-limit alert, got %v", active)
	}
}

func TestCostRule(t *testing.T) {
	e := NewEngine(testThresholds())
	e.EvaluateAPICall(telemetry.APICallRecord{Success: true}, 1.5, 0)
	active := e.Active()
	if len(active) != 1 || active[0].Type != TypeHighCost {
		t.Fatalf("expected one high-cost alert, got %v", active)
	}
}

func TestErrorRateRule(t *testing.T) {
	e := NewEngine(testThresholds())
	e.EvaluateAPICall(telemetry.APICallRecord{Success: false}, 0, 25)
	active := e.Active()
	if len(active) != 1 {
		t.Fatalf("expected one alert, got %d", len(active))
	}
	if active[0].Type != TypeHighErrorRate {
		t.Errorf("alert type = %s, want %s", active[0].Type, TypeHighErrorRate)
	}
	if active[0].Severity != SeverityError {
		t.Errorf("error-rate severity = %s, want %s", active[0].Severity, SeverityError)
	}
}

func TestSystemRules(t *testing.T) {
	e := NewEngine(testThresholds())
	e.EvaluateSystem(telemetry.SystemSample{CPUPercent: 95, MemoryUsedMB: 5000})
	active := e.Active()
	if len(active) != 2 {
		t.Fatalf("expected CPU and memory alerts, got %d", len(active))
	}
	if active[0].Type != TypeHighCPU || active[1].Type != TypeHighMemory {
		t.Errorf("alert types = %s, %s", active[0].Type, active[1].Type)
	}
}

func TestZeroThresholdDisablesRule(t *testing.T) {
	e := NewEngine(Thresholds{})
	e.EvaluateAPICall(telemetry.APICallRecord{LatencyMS: 99999, InputTokens: 1 << 30, Success: false}, 9999, 100)
	e.EvaluateSystem(telemetry.SystemSample{CPUPercent: 100, MemoryUsedMB: 1 << 20})
	if got := len(e.Active()); got != 0 {
		t.Errorf("zero thresholds fired %d alerts, want 0", got)
	}
}

func TestSingleEventMultipleAlerts(t *testing.T) {
	e := NewEngine(testThresholds())
	// One call violating latency, tokens, and cost at once.
	e.EvaluateAPICall(telemetry.APICallRecord{
		LatencyMS:   6000,
		InputTokens: 200_000,
		Success:     true,
	}, 2.0, 0)
	if got := len(e.Active()); got != 3 {
		t.Fatalf("expected 3 independent alerts from one call, got %d", got)
	}
}

func TestRetentionCapFIFO(t *testing.T) {
	e := NewEngine(Thresholds{MaxResponseTimeMS: 100})
	for i := 0; i < 15; i++ {
		e.EvaluateAPICall(telemetry.APICallRecord{
			LatencyMS: float64(200 + i),
			Timestamp: time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC),
			Success:   true,
		}, 0, 0)
	}

	active := e.Active()
	if len(active) != MaxRetained {
		t.Fatalf("retained %d alerts, want %d", len(active), MaxRetained)
	}
	// The 5 oldest were evicted; the survivors are alerts 6..15 in order.
	if got := active[0].Timestamp.Second(); got != 5 {
		t.Errorf("oldest retained alert fired at second %d, want 5", got)
	}
	if got := active[len(active)-1].Timestamp.Second(); got != 14 {
		t.Errorf("newest retained alert fired at second %d, want 14", got)
	}
}

func TestActiveReturnsCopy(t *testing.T) {
	e := NewEngine(Thresholds{MaxResponseTimeMS: 100})
	e.EvaluateAPICall(telemetry.APICallRecord{LatencyMS: 200, Success: true}, 0, 0)
	got := e.Active()
	got[0].Message = "mutated"
	if e.Active()[0].Message == "mutated" {
		t.Error("mutating Active result leaked into engine state")
	}
}

type recordingNotifier struct {
	fired []Alert
}

func (n *recordingNotifier) Notify(a Alert) { n.fired = append(n.fired, a) }

type recordingPersister struct {
	persisted []Alert
}

func (p *recordingPersister) PersistAlert(a Alert) { p.persisted = append(p.persisted, a) }

func TestNotifierAndPersisterInvoked(t *testing.T) {
	n := &recordingNotifier{}
	p := &recordingPersister{}
	e := NewEngine(Thresholds{MaxResponseTimeMS: 100}, WithNotifier(n), WithPersister(p))

	e.EvaluateAPICall(telemetry.APICallRecord{LatencyMS: 200, Success: true}, 0, 0)

	if len(n.fired) != 1 {
		t.Errorf("notifier invoked %d times, want 1", len(n.fired))
	}
	if len(p.persisted) != 1 {
		t.Errorf("persister invoked %d times, want 1", len(p.persisted))
	}
}
