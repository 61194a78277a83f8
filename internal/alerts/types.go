package alerts

import "time"

// Type identifies the threshold rule that raised an alert.
type Type string

const (
	TypeHighLatency   Type = "high-latency"
	TypeHighCost      Type = "high-cost"
	TypeHighErrorRate Type = "high-error-rate"
	TypeHighCPU       Type = "high-cpu"
	TypeHighMemory    Type = "high-memory"
	TypeTokenLimit    Type = "token-limit"
	TypeSystemError   Type = "system-error"
)

// Alert severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Alert is one severity-tagged notification produced when a metric
// crossed a configured threshold. Alerts are informational only; they
// never block or retry the triggering operation.
type Alert struct {
	Type      Type
	Severity  string
	Message   string
	Timestamp time.Time
}

// Thresholds holds the six numeric alert thresholds. A threshold of zero
// disables its rule.
type Thresholds struct {
	MaxResponseTimeMS   float64
	MaxTokensPerRequest int
	MaxCostPerRequest   float64
	ErrorRateThreshold  float64
	CPUThresholdPercent float64
	MemoryThresholdMB   float64
}

// Persister persists fired alerts to durable storage. Implementations
// must be non-blocking.
type Persister interface {
	PersistAlert(alert Alert)
}

// Notifier sends alert notifications via platform-specific mechanisms.
// Implementations must be non-blocking.
type Notifier interface {
	Notify(alert Alert)
}
