// Package telemetry defines the immutable record types ingested by the
// dashboard: API calls, tool executions, system resource samples, and
// conversation entries. Records are created once at ingestion time and
// never mutated afterwards.
package telemetry

import "time"

// APICallRecord describes a single model API call made by the agent runtime.
type APICallRecord struct {
	Timestamp    time.Time
	Model        string
	InputTokens  int
	OutputTokens int
	LatencyMS    float64
	// CostUSD is the computed cost of the call. When the runtime does not
	// supply it, the stats aggregator fills it in from the pricing table.
	CostUSD float64
	Success bool
	Error   string
}

// TotalTokens returns input plus output tokens.
func (r APICallRecord) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// ToolRecord describes a single tool execution performed by the runtime.
type ToolRecord struct {
	Timestamp   time.Time
	ToolName    string
	DurationMS  float64
	Success     bool
	InputBytes  int
	OutputBytes int
	Error       string
}

// SystemSample is one reading of system resource metrics, taken by the
// collector at collection time.
type SystemSample struct {
	Timestamp      time.Time
	CPUPercent     float64
	MemoryUsedMB   float64
	MemoryTotalMB  float64
	NetRxBytes     uint64
	NetTxBytes     uint64
	DiskReadBytes  uint64
	DiskWriteBytes uint64
	ThreadCount    int
}

// Role identifies the author of a conversation entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ConversationEntry is one turn of the agent conversation. Entries are
// owned by the history store and evicted FIFO once the store exceeds its
// configured capacity.
type ConversationEntry struct {
	ID         string
	Timestamp  time.Time
	Role       Role
	Content    string
	TokenCount int
	// APICall links the entry to the API call that produced it, when known.
	APICall  *APICallRecord
	Tags     []string
	Metadata map[string]string
}

// HasTag reports whether the entry carries the given tag.
func (e ConversationEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
