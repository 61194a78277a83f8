package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/agenttop/agenttop/internal/dashboard"
	"github.com/agenttop/agenttop/internal/telemetry"
)

var demoModels = []string{"sonnet-large", "haiku-small", "default"}

var demoTools = []string{"read_file", "write_file", "run_command", "web_search"}

var demoPrompts = []string{
	"Summarize the latest build failures",
	"Refactor the session manager for clarity",
	"What does this stack trace mean?",
	"Add tests for the retry logic",
}

// runDemo feeds synthetic telemetry into the dashboard so the UI can be
// exercised without a live runtime attached.
func runDemo(ctx context.Context, dash *dashboard.Dashboard) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	ticker := time.NewTicker(400 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		switch rng.Intn(4) {
		case 0, 1:
			rec := telemetry.APICallRecord{
				Model:        demoModels[rng.Intn(len(demoModels))],
				InputTokens:  200 + rng.Intn(4000),
				OutputTokens: 50 + rng.Intn(1500),
				LatencyMS:    float64(150 + rng.Intn(3000)),
				Success:      rng.Intn(10) != 0,
			}
			if !rec.Success {
				rec.Error = "rate limited"
			}
			dash.RecordAPICall(rec)

		case 2:
			rec := telemetry.ToolRecord{
				ToolName:   demoTools[rng.Intn(len(demoTools))],
				DurationMS: float64(5 + rng.Intn(800)),
				Success:    rng.Intn(12) != 0,
			}
			if !rec.Success {
				rec.Error = "tool failed"
			}
			dash.RecordToolExecution(rec)

		case 3:
			role := telemetry.RoleUser
			if rng.Intn(2) == 0 {
				role = telemetry.RoleAssistant
			}
			dash.AddConversationEntry(telemetry.ConversationEntry{
				Role:       role,
				Content:    fmt.Sprintf("%s (#%d)", demoPrompts[rng.Intn(len(demoPrompts))], rng.Intn(1000)),
				TokenCount: 10 + rng.Intn(200),
			})
		}
	}
}
