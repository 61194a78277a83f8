package ingest

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"

	"github.com/agenttop/agenttop/internal/config"
	"github.com/agenttop/agenttop/internal/telemetry"
)

type fakeSink struct {
	mu      sync.Mutex
	calls   []telemetry.APICallRecord
	tools   []telemetry.ToolRecord
	entries []telemetry.ConversationEntry
}

func (f *fakeSink) RecordAPICall(rec telemetry.APICallRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rec)
}

func (f *fakeSink) RecordToolExecution(rec telemetry.ToolRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tools = append(f.tools, rec)
}

func (f *fakeSink) AddConversationEntry(entry telemetry.ConversationEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

func strAttr(key, val string) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: val}},
	}
}

func intAttr(key string, val int64) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: val}},
	}
}

func doubleAttr(key string, val float64) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_DoubleValue{DoubleValue: val}},
	}
}

func boolAttr(key string, val bool) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_BoolValue{BoolValue: val}},
	}
}

func requestWith(records ...*logspb.LogRecord) *collogspb.ExportLogsServiceRequest {
	return &collogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{{
			ScopeLogs: []*logspb.ScopeLogs{{LogRecords: records}},
		}},
	}
}

func TestExportAPIRequest(t *testing.T) {
	sink := &fakeSink{}
	r := NewReceiver(config.ReceiverConfig{}, sink)

	ts := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	_, err := r.Export(context.Background(), requestWith(&logspb.LogRecord{
		TimeUnixNano: uint64(ts.UnixNano()),
		Attributes: []*commonpb.KeyValue{
			strAttr("event.name", "agent.api_request"),
			strAttr("model", "sonnet-large"),
			intAttr("input_tokens", 1200),
			intAttr("output_tokens", 300),
			doubleAttr("duration_ms", 845.5),
			boolAttr("success", true),
		},
	}))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if len(sink.calls) != 1 {
		t.Fatalf("sink received %d API calls, want 1", len(sink.calls))
	}
	rec := sink.calls[0]
	if rec.Model != "sonnet-large" || rec.InputTokens != 1200 || rec.OutputTokens != 300 {
		t.Errorf("decoded record = %+v", rec)
	}
	if rec.LatencyMS != 845.5 || !rec.Success {
		t.Errorf("decoded record = %+v", rec)
	}
	if !rec.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp, ts)
	}
}

func TestExportToolResult(t *testing.T) {
	sink := &fakeSink{}
	r := NewReceiver(config.ReceiverConfig{}, sink)

	_, err := r.Export(context.Background(), requestWith(&logspb.LogRecord{
		Attributes: []*commonpb.KeyValue{
			strAttr("event.name", "agent.tool_result"),
			strAttr("tool_name", "run_command"),
			doubleAttr("duration_ms", 52),
			boolAttr("success", false),
			strAttr("error", "exit status 1"),
		},
	}))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if len(sink.tools) != 1 {
		t.Fatalf("sink received %d tool records, want 1", len(sink.tools))
	}
	rec := sink.tools[0]
	if rec.ToolName != "run_command" || rec.Success || rec.Error != "exit status 1" {
		t.Errorf("decoded record = %+v", rec)
	}
	// Missing timestamp gets filled in at receipt.
	if rec.Timestamp.IsZero() {
		t.Error("timestamp should default to now")
	}
}

func TestExportUserPrompt(t *testing.T) {
	sink := &fakeSink{}
	r := NewReceiver(config.ReceiverConfig{}, sink)

	_, err := r.Export(context.Background(), requestWith(&logspb.LogRecord{
		Body: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: "fix the failing test"}},
		Attributes: []*commonpb.KeyValue{
			strAttr("event.name", "agent.user_prompt"),
			intAttr("token_count", 9),
		},
	}))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	if len(sink.entries) != 1 {
		t.Fatalf("sink received %d entries, want 1", len(sink.entries))
	}
	e := sink.entries[0]
	if e.Content != "fix the failing test" || e.TokenCount != 9 {
		t.Errorf("decoded entry = %+v", e)
	}
	if e.Role != telemetry.RoleUser {
		t.Errorf("role = %s, want user default", e.Role)
	}
}

func TestExportIgnoresUnknownEvents(t *testing.T) {
	sink := &fakeSink{}
	r := NewReceiver(config.ReceiverConfig{}, sink)

	_, err := r.Export(context.Background(), requestWith(
		&logspb.LogRecord{Attributes: []*commonpb.KeyValue{strAttr("event.name", "agent.unknown")}},
		&logspb.LogRecord{}, // no attributes at all
	))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(sink.calls)+len(sink.tools)+len(sink.entries) != 0 {
		t.Error("unknown records should be skipped")
	}
}

func TestStartPortInUse(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserving port: %v", err)
	}
	defer lis.Close()
	port := lis.Addr().(*net.TCPAddr).Port

	r := NewReceiver(config.ReceiverConfig{GRPCPort: port, Bind: "127.0.0.1"}, &fakeSink{})
	if err := r.Start(context.Background()); err == nil {
		r.Stop()
		t.Fatal("expected error starting on an occupied port")
	}
}

func TestStartAndStop(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	port := lis.Addr().(*net.TCPAddr).Port
	lis.Close()

	r := NewReceiver(config.ReceiverConfig{GRPCPort: port, Bind: "127.0.0.1"}, &fakeSink{})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	r.Stop()
}
