// Package ingest receives runtime telemetry over OTLP/gRPC and maps it
// onto the dashboard's ingestion API. The runtime exports log records
// named agent.api_request, agent.tool_result, and agent.user_prompt;
// everything else is ignored.
package ingest

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	"google.golang.org/grpc"

	"github.com/agenttop/agenttop/internal/config"
	"github.com/agenttop/agenttop/internal/telemetry"
)

// Event names recognized on incoming log records.
const (
	eventAPIRequest = "agent.api_request"
	eventToolResult = "agent.tool_result"
	eventUserPrompt = "agent.user_prompt"
)

// Ingestor is the dashboard-facing sink for decoded telemetry.
type Ingestor interface {
	RecordAPICall(rec telemetry.APICallRecord)
	RecordToolExecution(rec telemetry.ToolRecord)
	AddConversationEntry(entry telemetry.ConversationEntry)
}

// Receiver is the OTLP/gRPC logs receiver.
type Receiver struct {
	collogspb.UnimplementedLogsServiceServer

	cfg      config.ReceiverConfig
	sink     Ingestor
	server   *grpc.Server
	listener net.Listener
}

// NewReceiver creates a Receiver that feeds decoded records into sink.
func NewReceiver(cfg config.ReceiverConfig, sink Ingestor) *Receiver {
	return &Receiver{cfg: cfg, sink: sink}
}

// Start binds the configured port and serves in the background. A port
// that is already bound is reported as such so the caller can point the
// user at the conflicting process.
func (r *Receiver) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", r.cfg.Bind, r.cfg.GRPCPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d already in use", r.cfg.GRPCPort)
	}
	r.listener = lis

	r.server = grpc.NewServer()
	collogspb.RegisterLogsServiceServer(r.server, r)

	go func() {
		if err := r.server.Serve(lis); err != nil {
			log.Printf("WARNING: gRPC receiver stopped: %v", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the gRPC server.
func (r *Receiver) Stop() {
	if r.server != nil {
		r.server.GracefulStop()
	}
}

// Export implements the OTLP logs service. Unrecognized or malformed
// records are skipped; the export as a whole always succeeds so the
// runtime never retries on our account.
func (r *Receiver) Export(ctx context.Context, req *collogspb.ExportLogsServiceRequest) (*collogspb.ExportLogsServiceResponse, error) {
	for _, rl := range req.GetResourceLogs() {
		for _, sl := range rl.GetScopeLogs() {
			for _, lr := range sl.GetLogRecords() {
				r.handleRecord(lr)
			}
		}
	}
	return &collogspb.ExportLogsServiceResponse{}, nil
}

func (r *Receiver) handleRecord(lr *logspb.LogRecord) {
	attrs := flattenAttributes(lr.GetAttributes())
	ts := time.Unix(0, int64(lr.GetTimeUnixNano()))
	if lr.GetTimeUnixNano() == 0 {
		ts = time.Now()
	}

	switch attrs.str("event.name") {
	case eventAPIRequest:
		r.sink.RecordAPICall(telemetry.APICallRecord{
			Timestamp:    ts,
			Model:        attrs.str("model"),
			InputTokens:  attrs.integer("input_tokens"),
			OutputTokens: attrs.integer("output_tokens"),
			LatencyMS:    attrs.double("duration_ms"),
			CostUSD:      attrs.double("cost_usd"),
			Success:      attrs.boolean("success"),
			Error:        attrs.str("error"),
		})
	case eventToolResult:
		r.sink.RecordToolExecution(telemetry.ToolRecord{
			Timestamp:   ts,
			ToolName:    attrs.str("tool_name"),
			DurationMS:  attrs.double("duration_ms"),
			Success:     attrs.boolean("success"),
			InputBytes:  attrs.integer("input_bytes"),
			OutputBytes: attrs.integer("output_bytes"),
			Error:       attrs.str("error"),
		})
	case eventUserPrompt:
		role := telemetry.Role(attrs.str("role"))
		if role == "" {
			role = telemetry.RoleUser
		}
		r.sink.AddConversationEntry(telemetry.ConversationEntry{
			Timestamp:  ts,
			Role:       role,
			Content:    bodyString(lr.GetBody()),
			TokenCount: attrs.integer("token_count"),
		})
	}
}

// attrMap gives typed access to flattened OTLP attributes.
type attrMap map[string]*commonpb.AnyValue

func flattenAttributes(kvs []*commonpb.KeyValue) attrMap {
	m := make(attrMap, len(kvs))
	for _, kv := range kvs {
		if kv.GetKey() != "" {
			m[kv.GetKey()] = kv.GetValue()
		}
	}
	return m
}

func (m attrMap) str(key string) string {
	return m[key].GetStringValue()
}

func (m attrMap) double(key string) float64 {
	v := m[key]
	if d := v.GetDoubleValue(); d != 0 {
		return d
	}
	return float64(v.GetIntValue())
}

func (m attrMap) integer(key string) int {
	v := m[key]
	if i := v.GetIntValue(); i != 0 {
		return int(i)
	}
	return int(v.GetDoubleValue())
}

func (m attrMap) boolean(key string) bool {
	return m[key].GetBoolValue()
}

func bodyString(v *commonpb.AnyValue) string {
	return v.GetStringValue()
}
