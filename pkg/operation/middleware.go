package operation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-training/integration-relay/pkg/core"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

/*
addToolAttributes sets attributes on the current trace span. Without a recording
span the attributes are logged instead, together with trace/span ids when present.
*/
func addToolAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attrs...)
		return
	}

	logAttrs := make([]slog.Attr, 0, len(attrs)+2)
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(string(attr.Key), attr.Value.AsInterface()))
	}
	sc := span.SpanContext()
	if sc.HasTraceID() {
		logAttrs = append(logAttrs, slog.String("trace_id", sc.TraceID().String()))
	}
	if sc.HasSpanID() {
		logAttrs = append(logAttrs, slog.String("span_id", sc.SpanID().String()))
	}
	core.LoggerFromCtx(ctx).LogAttrs(ctx, slog.LevelInfo, "mcp tool call", logAttrs...)
}

// ToolObservabilityMiddleware records the tool name, outcome and duration of every call.
// Arguments are not recorded since they may carry credentials.
func ToolObservabilityMiddleware() server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := time.Now()
			res, err := next(ctx, req)

			attrs := []attribute.KeyValue{
				attribute.String("mcp.tool", req.Params.Name),
				attribute.String("mcp.status", "ok"),
				attribute.Float64("mcp.duration_ms", float64(time.Since(start).Microseconds())/1000.0),
			}
			if errMsg := toolError(res, err); errMsg != "" {
				attrs[1] = attribute.String("mcp.status", "error")
				attrs = append(attrs, attribute.String("mcp.error", errMsg))
			}
			addToolAttributes(ctx, attrs...)

			return res, err
		}
	}
}

func toolError(res *mcp.CallToolResult, err error) string {
	switch {
	case err != nil:
		return err.Error()
	case res == nil || !res.IsError:
		return ""
	case len(res.Content) == 0:
		return "unknown error with no content"
	}
	if txt, ok := res.Content[0].(mcp.TextContent); ok {
		return txt.Text
	}
	return fmt.Sprintf("unknown error with content type %T", res.Content[0])
}
