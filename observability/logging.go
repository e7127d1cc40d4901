package observability

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// TraceHandler decorates log records with the trace and span ids of the
// round being executed, so engine logs join up with exported spans. It
// delegates everything else to the wrapped handler.
type TraceHandler struct {
	slog.Handler
}

// NewTraceHandler wraps a handler with trace correlation.
func NewTraceHandler(inner slog.Handler) *TraceHandler {
	return &TraceHandler{Handler: inner}
}

// Handle stamps the record with the ids of the span recording in ctx, if
// any, then hands it to the wrapped handler.
func (h *TraceHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, record)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}

// ConfigureLogging installs the process-wide default logger: JSON or text
// to stdout, optionally wrapped with trace correlation.
func ConfigureLogging(level slog.Level, structured bool, correlate bool) {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if structured {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	if correlate {
		handler = NewTraceHandler(handler)
	}

	slog.SetDefault(slog.New(handler))
}

// TraceLogger returns the default logger wrapped with trace correlation,
// for components that log inside spans without reconfiguring the process.
func TraceLogger() *slog.Logger {
	return slog.New(NewTraceHandler(slog.Default().Handler()))
}
