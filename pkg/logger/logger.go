// Package logger configures the process-wide zerolog logger and derives
// request-scoped loggers carrying request and trace identifiers.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey struct{}

var requestIDKey = ctxKey{}

// Setup installs the global logger. Unknown levels fall back to info.
func Setup(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = os.Stderr
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	log.Logger = zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "marketplace").Logger()
}

// WithRequestID stores the request id so Ctx can attach it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Ctx returns the global logger enriched with request_id, trace_id and span_id when present.
func Ctx(ctx context.Context) *zerolog.Logger {
	lc := log.Logger.With()
	if id := RequestID(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		lc = lc.Str("trace_id", sc.TraceID().String())
	}
	if sc.HasSpanID() {
		lc = lc.Str("span_id", sc.SpanID().String())
	}
	l := lc.Logger()
	return &l
}
