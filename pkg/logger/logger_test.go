package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func captureGlobal(t *testing.T) *bytes.Buffer {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	buf := &bytes.Buffer{}
	log.Logger = zerolog.New(buf)
	return buf
}

func TestCtx_AddsRequestID(t *testing.T) {
	buf := captureGlobal(t)

	ctx := WithRequestID(context.Background(), "req-42")
	Ctx(ctx).Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
	assert.NotContains(t, entry, "trace_id")
}

func TestCtx_AddsTraceIDs(t *testing.T) {
	buf := captureGlobal(t)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	Ctx(ctx).Info().Msg("traced")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
}

func TestSetup_UnknownLevelFallsBackToInfo(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	Setup("nonsense", false)
	assert.Equal(t, zerolog.InfoLevel, log.Logger.GetLevel())

	Setup("debug", false)
	assert.Equal(t, zerolog.DebugLevel, log.Logger.GetLevel())
}
