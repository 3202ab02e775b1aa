package otelhelper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpanAndSetError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, span := StartSpan(context.Background(), tracer, "lifecycle.run_task",
		attribute.String(TaskIDKey, "task-1"))
	SetError(span, errors.New("directory unavailable"), attribute.String(TaskHandlerKey, "apps.provision"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "lifecycle.run_task", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "directory unavailable", spans[0].Status().Description)
	assert.Contains(t, spans[0].Attributes(), attribute.String(TaskIDKey, "task-1"))
	assert.Contains(t, spans[0].Attributes(), attribute.String(TaskHandlerKey, "apps.provision"))
	assert.NotContains(t, attributeKeys(spans[0].Attributes()), attribute.Key(ErrorCodeKey))
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

type codeError string

func (e codeError) Error() string     { return "conflict: " + string(e) }
func (e codeError) ErrorCode() string { return string(e) }

func TestSetError_TagsErrorCode(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := StartSpan(context.Background(), provider.Tracer("test"), "lifecycle.cancel")
	SetError(span, fmt.Errorf("cancel: %w", codeError("WORKFLOW_CLOSED")))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Attributes(), attribute.String(ErrorCodeKey, "WORKFLOW_CLOSED"))
	assert.Equal(t, "cancel: conflict: WORKFLOW_CLOSED", spans[0].Status().Description)
}

func attributeKeys(attrs []attribute.KeyValue) []attribute.Key {
	keys := make([]attribute.Key, 0, len(attrs))
	for _, kv := range attrs {
		keys = append(keys, kv.Key)
	}

	return keys
}

func TestNoopTracer(t *testing.T) {
	_, span := StartSpan(context.Background(), NoopTracer(), "noop")
	defer span.End()

	assert.False(t, span.SpanContext().IsValid())
}
