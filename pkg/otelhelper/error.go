package otelhelper

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// codedError is an error carrying a stable code, such as WORKFLOW_CLOSED.
type codedError interface {
	ErrorCode() string
}

// SetError marks the span as failed and records err with attrs. When err
// carries a code, the span is tagged with it under ErrorCodeKey.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	var coded codedError
	if errors.As(err, &coded) && coded.ErrorCode() != "" {
		attrs = append(attrs, attribute.String(ErrorCodeKey, coded.ErrorCode()))
	}

	span.SetAttributes(attrs...)
	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}
