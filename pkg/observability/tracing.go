package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/inorbit-ai/flowcore-connector"

// ConnectorTracer provides connector-specific tracing utilities
type ConnectorTracer struct {
	connectorType string
	connectorName string
	tracer        trace.Tracer
}

// NewConnectorTracer creates a connector tracer. A nil provider uses the
// global one, which is a no-op until InitTracing runs.
func NewConnectorTracer(connectorType, connectorName string, tp trace.TracerProvider) *ConnectorTracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &ConnectorTracer{
		connectorType: connectorType,
		connectorName: connectorName,
		tracer:        tp.Tracer(instrumentationName),
	}
}

// StartSpan starts a connector-specific span
func (ct *ConnectorTracer) StartSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	operationName := fmt.Sprintf("%s.%s.%s", ct.connectorType, ct.connectorName, operation)
	attrs = append(attrs,
		attribute.String("connector.type", ct.connectorType),
		attribute.String("connector.name", ct.connectorName),
		attribute.String("connector.operation", operation),
	)
	return ct.tracer.Start(ctx, operationName, trace.WithAttributes(attrs...))
}

// Trace runs fn inside a span and records its error on the span.
func (ct *ConnectorTracer) Trace(ctx context.Context, operation string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := ct.StartSpan(ctx, operation, attrs...)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}
