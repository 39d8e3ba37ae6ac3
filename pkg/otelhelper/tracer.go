// Package otelhelper provides distributed tracing for test executions.
package otelhelper

import (
	"context"
	"fmt"

	"github.com/jbtestsuite/jbtest/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	ExecutionIDKey = "jbtest.execution.id"
	TestCaseIDKey  = "jbtest.test_case.id"
	SessionIDKey   = "jbtest.session.id"
	StepNumberKey  = "jbtest.step.number"
	StepTypeKey    = "jbtest.step.type"
	StepTargetKey  = "jbtest.step.target"
	UserIDKey      = "jbtest.user.id"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

// Setup returns the tracer for serviceName. When enabled, spans are exported
// over OTLP/HTTP as configured by the OTEL_EXPORTER_OTLP_* environment
// variables; otherwise the tracer records nothing.
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func Setup(ctx context.Context, serviceName string, enabled bool) (trace.Tracer, ShutdownFunc, error) {
	if !enabled {
		return NoopTracer(), func(context.Context) error { return nil }, nil
	}

	provider, err := newTracerProvider(ctx, serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}

	return provider.Tracer(serviceName), provider.Shutdown, nil
}

// NoopTracer is used when tracing is disabled and in tests.
// nolint:ireturn
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("jbtest")
}

// nolint:ireturn,spancheck // Returning interface is intentional for OpenTelemetry tracing
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StepAttributes describes a plan step. The target is the step's selector,
// or its URL for navigation.
func StepAttributes(step models.TestStep) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int(StepNumberKey, step.StepNumber),
		attribute.String(StepTypeKey, string(step.Type)),
	}

	switch {
	case step.Selector != "":
		attrs = append(attrs, attribute.String(StepTargetKey, step.Selector))
	case step.URL != "":
		attrs = append(attrs, attribute.String(StepTargetKey, step.URL))
	}

	return attrs
}

func newTracerProvider(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}
