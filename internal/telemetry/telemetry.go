// Package telemetry builds an OpenTelemetry tracer/meter pair for callers
// that want to wrap policy operations in spans and metrics. It does not
// instrument the evaluator or notifier itself: a disabled Telemetry
// (NewNoop) is the OTel global no-op implementation, never a nil pointer a
// caller has to check for, so wrapping is always safe whether or not
// tracing is actually enabled.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry bundles a tracer and meter that callers can wrap their own
// policy operations with.
type Telemetry struct {
	Tracer trace.Tracer
	Meter  metric.Meter

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// NewNoop returns a Telemetry backed by OpenTelemetry's global no-op
// implementations: every span and instrument call is a cheap no-op.
func NewNoop() *Telemetry {
	return &Telemetry{
		Tracer: otel.Tracer("accesssecurity"),
		Meter:  otel.Meter("accesssecurity"),
	}
}

// NewStdout returns a Telemetry that exports spans and metrics to stdout,
// for cmd/asctl's trace subcommand. Call Shutdown when done.
func NewStdout(ctx context.Context) (*Telemetry, error) {
	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter))

	metricExporter, err := stdoutmetric.New()
	if err != nil {
		return nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)))

	return &Telemetry{
		Tracer:         tp.Tracer("accesssecurity"),
		Meter:          mp.Meter("accesssecurity"),
		tracerProvider: tp,
		meterProvider:  mp,
	}, nil
}

// Shutdown flushes and releases the underlying providers, if any were
// created (NewNoop's Telemetry has none and Shutdown is a no-op).
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			return err
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
