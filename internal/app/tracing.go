package app

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// setupTracing installs a global tracer provider that prints pipeline spans
// to the app's output. It returns the provider's shutdown function, which
// flushes pending spans.
func (a *App) setupTracing(ctx context.Context) (func(context.Context) error, error) {
	if !a.cfg.Trace {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(a.outW), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", "clusterpass"),
		attribute.String("clusterpass.backend", a.model.Pipeline.Backend),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	a.logger.Debug("Tracing enabled.", "exporter", "stdout")
	return tp.Shutdown, nil
}
