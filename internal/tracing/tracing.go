// Package tracing stands up an optional OTLP span exporter for turn
// lifecycles (inject -> watch -> complete). When telemetry is
// disabled this returns a no-op tracer so call sites never branch on
// nil, matching the design note's "branch-free" requirement.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config mirrors the config package's TelemetryConfig so this package
// does not need to import internal/config.
type Config struct {
	Enabled     bool
	Endpoint    string
	Protocol    string // "grpc" (default) or "http"
	Insecure    bool
	ServiceName string
	Headers     map[string]string
}

const defaultServiceName = "goclaw-bridge"

// Shutdown flushes and closes the exporter. A no-op when tracing is
// disabled.
type Shutdown func(context.Context) error

// New builds a trace.Tracer per cfg. When cfg.Enabled is false, the
// returned tracer is go.opentelemetry.io/otel/trace/noop's
// zero-overhead implementation and shutdown is a no-op.
func New(ctx context.Context, cfg Config) (trace.Tracer, Shutdown, error) {
	if !cfg.Enabled {
		return noop.NewTracerProvider().Tracer(defaultServiceName), func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: build exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", serviceName),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return tp.Tracer(serviceName), tp.Shutdown, nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	headerOpt := func() map[string]string { return cfg.Headers }

	if cfg.Protocol == "http" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if h := headerOpt(); len(h) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(h))
		}
		return otlptracehttp.New(ctx, opts...)
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	if h := headerOpt(); len(h) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(h))
	}
	return otlptracegrpc.New(ctx, opts...)
}

// StartTurn starts the per-turn root span covering inject -> watcher
// armed -> onComplete, tagged with session and cwd attributes.
func StartTurn(ctx context.Context, tracer trace.Tracer, sessionID, cwd string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "turn",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("cwd", cwd),
		),
	)
}

// EndTurn records the termination reason and ends span.
func EndTurn(span trace.Span, reason string) {
	span.SetAttributes(attribute.String("termination.reason", reason))
	span.End()
}
