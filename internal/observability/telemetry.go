// Package observability wires OpenTelemetry tracing into the engine, the
// HTTP adapter and the gRPC health server. Until Init enables it every span
// comes from a no-op tracer, so instrumented code never checks first.
package observability

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config selects the exporter and sampling for engine traces.
type Config struct {
	Enabled     bool
	Exporter    string // "otlp-http" (default) or "discard"
	Endpoint    string // host:port of the OTLP/HTTP collector
	ServiceName string
	SampleRate  float64 // fraction of new root traces kept
}

type tracing struct {
	tp     *sdktrace.TracerProvider // nil when disabled
	tracer trace.Tracer
}

var current atomic.Pointer[tracing]

func init() {
	current.Store(disabled())
}

func disabled() *tracing {
	return &tracing{tracer: noop.NewTracerProvider().Tracer("inkwell")}
}

// Init installs the tracer described by cfg, replacing any earlier one. A
// disabled config installs the no-op tracer.
func Init(ctx context.Context, cfg Config) error {
	if !cfg.Enabled {
		current.Store(disabled())
		return nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "inkwell"
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return err
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
	))
	if err != nil {
		return fmt.Errorf("tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	current.Store(&tracing{tp: tp, tracer: tp.Tracer(cfg.ServiceName)})
	return nil
}

func newExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "", "otlp", "otlp-http":
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter: %w", err)
		}
		return exp, nil
	case "discard":
		return discardExporter{}, nil
	default:
		return nil, fmt.Errorf("unknown trace exporter %q", cfg.Exporter)
	}
}

// newSampler keeps a remote parent's decision and samples new roots at rate.
func newSampler(rate float64) sdktrace.Sampler {
	root := sdktrace.AlwaysSample()
	if rate < 1 {
		root = sdktrace.TraceIDRatioBased(max(rate, 0))
	}
	return sdktrace.ParentBased(root)
}

// Shutdown flushes buffered spans and reverts to the no-op tracer.
func Shutdown(ctx context.Context) error {
	t := current.Swap(disabled())
	if t.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return t.tp.Shutdown(ctx)
}

func Tracer() trace.Tracer {
	return current.Load().tracer
}

// Enabled reports whether spans are being recorded and exported.
func Enabled() bool {
	return current.Load().tp != nil
}

// discardExporter drops finished spans; spans are still created and sampled.
type discardExporter struct{}

func (discardExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (discardExporter) Shutdown(context.Context) error                             { return nil }
