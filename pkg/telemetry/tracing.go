package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/pulse/pkg/pulse"
)

// Default tracer name.
const defaultTracerName = "pulse"

// Tracing creates spans for runtime events.
type Tracing struct {
	tracer trace.Tracer
}

// NewTracing resolves a tracer from provider. A nil provider means the
// global one, so spans are no-ops until Setup or otel.SetTracerProvider runs.
func NewTracing(provider trace.TracerProvider, name string) *Tracing {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	if name == "" {
		name = defaultTracerName
	}
	return &Tracing{tracer: provider.Tracer(name)}
}

// Start begins a span.
func (t *Tracing) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// End closes span, recording err when non-nil.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TraceAggregator records a span for every aggregated event of agg.
func (t *Tracing) TraceAggregator(agg *pulse.Aggregator) *pulse.Subscription {
	return agg.On(pulse.ChannelAggregated, func(s pulse.Snapshot) {
		_, span := t.Start(context.Background(), "pulse.aggregated",
			attribute.String("pulse.aggregator", agg.Name()),
			attribute.Int("pulse.keys", len(s)),
		)
		span.End()
	})
}

// Reporter records a failed span for every recovered failure, then hands it
// to next.
func (t *Tracing) Reporter(next pulse.Reporter) pulse.Reporter {
	return pulse.ReporterFunc(func(source string, err error) {
		_, span := t.Start(context.Background(), "pulse.callback",
			attribute.String("pulse.source", source),
		)
		End(span, err)
		if next != nil {
			next.Report(source, err)
		}
	})
}

// ExportConfig selects where spans go.
type ExportConfig struct {
	// Exporter is "none", "stdout" or "otlp".
	Exporter string

	// Writer receives stdout spans.
	Writer io.Writer

	// Endpoint is the OTLP gRPC collector address (default: localhost:4317).
	Endpoint string

	// Insecure disables TLS to the collector.
	Insecure bool
}

// Setup installs a global tracer provider for cfg.Exporter and returns its
// shutdown function. The OTLP exporter connects lazily, so an unreachable
// collector only shows up when spans are flushed.
func Setup(ctx context.Context, cfg ExportConfig) (func(context.Context) error, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)
	switch cfg.Exporter {
	case "", "none":
		return func(context.Context) error { return nil }, nil
	case "stdout":
		exp, err = stdouttrace.New(stdouttrace.WithWriter(cfg.Writer), stdouttrace.WithPrettyPrint())
	case "otlp":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exp, err = otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unknown trace exporter: %s", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
