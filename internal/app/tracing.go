package app

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/R3E-Network/submission_review/internal/app/system"
	"github.com/R3E-Network/submission_review/internal/config"
)

// tracerService installs a global OTLP tracer provider and flushes it on stop.
type tracerService struct {
	provider *sdktrace.TracerProvider
}

func newTracer(ctx context.Context, cfg config.TracingConfig) (*tracerService, error) {
	opts := []otlptracehttp.Option{}
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	// Schemaless so the merge never conflicts with the SDK default schema.
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		attribute.String("service.component", "api"),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return &tracerService{provider: tp}, nil
}

var _ system.Service = (*tracerService)(nil)

func (t *tracerService) Name() string                  { return "tracing" }
func (t *tracerService) Start(context.Context) error    { return nil }
func (t *tracerService) Stop(ctx context.Context) error { return t.provider.Shutdown(ctx) }
