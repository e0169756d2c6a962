// Package telemetry installs the OpenTelemetry tracer provider that carries
// the spans pkg/proptrace records for served props.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/vango-dev/prop/internal/config"
	"github.com/vango-dev/prop/internal/errors"
)

// Option adjusts how Setup builds the provider.
type Option func(*options)

type options struct {
	exporter sdktrace.SpanExporter
	sampler  sdktrace.Sampler
	version  string
}

// WithSpanExporter exports to e instead of the OTLP/HTTP collector named by
// the trace config. The endpoint is then not consulted.
func WithSpanExporter(e sdktrace.SpanExporter) Option {
	return func(o *options) { o.exporter = e }
}

// WithSampler replaces the default parent-based always-on sampler.
func WithSampler(s sdktrace.Sampler) Option {
	return func(o *options) { o.sampler = s }
}

// WithServiceVersion reports v as the service.version resource attribute.
func WithServiceVersion(v string) Option {
	return func(o *options) { o.version = v }
}

// Setup installs a global tracer provider built from cfg and returns its
// shutdown func, which flushes pending spans.
//
// When cfg.Enabled is false nothing is installed and shutdown is a no-op.
// An enabled config with a missing or non-http endpoint fails with E102.
func Setup(ctx context.Context, cfg config.TraceConfig, opts ...Option) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	o := options{sampler: sdktrace.ParentBased(sdktrace.AlwaysSample())}
	for _, opt := range opts {
		opt(&o)
	}

	if o.exporter == nil {
		o.exporter, err = collectorExporter(ctx, cfg)
		if err != nil {
			return noop, err
		}
	}

	res, err := resource.New(ctx, resource.WithAttributes(serviceAttributes(cfg, o.version)...))
	if err != nil {
		return noop, errors.New("E050").WithDetail("Trace resource could not be built.").Wrap(err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(o.exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(o.sampler),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

// collectorExporter dials the OTLP/HTTP collector at cfg.Endpoint. Plain
// http endpoints are sent without TLS.
func collectorExporter(ctx context.Context, cfg config.TraceConfig) (sdktrace.SpanExporter, error) {
	u, err := cfg.EndpointURL()
	if err != nil {
		return nil, err
	}
	clientOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(u.Host)}
	if u.Scheme == "http" {
		clientOpts = append(clientOpts, otlptracehttp.WithInsecure())
	}
	if u.Path != "" && u.Path != "/" {
		clientOpts = append(clientOpts, otlptracehttp.WithURLPath(u.Path))
	}
	exp, err := otlptracehttp.New(ctx, clientOpts...)
	if err != nil {
		return nil, errors.New("E050").WithDetail("OTLP exporter for " + u.String() + " could not be created.").Wrap(err)
	}
	return exp, nil
}

func serviceAttributes(cfg config.TraceConfig, version string) []attribute.KeyValue {
	name := cfg.ServiceName
	if name == "" {
		name = config.DefaultServiceName
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(name)}
	if version != "" {
		attrs = append(attrs, semconv.ServiceVersion(version))
	}
	return attrs
}
