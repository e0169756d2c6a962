// Package proptrace records prop emissions as OpenTelemetry spans.
//
// Every cell emitted by a traced prop becomes one "prop.emit" span carrying
// the prop's id and name. Cells with an error are recorded with
// span.RecordError and the Error status.
//
//	proptrace.Trace(form, proptrace.WithTracerName("checkout"))
//
// The tracer comes from the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure the provider in main() before
// tracing, e.g.:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
package proptrace

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/prop/pkg/prop"
)

// Default tracer name.
const defaultTracerName = "github.com/vango-dev/prop"

// SpanName is the name of every emission span.
const SpanName = "prop.emit"

// Attribute keys set on emission spans.
const (
	AttrPropID    = attribute.Key("prop.id")
	AttrPropName  = attribute.Key("prop.name")
	AttrPending   = attribute.Key("prop.pending")
	AttrHasValue  = attribute.Key("prop.has_value")
	AttrErrorKind = attribute.Key("prop.error_kind")
)

// Config configures tracing.
type Config struct {
	// TracerName is the name of the tracer.
	TracerName string

	// Provider is the tracer provider. If nil, the global provider is used.
	Provider trace.TracerProvider

	// Attributes are added to every span.
	Attributes []attribute.KeyValue

	// Context is the parent context of every span. Defaults to
	// context.Background().
	Context context.Context
}

// Option configures tracing.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.Provider = tp
	}
}

// WithAttributes adds attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(c *Config) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

// WithContext sets the parent context of the spans.
func WithContext(ctx context.Context) Option {
	return func(c *Config) {
		c.Context = ctx
	}
}

// Trace starts a span for every later cell p emits, until p ends or the
// returned subscription is cancelled.
func Trace(p prop.Observable, opts ...Option) *prop.Subscription {
	config := Config{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Context == nil {
		config.Context = context.Background()
	}

	var tracer trace.Tracer
	if config.Provider != nil {
		tracer = config.Provider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}

	base := append([]attribute.KeyValue{
		AttrPropID.Int64(int64(p.ID())),
		AttrPropName.String(p.Name()),
	}, config.Attributes...)

	return p.SubscribeAny(func(v any, err error) {
		attrs := append(base[:len(base):len(base)], AttrHasValue.Bool(v != nil))
		if err != nil {
			attrs = append(attrs,
				AttrPending.Bool(errors.Is(err, prop.ErrPending)),
				AttrErrorKind.String(prop.Kind(err)),
			)
		}

		_, span := tracer.Start(config.Context, SpanName,
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(attrs...),
		)
		defer span.End()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}, prop.NotifyImmediately(false))
}
