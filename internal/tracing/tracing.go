package tracing

import (
	"context"
	"errors"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"autoposter/internal/config"
)

// InstrumentationName names the tracer used by agents and the monitor.
const InstrumentationName = "autoposter"

// Provider owns the tracer provider and any exporter output file.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
	closer io.Closer
}

// Setup configures span export from the [tracing] section. When tracing is
// disabled the returned Provider hands out a no-op tracer.
func Setup(cfg config.Tracing, serviceVersion string) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(InstrumentationName)}, nil
	}
	var (
		w      io.Writer = os.Stdout
		closer io.Closer
	)
	if cfg.OutputFile != "" {
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		w, closer = f, f
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	p, err := NewWithExporter(exporter, serviceVersion)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, err
	}
	p.closer = closer
	return p, nil
}

// NewWithExporter builds a Provider around any span exporter and installs it
// as the global tracer provider.
func NewWithExporter(exporter sdktrace.SpanExporter, serviceVersion string) (*Provider, error) {
	if exporter == nil {
		return nil, errors.New("tracing: nil exporter")
	}
	return newProvider(serviceVersion, sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
}

// NewWithProcessor builds a Provider around a span processor, such as a
// tracetest.SpanRecorder.
func NewWithProcessor(processor sdktrace.SpanProcessor, serviceVersion string) (*Provider, error) {
	if processor == nil {
		return nil, errors.New("tracing: nil span processor")
	}
	return newProvider(serviceVersion, sdktrace.WithSpanProcessor(processor))
}

func newProvider(serviceVersion string, opts ...sdktrace.TracerProviderOption) (*Provider, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", InstrumentationName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(append(opts, sdktrace.WithResource(res))...)
	otel.SetTracerProvider(tp)
	return &Provider{tp: tp, tracer: tp.Tracer(InstrumentationName)}, nil
}

// Tracer returns the provider's tracer. A nil Provider yields a no-op tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil || p.tracer == nil {
		return noop.NewTracerProvider().Tracer(InstrumentationName)
	}
	return p.tracer
}

// Shutdown flushes spans and closes the output file.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.tp != nil {
		errs = append(errs, p.tp.Shutdown(ctx))
	}
	if p.closer != nil {
		errs = append(errs, p.closer.Close())
	}
	return errors.Join(errs...)
}

// StartSpan starts an internal span on tracer, or a no-op span when tracer is nil.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(InstrumentationName)
	}
	return tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal), trace.WithAttributes(attrs...))
}

// EndSpan records err (or OK) on span and ends it.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
