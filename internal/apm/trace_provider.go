// Package apm installs the global OpenTelemetry tracer provider.
package apm

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/dex-arbitrage-bot/internal/config"
	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

type Provider string

const (
	ZipkinProvider   Provider = "zipkin"
	OTLPGRPCProvider Provider = "otlp-grpc"
	OTLPHTTPProvider Provider = "otlp-http"
	ConsoleProvider  Provider = "console"
	EmptyProvider    Provider = "none"
)

// TraceProvider flushes and stops span export.
type TraceProvider interface {
	Stop() error
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type emptyProvider struct{}

func (emptyProvider) Stop() error { return nil }

// TracerOptions collects the exporter chosen for the provider.
type TracerOptions struct {
	exporter     sdktrace.SpanExporter
	providerName Provider
	serviceName  string
	useEmpty     bool
}

type TracerOption func(*TracerOptions) error

// WithConfig picks the exporter named by cfg.TraceProvider.
func WithConfig(cfg config.TelemetryConfig, log logger.LoggerInterface) TracerOption {
	return func(o *TracerOptions) error {
		o.serviceName = cfg.ServiceName

		switch Provider(strings.ToLower(cfg.TraceProvider)) {
		case ZipkinProvider:
			return useZipkin(cfg.OTLPEndpoint)(o)
		case OTLPGRPCProvider:
			return useOTLPGRPC(cfg.OTLPEndpoint, cfg.OTLPHeaders)(o)
		case OTLPHTTPProvider:
			return useOTLPHTTP(cfg.OTLPEndpoint, cfg.OTLPHeaders)(o)
		case ConsoleProvider:
			return WithWriter(nil)(o)
		case EmptyProvider, "":
			o.useEmpty = true
			return nil
		default:
			log.Warn(context.Background(), "unknown trace provider, tracing disabled",
				"provider", cfg.TraceProvider)
			o.useEmpty = true
			return nil
		}
	}
}

// WithWriter exports pretty-printed spans to w, or stdout when w is nil.
func WithWriter(w io.Writer) TracerOption {
	return func(o *TracerOptions) error {
		opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if w != nil {
			opts = append(opts, stdouttrace.WithWriter(w))
		}
		exp, err := stdouttrace.New(opts...)
		if err != nil {
			return err
		}
		o.exporter = exp
		o.providerName = ConsoleProvider
		return nil
	}
}

func useZipkin(url string) TracerOption {
	return func(o *TracerOptions) error {
		exp, err := zipkin.New(url)
		if err != nil {
			return err
		}
		o.exporter = exp
		o.providerName = ZipkinProvider
		return nil
	}
}

func useOTLPGRPC(url, headers string) TracerOption {
	return func(o *TracerOptions) error {
		exp, err := otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithEndpointURL(url),
			otlptracegrpc.WithHeaders(ParseHeaders(headers)),
		)
		if err != nil {
			return err
		}
		o.exporter = exp
		o.providerName = OTLPGRPCProvider
		return nil
	}
}

func useOTLPHTTP(url, headers string) TracerOption {
	return func(o *TracerOptions) error {
		exp, err := otlptracehttp.New(context.Background(),
			otlptracehttp.WithEndpointURL(url),
			otlptracehttp.WithHeaders(ParseHeaders(headers)),
		)
		if err != nil {
			return err
		}
		o.exporter = exp
		o.providerName = OTLPHTTPProvider
		return nil
	}
}

// ParseHeaders parses "k1=v1,k2=v2". Malformed pairs are skipped.
func ParseHeaders(s string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			continue
		}
		headers[k] = v
	}
	return headers
}

// NewTraceProvider builds the tracer provider and installs it globally along
// with the W3C trace-context propagator.
func NewTraceProvider(options ...TracerOption) (TraceProvider, error) {
	opts := &TracerOptions{}
	for _, opt := range options {
		if err := opt(opts); err != nil {
			return nil, fmt.Errorf("trace exporter: %w", err)
		}
	}

	if opts.useEmpty || opts.exporter == nil {
		return emptyProvider{}, nil
	}

	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(opts.serviceName),
			attribute.String("otel.provider", string(opts.providerName)),
		))
	if err != nil {
		rsrc = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(opts.exporter),
		sdktrace.WithResource(rsrc),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	return &traceProvider{tp}, nil
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return o.tp.Shutdown(ctx)
}
