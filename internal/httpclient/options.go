// Package httpclient is a small JSON-over-HTTP request builder with OTEL
// tracing and per-provider request metrics.
package httpclient

import (
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// TraceOption selects which bodies are attached to request spans.
type TraceOption string

const (
	TraceRequest  TraceOption = "request"
	TraceResponse TraceOption = "response"
)

type clientOptions struct {
	providerName   string
	baseURL        string
	headers        map[string]string
	requestTimeout time.Duration
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	traceRequest   bool
	traceResponse  bool
}

// ClientOption configures an InstrumentedClient.
type ClientOption func(*clientOptions)

// WithProviderName tags metrics and spans with the remote provider.
func WithProviderName(name string) ClientOption {
	return func(o *clientOptions) { o.providerName = name }
}

// WithBaseURL is prefixed to relative request paths.
func WithBaseURL(url string) ClientOption {
	return func(o *clientOptions) { o.baseURL = url }
}

// WithRequestTimeout bounds every request end to end.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) { o.requestTimeout = timeout }
}

// WithHeaders sets headers sent on every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *clientOptions) { o.headers = headers }
}

func WithMeterProvider(mp metric.MeterProvider) ClientOption {
	return func(o *clientOptions) { o.meterProvider = mp }
}

// WithTraceOptions sets the tracer and which bodies to record on spans.
func WithTraceOptions(tracer trace.Tracer, opts ...TraceOption) ClientOption {
	return func(o *clientOptions) {
		o.tracer = tracer
		for _, opt := range opts {
			switch opt {
			case TraceRequest:
				o.traceRequest = true
			case TraceResponse:
				o.traceResponse = true
			}
		}
	}
}

// ResponseErrorHandler turns a completed response into an error, or nil to
// accept it.
type ResponseErrorHandler func(statusCode int, body []byte) error

type requestOptions struct {
	endpoint     string
	errorHandler ResponseErrorHandler
}

// RequestOption configures a single request.
type RequestOption func(*requestOptions)

// WithEndpoint labels the request metric with a logical endpoint name.
func WithEndpoint(name string) RequestOption {
	return func(o *requestOptions) { o.endpoint = name }
}

func WithResponseErrorHandler(h ResponseErrorHandler) RequestOption {
	return func(o *requestOptions) { o.errorHandler = h }
}
