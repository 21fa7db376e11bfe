package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Request is a one-shot request builder.
type Request interface {
	Get(ctx context.Context, path string) (*Response, error)
	Post(ctx context.Context, path string) (*Response, error)

	SetBody(body any) Request
	SetHeader(key, value string) Request
	SetHeaders(headers map[string]string) Request
	SetQueryParam(key, value string) Request
	SetQueryParams(params map[string]string) Request
	// SetResult JSON-decodes the response body into v.
	SetResult(v any) Request
}

// Response is a fully read HTTP response.
type Response struct {
	*http.Response
	body    []byte
	decoded bool
}

func (r *Response) Body() []byte    { return r.body }
func (r *Response) String() string  { return string(r.body) }
func (r *Response) IsError() bool   { return r.StatusCode >= http.StatusBadRequest }
func (r *Response) IsSuccess() bool { return !r.IsError() }

// Decoded reports whether the body was decoded into the SetResult target.
func (r *Response) Decoded() bool { return r.decoded }

type request struct {
	client *InstrumentedClient
	opts   requestOptions
	header http.Header
	query  url.Values
	body   any
	result any
}

func (r *request) Get(ctx context.Context, path string) (*Response, error) {
	return r.do(ctx, http.MethodGet, path)
}

func (r *request) Post(ctx context.Context, path string) (*Response, error) {
	return r.do(ctx, http.MethodPost, path)
}

func (r *request) SetBody(body any) Request {
	r.body = body
	return r
}

func (r *request) SetHeader(key, value string) Request {
	r.header.Set(key, value)
	return r
}

func (r *request) SetHeaders(headers map[string]string) Request {
	for k, v := range headers {
		r.header.Set(k, v)
	}
	return r
}

func (r *request) SetQueryParam(key, value string) Request {
	r.query.Set(key, value)
	return r
}

func (r *request) SetQueryParams(params map[string]string) Request {
	for k, v := range params {
		r.query.Set(k, v)
	}
	return r
}

func (r *request) SetResult(v any) Request {
	r.result = v
	return r
}

func (r *request) url(path string) string {
	full := path
	if base := r.client.opts.baseURL; base != "" && !strings.HasPrefix(path, "http") {
		full = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if len(r.query) == 0 {
		return full
	}
	sep := "?"
	if strings.Contains(full, "?") {
		sep = "&"
	}
	return full + sep + r.query.Encode()
}

func (r *request) encodeBody() (io.Reader, []byte, error) {
	switch b := r.body.(type) {
	case nil:
		return nil, nil, nil
	case []byte:
		return bytes.NewReader(b), b, nil
	case string:
		return strings.NewReader(b), []byte(b), nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, nil, fmt.Errorf("encode request body: %w", err)
		}
		if r.header.Get("Content-Type") == "" {
			r.header.Set("Content-Type", "application/json")
		}
		return bytes.NewReader(raw), raw, nil
	}
}

func (r *request) do(ctx context.Context, method, path string) (*Response, error) {
	c := r.client
	ctx, span := c.tracer.Start(ctx, "http."+strings.ToLower(method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
			attribute.String("provider", c.opts.providerName),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := r.send(ctx, span, method, path)
	r.record(ctx, start, resp, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.Canceled) {
			span.SetAttributes(attribute.Bool("context.canceled", true))
		}
		return resp, err
	}
	span.SetStatus(codes.Ok, "")
	return resp, nil
}

func (r *request) send(ctx context.Context, span trace.Span, method, path string) (*Response, error) {
	body, raw, err := r.encodeBody()
	if err != nil {
		return nil, err
	}
	if raw != nil && r.client.opts.traceRequest {
		span.AddEvent("request.body", trace.WithAttributes(attribute.String("http.request_body", string(raw))))
	}

	req, err := http.NewRequestWithContext(ctx, method, r.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = r.header

	httpResp, err := r.client.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", httpResp.StatusCode))
	if r.client.opts.traceResponse {
		span.AddEvent("response.body", trace.WithAttributes(attribute.String("http.response_body", string(data))))
	}

	resp := &Response{Response: httpResp, body: data}
	// Undecodable bodies are left for the caller to inspect via Decoded.
	if r.result != nil && len(data) > 0 && json.Unmarshal(data, r.result) == nil {
		resp.decoded = true
	}

	if h := r.opts.errorHandler; h != nil {
		if err := h(httpResp.StatusCode, data); err != nil {
			return resp, err
		}
	}
	return resp, nil
}

func (r *request) record(ctx context.Context, start time.Time, resp *Response, err error) {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	attrs := metric.WithAttributes(
		attribute.String("endpoint", r.opts.endpoint),
		attribute.Bool("success", err == nil && status > 0 && status < http.StatusBadRequest),
	)
	r.client.requests.Add(ctx, 1, attrs)
	r.client.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
}
