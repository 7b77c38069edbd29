// Package exporters provides factory functions for creating OpenTelemetry
// exporters and a circuit-breaking export wrapper.
package exporters

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Options configures exporter construction. The zero value defers to the
// standard OTEL_EXPORTER_OTLP_* environment variables.
type Options struct {
	// Endpoint overrides the collector endpoint. A value containing "://"
	// is treated as a full URL; otherwise as host:port.
	Endpoint string

	// Protocol selects the OTLP transport: "grpc" (default) or
	// "http/protobuf". OTEL_EXPORTER_OTLP_PROTOCOL applies when empty.
	Protocol string

	// Headers are sent with every export request.
	Headers map[string]string

	// Insecure disables TLS for the collector connection.
	Insecure bool

	// Interval is the periodic metric export interval.
	Interval time.Duration

	// Registerer receives Prometheus metrics when the "prometheus"
	// metric exporter is selected.
	Registerer promclient.Registerer
}

func (o Options) protocol() string {
	if o.Protocol != "" {
		return o.Protocol
	}
	if p := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL")); p != "" {
		return p
	}
	return "grpc"
}

// HasTraceEndpoint reports whether an OTLP trace endpoint is configured.
func (o Options) HasTraceEndpoint() bool {
	return o.Endpoint != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") != ""
}

// HasMetricEndpoint reports whether an OTLP metric endpoint is configured.
func (o Options) HasMetricEndpoint() bool {
	return o.Endpoint != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT") != ""
}

// NewSpanExporter creates a span exporter based on the exporter name.
// Supported exporters: otlp, stdout, none
func NewSpanExporter(ctx context.Context, name string, opts Options) (sdktrace.SpanExporter, error) {
	switch name {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout))

	case "otlp":
		if !opts.HasTraceEndpoint() {
			return nil, fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", ErrEndpointNotConfigured)
		}
		switch p := opts.protocol(); p {
		case "grpc":
			return otlptracegrpc.New(ctx, traceGRPCOptions(opts)...)
		case "http/protobuf":
			return otlptracehttp.New(ctx, traceHTTPOptions(opts)...)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, p)
		}

	case "none", "":
		// Discarding exporter keeps the pipeline shape without output.
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}

// NewMetricReader creates a metrics reader based on the exporter name.
// Supported exporters: otlp, prometheus, stdout, none
func NewMetricReader(ctx context.Context, name string, opts Options) (sdkmetric.Reader, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	switch name {
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval)), nil

	case "otlp":
		if !opts.HasMetricEndpoint() {
			return nil, fmt.Errorf("%w: set OTEL_EXPORTER_OTLP_ENDPOINT or OTEL_EXPORTER_OTLP_METRICS_ENDPOINT", ErrEndpointNotConfigured)
		}
		var (
			exp sdkmetric.Exporter
			err error
		)
		switch p := opts.protocol(); p {
		case "grpc":
			exp, err = otlpmetricgrpc.New(ctx, metricGRPCOptions(opts)...)
		case "http/protobuf":
			exp, err = otlpmetrichttp.New(ctx, metricHTTPOptions(opts)...)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, p)
		}
		if err != nil {
			return nil, fmt.Errorf("create OTLP metric exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval)), nil

	case "prometheus":
		promOpts := []prometheus.Option{}
		if opts.Registerer != nil {
			promOpts = append(promOpts, prometheus.WithRegisterer(opts.Registerer))
		}
		exp, err := prometheus.New(promOpts...)
		if err != nil {
			return nil, fmt.Errorf("create Prometheus exporter: %w", err)
		}
		return exp, nil

	case "none", "":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(io.Discard))
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval)), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, name)
	}
}

func isURL(endpoint string) bool {
	return strings.Contains(endpoint, "://")
}

func traceGRPCOptions(opts Options) []otlptracegrpc.Option {
	var out []otlptracegrpc.Option
	if opts.Endpoint != "" {
		if isURL(opts.Endpoint) {
			out = append(out, otlptracegrpc.WithEndpointURL(opts.Endpoint))
		} else {
			out = append(out, otlptracegrpc.WithEndpoint(opts.Endpoint))
		}
	}
	if len(opts.Headers) > 0 {
		out = append(out, otlptracegrpc.WithHeaders(opts.Headers))
	}
	if opts.Insecure {
		out = append(out, otlptracegrpc.WithInsecure())
	}
	return out
}

func traceHTTPOptions(opts Options) []otlptracehttp.Option {
	var out []otlptracehttp.Option
	if opts.Endpoint != "" {
		if isURL(opts.Endpoint) {
			out = append(out, otlptracehttp.WithEndpointURL(opts.Endpoint))
		} else {
			out = append(out, otlptracehttp.WithEndpoint(opts.Endpoint))
		}
	}
	if len(opts.Headers) > 0 {
		out = append(out, otlptracehttp.WithHeaders(opts.Headers))
	}
	if opts.Insecure {
		out = append(out, otlptracehttp.WithInsecure())
	}
	return out
}

func metricGRPCOptions(opts Options) []otlpmetricgrpc.Option {
	var out []otlpmetricgrpc.Option
	if opts.Endpoint != "" {
		if isURL(opts.Endpoint) {
			out = append(out, otlpmetricgrpc.WithEndpointURL(opts.Endpoint))
		} else {
			out = append(out, otlpmetricgrpc.WithEndpoint(opts.Endpoint))
		}
	}
	if len(opts.Headers) > 0 {
		out = append(out, otlpmetricgrpc.WithHeaders(opts.Headers))
	}
	if opts.Insecure {
		out = append(out, otlpmetricgrpc.WithInsecure())
	}
	return out
}

func metricHTTPOptions(opts Options) []otlpmetrichttp.Option {
	var out []otlpmetrichttp.Option
	if opts.Endpoint != "" {
		if isURL(opts.Endpoint) {
			out = append(out, otlpmetrichttp.WithEndpointURL(opts.Endpoint))
		} else {
			out = append(out, otlpmetrichttp.WithEndpoint(opts.Endpoint))
		}
	}
	if len(opts.Headers) > 0 {
		out = append(out, otlpmetrichttp.WithHeaders(opts.Headers))
	}
	if opts.Insecure {
		out = append(out, otlpmetrichttp.WithInsecure())
	}
	return out
}
