package telemetry

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jonwraymond/agentlens/capture"
)

// Config holds all configuration for the telemetry Provider.
//
// Config is plain data: callers parse their own files and hand a populated
// Config to Init. Standard OTEL_* environment variables overlay the struct
// (see FromEnv and the exporters package).
type Config struct {
	// Enabled turns telemetry on. When false, Init returns a disabled
	// provider whose accessors yield no-op implementations.
	// Default: false
	Enabled bool

	// ServiceName identifies this service in the resource descriptor.
	ServiceName string

	// ServiceVersion is the reporting service version.
	ServiceVersion string

	// Environment is recorded as deployment.environment when set.
	Environment string

	// ResourceAttributes are extra resource attributes. Values may use
	// ${VAR} expansion and secretref: references.
	ResourceAttributes map[string]string

	// TraceExporter selects the span exporter.
	// Values: otlp (default), stdout, none
	TraceExporter string

	// MetricExporter selects the metric exporter.
	// Values: otlp (default), prometheus, stdout, none
	MetricExporter string

	// Endpoint overrides the OTLP endpoint. When empty, the standard
	// OTEL_EXPORTER_OTLP_* environment variables apply.
	Endpoint string

	// Protocol selects the OTLP transport: grpc (default) or http/protobuf.
	// OTEL_EXPORTER_OTLP_PROTOCOL overrides when Protocol is empty.
	Protocol string

	// Headers are sent with OTLP export requests. Values may use ${VAR}
	// expansion and secretref: references, so API keys never appear in
	// configuration literals.
	Headers map[string]string

	// Insecure disables TLS for the OTLP connection. Default: true, for
	// local collectors.
	Insecure *bool

	// ExportInterval is the periodic metric export interval.
	// Default: 30s
	ExportInterval time.Duration

	// SampleRate controls trace sampling in [0.0, 1.0]. Default: 1.0
	SampleRate *float64

	// ShutdownTimeout bounds the final flush on Shutdown. Default: 10s
	ShutdownTimeout time.Duration

	// Capture controls which content categories may be attached to spans.
	// Every category defaults to deny.
	Capture capture.Config

	// Circuit configures the export circuit breaker.
	Circuit CircuitConfig

	// LogLevel sets the diagnostic logger level: debug|info|warn|error.
	// Default: info
	LogLevel string
}

// CircuitConfig configures circuit breaking on the span export path.
type CircuitConfig struct {
	// Enabled turns the breaker on. Default: true when tracing is enabled.
	Enabled *bool

	// MaxFailures is the consecutive export failures before the circuit
	// opens. Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing the
	// collector again. Default: 30s
	ResetTimeout time.Duration
}

// Valid trace exporters.
var validTraceExporters = map[string]bool{
	"otlp":   true,
	"stdout": true,
	"none":   true,
	"":       true,
}

// Valid metric exporters.
var validMetricExporters = map[string]bool{
	"otlp":       true,
	"prometheus": true,
	"stdout":     true,
	"none":       true,
	"":           true,
}

// Valid OTLP protocols.
var validProtocols = map[string]bool{
	"grpc":          true,
	"http/protobuf": true,
	"":              true,
}

// Valid log levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
	"":      true,
}

// Validate validates the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	if !validTraceExporters[c.TraceExporter] {
		return fmt.Errorf("%w: %q", ErrInvalidTraceExporter, c.TraceExporter)
	}
	if !validMetricExporters[c.MetricExporter] {
		return fmt.Errorf("%w: %q", ErrInvalidMetricExporter, c.MetricExporter)
	}
	if !validProtocols[c.Protocol] {
		return fmt.Errorf("%w: %q", ErrInvalidProtocol, c.Protocol)
	}
	if c.SampleRate != nil && (*c.SampleRate < MinSampleRate || *c.SampleRate > MaxSampleRate) {
		return fmt.Errorf("%w, got: %f", ErrInvalidSampleRate, *c.SampleRate)
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return nil
}

// SetDefaults applies default values to the configuration.
func (c *Config) SetDefaults() {
	if c.TraceExporter == "" {
		c.TraceExporter = "otlp"
	}
	if c.MetricExporter == "" {
		c.MetricExporter = "otlp"
	}
	if c.ExportInterval <= 0 {
		c.ExportInterval = 30 * time.Second
	}
	if c.SampleRate == nil {
		rate := 1.0
		c.SampleRate = &rate
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Circuit.MaxFailures <= 0 {
		c.Circuit.MaxFailures = 5
	}
	if c.Circuit.ResetTimeout <= 0 {
		c.Circuit.ResetTimeout = 30 * time.Second
	}
}

// IsInsecure reports whether the OTLP connection should skip TLS.
func (c *Config) IsInsecure() bool {
	if c.Insecure == nil {
		return true
	}
	return *c.Insecure
}

// CircuitEnabled reports whether the export circuit breaker is active.
func (c *Config) CircuitEnabled() bool {
	if c.Circuit.Enabled == nil {
		return true
	}
	return *c.Circuit.Enabled
}

// FromEnv overlays standard OTEL_* environment variables onto c. Explicit
// struct fields win over the environment.
func (c *Config) FromEnv() {
	if c.ServiceName == "" {
		c.ServiceName = os.Getenv("OTEL_SERVICE_NAME")
	}
	if c.Protocol == "" {
		c.Protocol = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL"))
	}
	if len(c.Headers) == 0 {
		c.Headers = parseHeaderList(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	}
	if len(c.ResourceAttributes) == 0 {
		c.ResourceAttributes = parseHeaderList(os.Getenv("OTEL_RESOURCE_ATTRIBUTES"))
	}
}

// parseHeaderList parses "k1=v1,k2=v2" lists used by the OTEL env vars.
func parseHeaderList(s string) map[string]string {
	if s == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
