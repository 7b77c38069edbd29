package telemetry

import "errors"

// Configuration errors.
var (
	// ErrMissingServiceName indicates Config.ServiceName is empty.
	ErrMissingServiceName = errors.New("telemetry: service name is required")

	// ErrInvalidSampleRate indicates Config.SampleRate is not in [0.0, 1.0].
	ErrInvalidSampleRate = errors.New("telemetry: sample rate must be between 0.0 and 1.0")

	// ErrInvalidTraceExporter indicates an unknown trace exporter name.
	ErrInvalidTraceExporter = errors.New("telemetry: invalid trace exporter")

	// ErrInvalidMetricExporter indicates an unknown metric exporter name.
	ErrInvalidMetricExporter = errors.New("telemetry: invalid metric exporter")

	// ErrInvalidProtocol indicates an unknown OTLP protocol name.
	ErrInvalidProtocol = errors.New("telemetry: invalid OTLP protocol")

	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("telemetry: invalid log level")
)

// Runtime errors.
var (
	// ErrShutdownTimeout indicates the provider could not flush within the
	// shutdown deadline.
	ErrShutdownTimeout = errors.New("telemetry: shutdown deadline exceeded")
)

// Validation constants.
const (
	// MinSampleRate is the minimum valid sampling rate.
	MinSampleRate = 0.0
	// MaxSampleRate is the maximum valid sampling rate.
	MaxSampleRate = 1.0
)
