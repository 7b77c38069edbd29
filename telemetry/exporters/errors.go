package exporters

import "errors"

var (
	// ErrEndpointNotConfigured indicates a required endpoint environment
	// variable is not set.
	ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")

	// ErrUnknownExporter indicates an unrecognized exporter name.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")

	// ErrUnknownProtocol indicates an unrecognized OTLP protocol name.
	ErrUnknownProtocol = errors.New("exporters: unknown protocol")
)

// ValidSpanExporters lists valid span exporter names.
var ValidSpanExporters = []string{"otlp", "stdout", "none", ""}

// ValidMetricExporters lists valid metric exporter names.
var ValidMetricExporters = []string{"otlp", "prometheus", "stdout", "none", ""}

// ValidProtocols lists valid OTLP protocol names.
var ValidProtocols = []string{"grpc", "http/protobuf", ""}
