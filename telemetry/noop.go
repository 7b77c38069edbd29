package telemetry

import (
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/agentlens/capture"
)

// noopTracer returns the OTel no-op tracer: constant-time, allocation-free
// span handling.
func noopTracer(name string) trace.Tracer {
	return tracenoop.NewTracerProvider().Tracer(name)
}

// noopMeter returns the OTel no-op meter.
func noopMeter(name string) metric.Meter {
	return metricnoop.NewMeterProvider().Meter(name)
}

// mustMetrics builds the metric instruments, falling back to no-op
// instruments if construction fails. The fallback cannot fail: no-op
// meters accept any instrument definition.
func mustMetrics(meter metric.Meter, logger Logger) *Metrics {
	m, err := newMetrics(meter, logger)
	if err != nil {
		logger.Debug("metric instrument creation failed, using no-ops", F("error", err.Error()))
		m, _ = newMetrics(noopMeter("noop"), logger)
	}
	return m
}

// newDisabled builds a fully wired but signal-free provider. Every
// recording path stays callable; nothing is produced.
func newDisabled(cfg Config, logger Logger) *Provider {
	tracer := noopTracer("noop")
	policy := capture.NewPolicy(cfg.Capture)
	recorder := newRecorder(tracer, policy, logger)
	metrics := mustMetrics(noopMeter("noop"), logger)

	return &Provider{
		cfg:        cfg,
		logger:     logger,
		policy:     policy,
		tracer:     tracer,
		meter:      noopMeter("noop"),
		recorder:   recorder,
		metrics:    metrics,
		middleware: newMiddleware(recorder, metrics, logger),
	}
}
