// Package health reports the health of the telemetry pipeline.
//
// Instrumentation is deliberately silent toward the host application, so
// export problems would otherwise be invisible. This package surfaces
// them: checkers inspect the export pipeline (circuit state, dropped
// spans, export failures), a Registry aggregates them, and HTTP handlers
// expose the result for liveness/readiness probes. A Prometheus metrics
// handler is included for deployments using the prometheus metric
// exporter.
//
// # Basic Usage
//
//	reg := health.NewRegistry()
//	reg.Register(health.NewPipelineChecker("traces", provider.Circuit()))
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, reg)
//	mux.Handle("/metrics", health.MetricsHandler(provider.PrometheusRegistry()))
package health
