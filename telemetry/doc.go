// Package telemetry provides tracing and metrics for LLM agent operations.
//
// It is a pure instrumentation layer: no model calling, no tool execution,
// no message transport. Callers (the model client, the tool dispatcher, the
// channel loop) wire a Provider in at startup and record their operations
// through the Recorder, Metrics, and Middleware types. Signals follow the
// OpenTelemetry GenAI semantic conventions and export over OTLP.
//
// Every public recording entry point is guarded: a failure inside this
// package is logged at debug level and becomes a no-op. Instrumentation
// never alters the behavior of the wrapped application code.
package telemetry
