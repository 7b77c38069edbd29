package telemetry

import (
	"context"
	"fmt"
	"time"
)

// ChatResult is what a wrapped model call returns to the middleware.
// Output passes through unchanged; the rest feeds the span and metrics.
type ChatResult struct {
	Output   any
	Response Response
	Usage    Usage
}

// ChatFunc is the signature for model invocation functions.
type ChatFunc func(ctx context.Context, start ChatStart) (ChatResult, error)

// ToolFunc is the signature for tool execution functions. A string result
// is eligible for capture as the tool result.
type ToolFunc func(ctx context.Context, start ToolStart) (any, error)

// MessageFunc is the signature for end-to-end message processing.
type MessageFunc func(ctx context.Context, start MessageStart) (any, error)

// Middleware wraps agent operations with spans, metrics, and logging. It
// is the recommended integration point: the span opened for an operation
// is closed on every exit path, including panics and cancellation, and the
// wrapped function's result and error pass through unchanged.
type Middleware struct {
	recorder *Recorder
	metrics  *Metrics
	logger   Logger
}

// newMiddleware creates a Middleware over the given recorders.
func newMiddleware(recorder *Recorder, metrics *Metrics, logger Logger) *Middleware {
	return &Middleware{
		recorder: recorder,
		metrics:  metrics,
		logger:   logger,
	}
}

// NewMiddleware builds a Middleware from explicit components, for callers
// not going through a Provider.
func NewMiddleware(recorder *Recorder, metrics *Metrics, logger Logger) *Middleware {
	if logger == nil {
		logger = noopLogger{}
	}
	return newMiddleware(recorder, metrics, logger)
}

// WrapChat wraps a model invocation with a "chat {model}" client span and
// duration/token metrics.
func (m *Middleware) WrapChat(fn ChatFunc) ChatFunc {
	return func(ctx context.Context, start ChatStart) (ChatResult, error) {
		provider := start.Provider
		if provider == "" {
			provider = ProviderFromModel(start.Model)
		}

		spanCtx, span := m.recorder.StartChat(ctx, start)
		began := time.Now()

		result, err := m.callChat(spanCtx, fn, start, span, provider, began)
		elapsed := time.Since(began).Seconds()

		span.SetResponse(result.Response)
		span.SetUsage(result.Usage)
		span.EndWith(err)

		m.metrics.RecordDuration(ctx, OpChat, provider, start.Model, elapsed, errorKind(err))
		if err == nil {
			m.metrics.RecordUsage(ctx, OpChat, provider, start.Model, result.Usage)
		}

		m.logCompletion(OpChat, start.Model, elapsed, err)
		return result, err
	}
}

func (m *Middleware) callChat(ctx context.Context, fn ChatFunc, start ChatStart, span *Span, provider string, began time.Time) (result ChatResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			perr := &panicError{value: r}
			span.EndWith(perr)
			m.metrics.RecordDuration(ctx, OpChat, provider, start.Model,
				time.Since(began).Seconds(), perr.Kind())
			panic(r)
		}
	}()
	return fn(ctx, start)
}

// WrapTool wraps a tool execution with an "execute_tool {tool}" internal
// span nested under the current span, plus a duration metric. String
// results are captured per the tool-results policy.
func (m *Middleware) WrapTool(fn ToolFunc) ToolFunc {
	return func(ctx context.Context, start ToolStart) (any, error) {
		spanCtx, span := m.recorder.StartTool(ctx, start)
		began := time.Now()

		result, err := m.callTool(spanCtx, fn, start, span, began)
		elapsed := time.Since(began).Seconds()

		if s, ok := result.(string); ok && err == nil {
			span.SetResult(s)
		}
		span.EndWith(err)

		m.metrics.RecordDuration(ctx, OpExecuteTool, "", "", elapsed, errorKind(err))

		m.logCompletion(OpExecuteTool, start.Name, elapsed, err)
		return result, err
	}
}

func (m *Middleware) callTool(ctx context.Context, fn ToolFunc, start ToolStart, span *Span, began time.Time) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			perr := &panicError{value: r}
			span.EndWith(perr)
			m.metrics.RecordDuration(ctx, OpExecuteTool, "", "",
				time.Since(began).Seconds(), perr.Kind())
			panic(r)
		}
	}()
	return fn(ctx, start)
}

// WrapMessage wraps end-to-end processing of one channel message with the
// outermost span and a duration metric.
func (m *Middleware) WrapMessage(fn MessageFunc) MessageFunc {
	return func(ctx context.Context, start MessageStart) (any, error) {
		spanCtx, span := m.recorder.StartMessage(ctx, start)
		began := time.Now()

		result, err := m.callMessage(spanCtx, fn, start, span, began)
		elapsed := time.Since(began).Seconds()

		span.EndWith(err)
		m.metrics.RecordDuration(ctx, OpProcessMessage, "", "", elapsed, errorKind(err))

		m.logCompletion(OpProcessMessage, start.System, elapsed, err)
		return result, err
	}
}

func (m *Middleware) callMessage(ctx context.Context, fn MessageFunc, start MessageStart, span *Span, began time.Time) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			perr := &panicError{value: r}
			span.EndWith(perr)
			m.metrics.RecordDuration(ctx, OpProcessMessage, "", "",
				time.Since(began).Seconds(), perr.Kind())
			panic(r)
		}
	}()
	return fn(ctx, start)
}

func (m *Middleware) logCompletion(op, name string, seconds float64, err error) {
	log := m.logger.WithOperation(op)
	fields := []Field{
		F("name", name),
		F("duration_ms", seconds*1000),
	}
	if err != nil {
		fields = append(fields, F("error", err.Error()))
		log.Debug("operation failed", fields...)
		return
	}
	log.Debug("operation completed", fields...)
}

// panicError adapts a recovered panic to an error with a stable kind.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// Kind implements Kinder.
func (e *panicError) Kind() string {
	return "panic"
}
