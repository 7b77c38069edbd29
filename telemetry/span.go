package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/agentlens/capture"
)

// Recorder starts spans for agent operations. Whatever span is current on
// the incoming context becomes the parent, so tool spans started during a
// model invocation nest under it.
//
// Contract:
// - Concurrency: safe for concurrent use; per-context nesting never mixes
//   concurrent operations.
// - Errors: all methods are best-effort; failures are debug-logged no-ops.
type Recorder struct {
	tracer trace.Tracer
	policy *capture.Policy
	logger Logger
}

// newRecorder creates a Recorder over the given tracer.
func newRecorder(tracer trace.Tracer, policy *capture.Policy, logger Logger) *Recorder {
	return &Recorder{tracer: tracer, policy: policy, logger: logger}
}

// ChatStart describes a model invocation about to begin.
type ChatStart struct {
	Model       string
	Provider    string // derived from Model when empty
	MaxTokens   int
	Temperature *float64
	ServerURL   string // model API base URL, recorded as server.address/port

	// Content below is attached only when the capture policy allows it.
	SystemInstructions string
	InputMessages      string // serialized by the caller
	InputMessageCount  int
	ToolDefinitions    string // serialized by the caller

	// Capture overrides the process capture configuration for this call.
	Capture capture.Override
}

// ToolStart describes a tool execution about to begin.
type ToolStart struct {
	Name   string
	Type   string // defaults to function
	CallID string

	Arguments string // attached only when the capture policy allows it

	Capture capture.Override
}

// MessageStart describes end-to-end processing of one channel message.
type MessageStart struct {
	System      string // messaging system, e.g. "slack"
	Operation   string // receive | send | process
	Destination string

	SenderID      string
	SessionKey    string
	MessageLength int
	HasMedia      bool
}

// Response carries model response metadata for SetResponse.
type Response struct {
	Model        string
	ID           string
	FinishReason string
	Output       string // assistant output, gated by the capture policy
}

// Status is a span's terminal status.
type Status int32

const (
	// StatusUnset means no terminal status was recorded yet.
	StatusUnset Status = iota
	// StatusOK marks successful completion.
	StatusOK
	// StatusError marks failed completion.
	StatusError
)

// StartChat starts a model-invocation span named "chat {model}" of kind
// client. The caller must close the returned span on every exit path,
// normally via EndWith or Middleware.WrapChat.
func (r *Recorder) StartChat(ctx context.Context, start ChatStart) (context.Context, *Span) {
	provider := start.Provider
	if provider == "" {
		provider = ProviderFromModel(start.Model)
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrOperationName, OpChat),
		attribute.String(providerAttrKey(), provider),
		attribute.String(AttrRequestModel, start.Model),
	}
	if start.MaxTokens > 0 {
		attrs = append(attrs, attribute.Int(AttrRequestMaxTokens, start.MaxTokens))
	}
	if start.Temperature != nil {
		attrs = append(attrs, attribute.Float64(AttrRequestTemperature, *start.Temperature))
	}
	if host, port := splitServerURL(start.ServerURL); host != "" {
		attrs = append(attrs, attribute.String(AttrServerAddress, host))
		if port > 0 {
			attrs = append(attrs, attribute.Int(AttrServerPort, port))
		}
	}

	ctx, span := r.start(ctx, OpChat+" "+start.Model, trace.SpanKindClient, attrs)
	s := r.wrap(span, start.Capture)

	s.captureContent(capture.SystemInstructions, AttrSystemInstructions, start.SystemInstructions)
	s.captureContent(capture.InputMessages, AttrInputMessages, start.InputMessages)
	if start.InputMessageCount > 0 {
		s.setRaw(attribute.Int(AttrInputMessagesLength, start.InputMessageCount))
	}
	// Tool definitions ride along with the request payload.
	s.captureContent(capture.ToolArguments, AttrToolDefinitions, start.ToolDefinitions)

	return ctx, s
}

// StartTool starts a tool-execution span named "execute_tool {tool}" of
// kind internal, nested under the current span on ctx.
func (r *Recorder) StartTool(ctx context.Context, start ToolStart) (context.Context, *Span) {
	toolType := start.Type
	if toolType == "" {
		toolType = ToolTypeFunction
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrOperationName, OpExecuteTool),
		attribute.String(AttrToolName, start.Name),
		attribute.String(AttrToolType, toolType),
	}
	if start.CallID != "" {
		attrs = append(attrs, attribute.String(AttrToolCallID, start.CallID))
	}

	ctx, span := r.start(ctx, OpExecuteTool+" "+start.Name, trace.SpanKindInternal, attrs)
	s := r.wrap(span, start.Capture)

	s.captureContent(capture.ToolArguments, AttrToolCallArguments, start.Arguments)

	return ctx, s
}

// StartMessage starts the outermost span for one channel message, named
// "{system} {operation}".
func (r *Recorder) StartMessage(ctx context.Context, start MessageStart) (context.Context, *Span) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrOperationName, OpProcessMessage),
		attribute.String(AttrMessagingSystem, start.System),
		attribute.String(AttrMessagingOperation, start.Operation),
	}
	if start.Destination != "" {
		attrs = append(attrs, attribute.String(AttrMessagingDestination, start.Destination))
	}
	if start.SenderID != "" {
		attrs = append(attrs, attribute.String(AttrAgentSenderID, start.SenderID))
	}
	if start.SessionKey != "" {
		attrs = append(attrs, attribute.String(AttrAgentSessionKey, start.SessionKey))
	}
	if start.MessageLength > 0 {
		attrs = append(attrs, attribute.Int(AttrAgentMessageLength, start.MessageLength))
	}
	if start.HasMedia {
		attrs = append(attrs, attribute.Bool(AttrAgentHasMedia, true))
	}

	ctx, span := r.start(ctx, start.System+" "+start.Operation, trace.SpanKindInternal, attrs)
	return ctx, r.wrap(span, nil)
}

func (r *Recorder) start(ctx context.Context, name string, kind trace.SpanKind, attrs []attribute.KeyValue) (context.Context, trace.Span) {
	outCtx, span := ctx, noopSpan(ctx)
	guard(r.logger, "start "+name, func() error {
		outCtx, span = r.tracer.Start(ctx, name,
			trace.WithSpanKind(kind),
			trace.WithAttributes(attrs...),
		)
		return nil
	})
	return outCtx, span
}

func (r *Recorder) wrap(span trace.Span, override capture.Override) *Span {
	return &Span{
		span:     span,
		policy:   r.policy,
		logger:   r.logger,
		override: override,
	}
}

// Span is a handle on one traced operation. All methods tolerate a nil
// receiver and never propagate instrumentation failures; End is idempotent.
type Span struct {
	span     trace.Span
	policy   *capture.Policy
	logger   Logger
	override capture.Override

	ended  atomic.Bool
	status atomic.Int32
}

// SetAttribute attaches one attribute. The key must belong to the attribute
// schema or use the agent. custom namespace; other keys are dropped with a
// debug log.
func (s *Span) SetAttribute(key string, value any) {
	if s == nil || s.span == nil {
		return
	}
	guard(s.logger, "set_attribute", func() error {
		if !ValidAttrKey(key) {
			return fmt.Errorf("attribute key %q outside schema and %s namespace", key, CustomAttrPrefix)
		}
		s.span.SetAttributes(anyAttr(key, value))
		return nil
	})
}

// SetUsage records token accounting. The canonical input token count is the
// sum of fresh input tokens and all cache-read and cache-creation tokens.
func (s *Span) SetUsage(u Usage) {
	if s == nil || s.span == nil || u.IsZero() {
		return
	}
	guard(s.logger, "set_usage", func() error {
		s.span.SetAttributes(
			attribute.Int64(AttrUsageInputTokens, u.CanonicalInput()),
			attribute.Int64(AttrUsageOutputTokens, u.OutputTokens),
		)
		return nil
	})
}

// SetResponse records model response metadata; output content is attached
// only when the capture policy allows output messages.
func (s *Span) SetResponse(resp Response) {
	if s == nil || s.span == nil {
		return
	}
	guard(s.logger, "set_response", func() error {
		if resp.Model != "" {
			s.span.SetAttributes(attribute.String(AttrResponseModel, resp.Model))
		}
		if resp.ID != "" {
			s.span.SetAttributes(attribute.String(AttrResponseID, resp.ID))
		}
		if resp.FinishReason != "" {
			s.span.SetAttributes(attribute.StringSlice(AttrResponseFinishReasons, []string{resp.FinishReason}))
		}
		return nil
	})
	s.captureContent(capture.OutputMessages, AttrOutputMessages, resp.Output)
}

// SetResult records a tool execution result, truncated to a bounded length
// and attached only when the capture policy allows tool results.
func (s *Span) SetResult(result string) {
	if s == nil || s.span == nil || result == "" {
		return
	}
	if !s.policy.Allows(capture.ToolResults, s.override) {
		return
	}
	guard(s.logger, "set_result", func() error {
		redacted, ok := s.policy.Redact(capture.ToolResults, result)
		if !ok {
			return fmt.Errorf("redaction failed for %s", capture.ToolResults)
		}
		s.span.SetAttributes(attribute.String(AttrToolCallResult, capture.TruncateResult(redacted)))
		return nil
	})
}

// RecordError records err as a span event with an error.type attribute.
// It does not close the span or change the application error.
func (s *Span) RecordError(err error) {
	if s == nil || s.span == nil || err == nil {
		return
	}
	guard(s.logger, "record_error", func() error {
		s.span.RecordError(err)
		s.span.SetAttributes(attribute.String(AttrErrorType, errorKind(err)))
		return nil
	})
}

// SetStatus sets the terminal status. Later End calls keep the first
// recorded status.
func (s *Span) SetStatus(status Status, description string) {
	if s == nil || s.span == nil {
		return
	}
	guard(s.logger, "set_status", func() error {
		switch status {
		case StatusOK:
			s.span.SetStatus(codes.Ok, "")
		case StatusError:
			s.span.SetStatus(codes.Error, description)
		default:
			return fmt.Errorf("unknown status %d", status)
		}
		s.status.Store(int32(status))
		return nil
	})
}

// End closes the span. A span with no recorded status is closed as ok.
// A second End is a no-op.
func (s *Span) End() {
	if s == nil || s.span == nil {
		return
	}
	if !s.ended.CompareAndSwap(false, true) {
		return
	}
	guard(s.logger, "end", func() error {
		if Status(s.status.Load()) == StatusUnset {
			s.span.SetStatus(codes.Ok, "")
		}
		s.span.End()
		return nil
	})
}

// EndWith closes the span with a terminal status derived from err: nil
// closes ok; non-nil records the error, sets status error and the
// error.type attribute. The caller still owns err and re-raises it.
func (s *Span) EndWith(err error) {
	if s == nil || s.span == nil {
		return
	}
	if err != nil {
		s.RecordError(err)
		s.SetStatus(StatusError, err.Error())
	} else if Status(s.status.Load()) == StatusUnset {
		s.SetStatus(StatusOK, "")
	}
	s.End()
}

// Ended reports whether the span was closed.
func (s *Span) Ended() bool {
	return s != nil && s.ended.Load()
}

func (s *Span) captureContent(cat capture.Category, key, content string) {
	if s == nil || s.span == nil || content == "" {
		return
	}
	if !s.policy.Allows(cat, s.override) {
		return
	}
	guard(s.logger, "capture "+string(cat), func() error {
		redacted, ok := s.policy.Redact(cat, content)
		if !ok {
			return fmt.Errorf("redaction failed for %s", cat)
		}
		s.span.SetAttributes(attribute.String(key, redacted))
		return nil
	})
}

func (s *Span) setRaw(attr attribute.KeyValue) {
	guard(s.logger, "set_attribute", func() error {
		s.span.SetAttributes(attr)
		return nil
	})
}

// anyAttr converts a dynamically typed value to an attribute.
func anyAttr(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}

// splitServerURL extracts host and port from a model API base URL.
func splitServerURL(raw string) (string, int) {
	if raw == "" {
		return "", 0
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "", 0
	}
	port := 0
	if p := u.Port(); p != "" {
		port, _ = strconv.Atoi(p)
	}
	return u.Hostname(), port
}

var noopTracerInstance = tracenoop.NewTracerProvider().Tracer("noop")

// noopSpan returns a recording-free span for failure fallbacks.
func noopSpan(ctx context.Context) trace.Span {
	_, span := noopTracerInstance.Start(ctx, "noop")
	return span
}
