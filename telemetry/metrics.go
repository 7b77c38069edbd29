package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric instrument names, per the GenAI semantic conventions.
const (
	MetricOperationDuration = "gen_ai.client.operation.duration"
	MetricTokenUsage        = "gen_ai.client.token.usage"
)

// durationBuckets spans roughly 10ms to 82s, doubling per bucket, so
// sub-second tool calls and long model generations land in distinct
// buckets.
var durationBuckets = []float64{
	0.01, 0.02, 0.04, 0.08, 0.16, 0.32, 0.64,
	1.28, 2.56, 5.12, 10.24, 20.48, 40.96, 81.92,
}

// tokenBuckets spans 1 to 1,048,576 tokens on a wider geometric
// progression matching the dynamic range of token counts.
var tokenBuckets = []float64{
	1, 4, 16, 64, 256, 1024, 4096, 16384, 65536, 262144, 1048576,
}

// Metrics records duration and token-usage histograms for agent
// operations. Attribute sets are restricted to the enumerated
// low-cardinality keys; free-form content never reaches a metric.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: recording is best-effort and never panics.
type Metrics struct {
	duration metric.Float64Histogram
	tokens   metric.Int64Histogram
	models   *cardinalityLimiter
	logger   Logger
}

// newMetrics creates the metric instruments on meter.
func newMetrics(meter metric.Meter, logger Logger) (*Metrics, error) {
	duration, err := meter.Float64Histogram(
		MetricOperationDuration,
		metric.WithDescription("Duration of GenAI client operations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		return nil, err
	}

	tokens, err := meter.Int64Histogram(
		MetricTokenUsage,
		metric.WithDescription("Number of tokens used in GenAI operations"),
		metric.WithUnit("{token}"),
		metric.WithExplicitBucketBoundaries(tokenBuckets...),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		duration: duration,
		tokens:   tokens,
		models:   newCardinalityLimiter(defaultModelLimit),
		logger:   logger,
	}, nil
}

// RecordDuration records one completed operation's duration in seconds.
// errKind is empty for successful operations.
func (m *Metrics) RecordDuration(ctx context.Context, op, provider, model string, seconds float64, errKind string) {
	if m == nil || m.duration == nil {
		return
	}
	guard(m.logger, "record_duration", func() error {
		attrs := m.baseAttrs(op, provider, model)
		if errKind != "" {
			attrs = append(attrs, attribute.String(AttrErrorType, errKind))
		}
		m.duration.Record(ctx, seconds, metric.WithAttributes(attrs...))
		return nil
	})
}

// RecordTokens records one token-usage observation of the given token type.
func (m *Metrics) RecordTokens(ctx context.Context, op, provider, model, tokenType string, count int64) {
	if m == nil || m.tokens == nil || count <= 0 {
		return
	}
	guard(m.logger, "record_tokens", func() error {
		attrs := append(m.baseAttrs(op, provider, model),
			attribute.String(AttrTokenType, tokenType),
		)
		m.tokens.Record(ctx, count, metric.WithAttributes(attrs...))
		return nil
	})
}

// RecordUsage records input and output token observations for one model
// invocation, plus a total observation when the provider reported one.
func (m *Metrics) RecordUsage(ctx context.Context, op, provider, model string, u Usage) {
	if m == nil || u.IsZero() {
		return
	}
	m.RecordTokens(ctx, op, provider, model, TokenTypeInput, u.CanonicalInput())
	m.RecordTokens(ctx, op, provider, model, TokenTypeOutput, u.OutputTokens)
	if u.TotalTokens > 0 {
		m.RecordTokens(ctx, op, provider, model, TokenTypeTotal, u.TotalTokens)
	}
}

func (m *Metrics) baseAttrs(op, provider, model string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrOperationName, op),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(providerAttrKey(), provider))
	}
	if model != "" {
		attrs = append(attrs, attribute.String(AttrRequestModel, m.models.admit(model)))
	}
	return attrs
}
