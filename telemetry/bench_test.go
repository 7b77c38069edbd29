package telemetry

import (
	"context"
	"testing"
)

// Disabled-mode overhead is the cost every uninstrumented deployment
// pays, so it is the one worth watching.

func BenchmarkDisabledChatSpan(b *testing.B) {
	p := newDisabled(Config{}, noopLogger{})
	ctx := context.Background()
	start := ChatStart{Model: "anthropic/claude-sonnet-4"}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, span := p.Recorder().StartChat(ctx, start)
		span.SetUsage(Usage{InputTokens: 100, OutputTokens: 20})
		span.End()
	}
}

func BenchmarkDisabledMiddleware(b *testing.B) {
	p := newDisabled(Config{}, noopLogger{})
	ctx := context.Background()
	fn := p.Middleware().WrapChat(func(ctx context.Context, start ChatStart) (ChatResult, error) {
		return ChatResult{}, nil
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = fn(ctx, ChatStart{Model: "openai/gpt-4o"})
	}
}

func BenchmarkDisabledMetrics(b *testing.B) {
	p := newDisabled(Config{}, noopLogger{})
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Metrics().RecordDuration(ctx, OpChat, "openai", "openai/gpt-4o", 0.5, "")
	}
}
