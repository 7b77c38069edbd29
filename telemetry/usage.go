package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Usage holds token accounting reported by a model provider.
type Usage struct {
	// InputTokens is the fresh (non-cached) input token count.
	InputTokens int64

	// OutputTokens is the generated token count.
	OutputTokens int64

	// CacheReadInputTokens and CacheCreationInputTokens are reported
	// separately by providers with prompt caching (Anthropic).
	CacheReadInputTokens     int64
	CacheCreationInputTokens int64

	// TotalTokens is optional; zero means not reported.
	TotalTokens int64
}

// CanonicalInput returns the canonical input token count: fresh input plus
// all cache-read and cache-creation tokens. This sum, not the raw field, is
// what spans and metrics record.
func (u Usage) CanonicalInput() int64 {
	return u.InputTokens + u.CacheReadInputTokens + u.CacheCreationInputTokens
}

// IsZero reports whether no usage was reported at all.
func (u Usage) IsZero() bool {
	return u == Usage{}
}

// providerAliases maps model-string prefixes to semantic convention
// provider names.
var providerAliases = map[string]string{
	"bedrock":   "aws.bedrock",
	"vertex_ai": "gcp.vertex_ai",
	"gemini":    "gcp.gemini",
}

// ProviderFromModel derives a provider name from a "provider/model" string.
// Unknown shapes yield "unknown".
func ProviderFromModel(model string) string {
	prefix, _, ok := strings.Cut(model, "/")
	if !ok || prefix == "" {
		return "unknown"
	}
	if mapped, ok := providerAliases[prefix]; ok {
		return mapped
	}
	return prefix
}

// Kinder lets application errors report a stable kind for the error.type
// attribute. Errors without a kind fall back to their Go type name.
type Kinder interface {
	Kind() string
}

// errorKindOther is the fallback error.type value for errors whose type
// would be unbounded or meaningless (plain errors.New strings).
const errorKindOther = "_OTHER"

// errorKind derives the error.type attribute value from err.
func errorKind(err error) string {
	if err == nil {
		return ""
	}

	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}

	switch {
	case errors.Is(err, context.Canceled):
		return "context.Canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "context.DeadlineExceeded"
	}

	kind := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	switch kind {
	case "errors.errorString", "errors.joinError", "fmt.wrapError":
		return errorKindOther
	}
	return kind
}
