package telemetry

import "sync"

// defaultModelLimit bounds distinct model attribute values per process.
const defaultModelLimit = 100

// overflowValue replaces attribute values past the cardinality limit.
const overflowValue = "other"

// cardinalityLimiter bounds the set of distinct values for a metric
// attribute. Values past the limit collapse to "other" so a misbehaving
// caller cannot explode backend cardinality.
type cardinalityLimiter struct {
	limit int

	mu   sync.Mutex
	seen map[string]struct{}
}

func newCardinalityLimiter(limit int) *cardinalityLimiter {
	return &cardinalityLimiter{
		limit: limit,
		seen:  make(map[string]struct{}),
	}
}

// admit returns v if it is already known or there is room for it, and the
// overflow value otherwise.
func (l *cardinalityLimiter) admit(v string) string {
	if l == nil || v == "" {
		return v
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.seen[v]; ok {
		return v
	}
	if len(l.seen) >= l.limit {
		return overflowValue
	}
	l.seen[v] = struct{}{}
	return v
}

// size returns the current number of admitted values.
func (l *cardinalityLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.seen)
}
