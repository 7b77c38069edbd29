package telemetry

import (
	"fmt"
	"sync"
	"testing"
)

func TestCardinalityLimiterAdmitsUpToLimit(t *testing.T) {
	l := newCardinalityLimiter(3)

	for _, v := range []string{"a", "b", "c"} {
		if got := l.admit(v); got != v {
			t.Errorf("admit(%q) = %q", v, got)
		}
	}
	if got := l.admit("d"); got != overflowValue {
		t.Errorf("admit past limit = %q, want %q", got, overflowValue)
	}
	// Known values keep passing through after the limit is hit.
	if got := l.admit("b"); got != "b" {
		t.Errorf("admit known value = %q", got)
	}
	if l.size() != 3 {
		t.Errorf("size = %d", l.size())
	}
}

func TestCardinalityLimiterEmptyAndNil(t *testing.T) {
	var l *cardinalityLimiter
	if got := l.admit("x"); got != "x" {
		t.Errorf("nil limiter admit = %q", got)
	}

	l = newCardinalityLimiter(1)
	if got := l.admit(""); got != "" {
		t.Errorf("empty value admit = %q", got)
	}
	if l.size() != 0 {
		t.Errorf("empty value should not occupy a slot, size = %d", l.size())
	}
}

func TestCardinalityLimiterConcurrent(t *testing.T) {
	l := newCardinalityLimiter(50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				l.admit(fmt.Sprintf("model-%d-%d", i, j))
			}
		}(i)
	}
	wg.Wait()

	if l.size() > 50 {
		t.Errorf("size = %d, limit breached", l.size())
	}
}
