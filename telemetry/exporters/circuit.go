package exporters

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// State represents the circuit state of a CircuitExporter.
type State int

const (
	// StateClosed means exports flow to the wrapped exporter.
	StateClosed State = iota
	// StateOpen means exports are being shed.
	StateOpen
	// StateHalfOpen means one probe export is allowed through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Logf is a best-effort diagnostic logging hook. It must not panic.
type Logf func(msg string, keyvals ...any)

// CircuitConfig configures a CircuitExporter.
type CircuitConfig struct {
	// MaxFailures is the consecutive export failures before opening.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before a probe.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// OnLog receives diagnostic messages. Optional.
	OnLog Logf
}

// CircuitExporter wraps a span exporter with a circuit breaker so an
// unreachable collector cannot stall the batch pipeline. Failed and shed
// batches are dropped, not retried; drops are counted for diagnostic
// visibility.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Errors: ExportSpans never returns an error; failures become drops.
type CircuitExporter struct {
	exporter     sdktrace.SpanExporter
	maxFailures  int
	resetTimeout time.Duration
	log          Logf

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool

	dropped        atomic.Int64
	exportFailures atomic.Int64
}

// NewCircuitExporter wraps exporter with circuit breaking.
func NewCircuitExporter(exporter sdktrace.SpanExporter, cfg CircuitConfig) *CircuitExporter {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	log := cfg.OnLog
	if log == nil {
		log = func(string, ...any) {}
	}
	return &CircuitExporter{
		exporter:     exporter,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		log:          log,
		state:        StateClosed,
	}
}

// ExportSpans exports the batch unless the circuit is open. It always
// returns nil: export failures are terminal here and counted as drops.
func (e *CircuitExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if !e.allow() {
		e.dropped.Add(int64(len(spans)))
		return nil
	}

	err := e.exporter.ExportSpans(ctx, spans)
	e.observe(err)
	if err != nil {
		e.exportFailures.Add(1)
		e.dropped.Add(int64(len(spans)))
		e.log("span export failed", "error", err.Error(), "spans", len(spans))
	}
	return nil
}

// Shutdown shuts down the wrapped exporter.
func (e *CircuitExporter) Shutdown(ctx context.Context) error {
	return e.exporter.Shutdown(ctx)
}

func (e *CircuitExporter) allow() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(e.openedAt) >= e.resetTimeout {
			e.state = StateHalfOpen
			e.probing = true
			e.log("export circuit half-open, probing collector")
			return true
		}
		return false
	case StateHalfOpen:
		// One probe at a time.
		if e.probing {
			return false
		}
		e.probing = true
		return true
	default:
		return true
	}
}

func (e *CircuitExporter) observe(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateHalfOpen {
		e.probing = false
		if err != nil {
			e.state = StateOpen
			e.openedAt = time.Now()
			e.log("export circuit reopened", "reset_timeout", e.resetTimeout.String())
		} else {
			e.state = StateClosed
			e.failures = 0
			e.log("export circuit closed")
		}
		return
	}

	if err == nil {
		e.failures = 0
		return
	}

	e.failures++
	if e.failures >= e.maxFailures && e.state == StateClosed {
		e.state = StateOpen
		e.openedAt = time.Now()
		e.log("export circuit opened",
			"consecutive_failures", e.failures,
			"reset_timeout", e.resetTimeout.String(),
		)
	}
}

// State returns the current circuit state.
func (e *CircuitExporter) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateOpen && time.Since(e.openedAt) >= e.resetTimeout {
		return StateHalfOpen
	}
	return e.state
}

// Dropped returns the number of spans dropped by shedding or failed
// exports.
func (e *CircuitExporter) Dropped() int64 {
	return e.dropped.Load()
}

// ExportFailures returns the number of failed export attempts.
func (e *CircuitExporter) ExportFailures() int64 {
	return e.exportFailures.Load()
}

var _ sdktrace.SpanExporter = (*CircuitExporter)(nil)
