package health

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jonwraymond/agentlens/telemetry/exporters"
)

// ExportPipeline is the view of an export path the pipeline checker
// needs. *exporters.CircuitExporter satisfies it.
type ExportPipeline interface {
	State() exporters.State
	Dropped() int64
	ExportFailures() int64
}

// PipelineChecker reports the health of one export path from its
// circuit breaker: closed is healthy, half-open (or closed with prior
// drops) is degraded, open is unhealthy.
type PipelineChecker struct {
	name     string
	pipeline ExportPipeline

	lastDropped atomic.Int64
}

// NewPipelineChecker creates a checker for one export path. A nil
// pipeline (circuit breaking disabled, or telemetry disabled) always
// reports healthy.
func NewPipelineChecker(name string, pipeline ExportPipeline) *PipelineChecker {
	return &PipelineChecker{name: name, pipeline: pipeline}
}

// Name returns the checker name.
func (c *PipelineChecker) Name() string { return c.name }

// Check inspects the circuit breaker state and drop counters.
func (c *PipelineChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	if c.pipeline == nil {
		return Healthy("export path not circuit-protected")
	}

	state := c.pipeline.State()
	dropped := c.pipeline.Dropped()
	failures := c.pipeline.ExportFailures()

	details := map[string]any{
		"circuit_state":   state.String(),
		"dropped":         dropped,
		"export_failures": failures,
	}

	newDrops := dropped - c.lastDropped.Swap(dropped)

	switch state {
	case exporters.StateOpen:
		return Unhealthy(
			fmt.Sprintf("export circuit open, %d spans dropped", dropped),
			nil,
		).WithDetails(details)
	case exporters.StateHalfOpen:
		return Degraded("export circuit probing recovery").WithDetails(details)
	default:
		if newDrops > 0 {
			return Degraded(
				fmt.Sprintf("recovered, %d spans dropped since last check", newDrops),
			).WithDetails(details)
		}
		return Healthy("exporting normally").WithDetails(details)
	}
}
