package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/agentlens/capture"
	"github.com/jonwraymond/agentlens/secret"
	"github.com/jonwraymond/agentlens/telemetry/exporters"
)

// Provider owns the process-wide telemetry lifecycle: the resource
// descriptor, the tracer and meter providers, and the export pipeline.
//
// Contract:
// - Concurrency: safe for concurrent use; read-only after Init except the
//   internal export buffers.
// - Errors: Init never fails; misconfiguration yields a disabled provider.
//   Shutdown is idempotent and bounded by Config.ShutdownTimeout.
type Provider struct {
	cfg     Config
	enabled bool
	logger  Logger

	res            *resource.Resource
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter

	policy     *capture.Policy
	recorder   *Recorder
	metrics    *Metrics
	middleware *Middleware

	circuit      *exporters.CircuitExporter
	promRegistry *promclient.Registry

	shutdownOnce sync.Once
	shutdownErr  error
}

// Init builds a Provider from cfg. It never fails: a disabled or invalid
// configuration, or a missing OTLP endpoint, yields a disabled provider
// whose tracer and meter are no-ops. Collector connections are established
// lazily; an unreachable endpoint surfaces only as debug-logged drops.
func Init(ctx context.Context, cfg Config) *Provider {
	cfg.FromEnv()
	cfg.SetDefaults()

	logger := NewLogger(cfg.LogLevel)

	if !cfg.Enabled {
		logger.Debug("telemetry disabled by configuration")
		return newDisabled(cfg, logger)
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("telemetry misconfigured, running disabled", F("error", err.Error()))
		return newDisabled(cfg, logger)
	}

	resolver := secret.NewResolver(secret.EnvProvider())
	headers := resolveValues(ctx, resolver, cfg.Headers, logger)
	resourceAttrs := resolveValues(ctx, resolver, cfg.ResourceAttributes, logger)

	res, err := newResource(ctx, cfg, resourceAttrs)
	if err != nil {
		logger.Warn("telemetry resource construction failed, running disabled", F("error", err.Error()))
		return newDisabled(cfg, logger)
	}

	opts := exporters.Options{
		Endpoint: cfg.Endpoint,
		Protocol: cfg.Protocol,
		Headers:  headers,
		Insecure: cfg.IsInsecure(),
		Interval: cfg.ExportInterval,
	}

	p := &Provider{
		cfg:    cfg,
		logger: logger,
		res:    res,
		policy: capture.NewPolicy(cfg.Capture),
	}

	p.initTraces(ctx, opts)
	p.initMetrics(ctx, opts)

	if p.tracerProvider == nil && p.meterProvider == nil {
		logger.Debug("no telemetry signal configured, running disabled")
		return newDisabled(cfg, logger)
	}
	if p.tracer == nil {
		p.tracer = noopTracer(cfg.ServiceName)
	}
	if p.meter == nil {
		p.meter = noopMeter(cfg.ServiceName)
	}

	p.enabled = true
	p.recorder = newRecorder(p.tracer, p.policy, logger)
	p.metrics = mustMetrics(p.meter, logger)
	p.middleware = newMiddleware(p.recorder, p.metrics, logger)

	logger.Info("telemetry initialized",
		F("service", cfg.ServiceName),
		F("trace_exporter", cfg.TraceExporter),
		F("metric_exporter", cfg.MetricExporter),
	)
	return p
}

func (p *Provider) initTraces(ctx context.Context, opts exporters.Options) {
	exporter, err := exporters.NewSpanExporter(ctx, p.cfg.TraceExporter, opts)
	if err != nil {
		p.logger.Debug("tracing disabled", F("error", err.Error()))
		return
	}

	if p.cfg.CircuitEnabled() && p.cfg.TraceExporter == "otlp" {
		p.circuit = exporters.NewCircuitExporter(exporter, exporters.CircuitConfig{
			MaxFailures:  p.cfg.Circuit.MaxFailures,
			ResetTimeout: p.cfg.Circuit.ResetTimeout,
			OnLog: func(msg string, keyvals ...any) {
				p.logger.Debug(msg, kvFields(keyvals)...)
			},
		})
		exporter = p.circuit
	}

	var sampler sdktrace.Sampler
	switch rate := *p.cfg.SampleRate; {
	case rate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case rate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(rate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(p.res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)

	p.tracerProvider = tp
	p.tracer = tp.Tracer(p.cfg.ServiceName)
}

func (p *Provider) initMetrics(ctx context.Context, opts exporters.Options) {
	if p.cfg.MetricExporter == "prometheus" {
		p.promRegistry = promclient.NewRegistry()
		opts.Registerer = p.promRegistry
	}

	reader, err := exporters.NewMetricReader(ctx, p.cfg.MetricExporter, opts)
	if err != nil {
		p.logger.Debug("metrics disabled", F("error", err.Error()))
		p.promRegistry = nil
		return
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(p.res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp)

	p.meterProvider = mp
	p.meter = mp.Meter(p.cfg.ServiceName)
}

// Enabled reports whether live telemetry is being produced.
func (p *Provider) Enabled() bool {
	return p != nil && p.enabled
}

// Tracer returns the configured tracer. Disabled providers return a no-op.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Meter returns the configured meter. Disabled providers return a no-op.
func (p *Provider) Meter() metric.Meter {
	return p.meter
}

// Logger returns the diagnostic logger.
func (p *Provider) Logger() Logger {
	return p.logger
}

// Recorder returns the span recorder.
func (p *Provider) Recorder() *Recorder {
	return p.recorder
}

// Metrics returns the metric recorder.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Middleware returns guarded wrappers for chat, tool, and message
// operations.
func (p *Provider) Middleware() *Middleware {
	return p.middleware
}

// Policy returns the capture policy, for registering redactors.
func (p *Provider) Policy() *capture.Policy {
	return p.policy
}

// Circuit returns the export circuit breaker, or nil when tracing runs
// without one.
func (p *Provider) Circuit() *exporters.CircuitExporter {
	return p.circuit
}

// PrometheusRegistry returns the registry backing the prometheus metric
// exporter, or nil for other exporters.
func (p *Provider) PrometheusRegistry() *promclient.Registry {
	return p.promRegistry
}

// Flush forces a flush of buffered spans and metrics.
func (p *Provider) Flush(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}

	var g errgroup.Group
	if p.tracerProvider != nil {
		g.Go(func() error { return p.tracerProvider.ForceFlush(ctx) })
	}
	if p.meterProvider != nil {
		g.Go(func() error { return p.meterProvider.ForceFlush(ctx) })
	}
	return g.Wait()
}

// Shutdown flushes buffered telemetry and releases resources, bounded by
// Config.ShutdownTimeout. A stalled exporter cannot hang shutdown past the
// deadline. Shutdown is idempotent.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		if !p.enabled {
			return
		}

		ctx, cancel := context.WithTimeout(ctx, p.cfg.ShutdownTimeout)
		defer cancel()

		var g errgroup.Group
		if p.tracerProvider != nil {
			g.Go(func() error {
				if err := p.tracerProvider.Shutdown(ctx); err != nil {
					return fmt.Errorf("tracer shutdown: %w", err)
				}
				return nil
			})
		}
		if p.meterProvider != nil {
			g.Go(func() error {
				if err := p.meterProvider.Shutdown(ctx); err != nil {
					return fmt.Errorf("meter shutdown: %w", err)
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				err = errors.Join(ErrShutdownTimeout, err)
			}
			p.shutdownErr = err
			p.logger.Debug("telemetry shutdown incomplete", F("error", err.Error()))
		}
	})
	return p.shutdownErr
}

func newResource(ctx context.Context, cfg Config, extra map[string]string) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", cfg.Environment))
	}
	for k, v := range extra {
		attrs = append(attrs, attribute.String(k, v))
	}

	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithAttributes(attrs...),
	)
}

// resolveValues expands ${VAR} references and secretref: values. Entries
// that fail to resolve are dropped with a warning rather than failing
// initialization.
func resolveValues(ctx context.Context, r *secret.Resolver, values map[string]string, logger Logger) map[string]string {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		resolved, err := r.ResolveValue(ctx, v)
		if err != nil {
			logger.Warn("dropping unresolvable telemetry config value",
				F("key", k),
				F("error", err.Error()),
			)
			continue
		}
		out[k] = resolved
	}
	return out
}

func kvFields(keyvals []any) []Field {
	fields := make([]Field, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		fields = append(fields, F(key, keyvals[i+1]))
	}
	return fields
}

// defaultProvider backs the process-wide accessor.
var defaultProvider atomic.Pointer[Provider]

// SetDefault installs p as the process-wide default provider.
func SetDefault(p *Provider) {
	defaultProvider.Store(p)
}

// Default returns the process-wide default provider. Before SetDefault it
// returns a disabled provider, so call sites never need a nil check.
func Default() *Provider {
	if p := defaultProvider.Load(); p != nil {
		return p
	}
	return fallbackProvider()
}

var fallbackProvider = sync.OnceValue(func() *Provider {
	return newDisabled(Config{}, noopLogger{})
})
