package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the call-level instruments. A nil instrument (creation
// failed) is skipped at record time; metric trouble never affects the call.
type Metrics struct {
	calls        metric.Int64Counter
	inputTokens  metric.Int64Counter
	outputTokens metric.Int64Counter
	costUSD      metric.Float64Counter
	duration     metric.Float64Histogram
}

func NewMetrics(meter metric.Meter, logger *slog.Logger) *Metrics {
	metrics := &Metrics{}

	var err error
	metrics.calls, err = meter.Int64Counter(
		"llmmeter.calls_total",
		metric.WithDescription("Count of instrumented LLM API calls."),
	)
	warnMetricErr(logger, "llmmeter.calls_total", err)

	metrics.inputTokens, err = meter.Int64Counter(
		"llmmeter.tokens.input_total",
		metric.WithDescription("Total input/prompt tokens across instrumented calls."),
	)
	warnMetricErr(logger, "llmmeter.tokens.input_total", err)

	metrics.outputTokens, err = meter.Int64Counter(
		"llmmeter.tokens.output_total",
		metric.WithDescription("Total output/completion tokens across instrumented calls."),
	)
	warnMetricErr(logger, "llmmeter.tokens.output_total", err)

	metrics.costUSD, err = meter.Float64Counter(
		"llmmeter.cost_usd_total",
		metric.WithDescription("Estimated USD cost across instrumented calls."),
	)
	warnMetricErr(logger, "llmmeter.cost_usd_total", err)

	metrics.duration, err = meter.Float64Histogram(
		"llmmeter.call.duration_ms",
		metric.WithDescription("Wall-clock duration of instrumented calls in milliseconds."),
	)
	warnMetricErr(logger, "llmmeter.call.duration_ms", err)

	return metrics
}

func warnMetricErr(logger *slog.Logger, name string, err error) {
	if err != nil && logger != nil {
		logger.Warn("failed to create opentelemetry instrument", "metric", name, "error", err)
	}
}

// Record emits call metrics labeled by provider, model, and operation.
func (m *Metrics) Record(ctx context.Context, result CallResult, duration time.Duration) {
	if m == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := metric.WithAttributes(
		attribute.String("provider", result.Provider),
		attribute.String("model", result.Model),
		attribute.String("operation", result.Operation),
	)

	if m.calls != nil {
		m.calls.Add(ctx, 1, attrs)
	}
	if m.inputTokens != nil && result.InputTokens > 0 {
		m.inputTokens.Add(ctx, int64(result.InputTokens), attrs)
	}
	if m.outputTokens != nil && result.OutputTokens > 0 {
		m.outputTokens.Add(ctx, int64(result.OutputTokens), attrs)
	}
	if m.costUSD != nil && result.CostUSD > 0 {
		m.costUSD.Add(ctx, result.CostUSD, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}
