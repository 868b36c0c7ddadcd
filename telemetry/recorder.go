package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// CallResult is the normalized outcome of one instrumented call, streaming
// or not.
type CallResult struct {
	Provider     string
	Model        string
	Operation    string
	ResponseID   string
	FinishReason string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	CostUSD      float64
	Streaming    bool
	StreamChunks int
	StatusCode   int
	Err          error
}

// Recorder creates one span per instrumented call and emits call metrics.
type Recorder struct {
	tracer  oteltrace.Tracer
	metrics *Metrics
	logger  *slog.Logger
}

// RecorderOption customizes a Recorder.
type RecorderOption func(*recorderOptions)

type recorderOptions struct {
	tracerProvider oteltrace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp oteltrace.TracerProvider) RecorderOption {
	return func(o *recorderOptions) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) RecorderOption {
	return func(o *recorderOptions) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

func NewRecorder(logger *slog.Logger, opts ...RecorderOption) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}

	options := recorderOptions{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &Recorder{
		tracer:  options.tracerProvider.Tracer(instrumentationName),
		metrics: NewMetrics(options.meterProvider.Meter(instrumentationName), logger),
		logger:  logger,
	}
}

// StartCall opens the span for one provider call. The returned context
// carries the span so the outbound request propagates it.
func (r *Recorder) StartCall(ctx context.Context, provider, operation string) (context.Context, *Call) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := r.tracer.Start(
		ctx,
		operation+" "+provider,
		oteltrace.WithSpanKind(oteltrace.SpanKindClient),
		oteltrace.WithAttributes(
			AttrProvider.String(provider),
			AttrOperation.String(operation),
		),
	)

	return ctx, &Call{
		recorder:  r,
		span:      span,
		ctx:       ctx,
		provider:  provider,
		operation: operation,
		start:     time.Now(),
	}
}

// Call is one in-flight instrumented call. End must be called exactly once;
// later calls are ignored.
type Call struct {
	recorder  *Recorder
	span      oteltrace.Span
	ctx       context.Context
	provider  string
	operation string
	start     time.Time
	ended     bool
}

// End records the call outcome on the span, closes it, and emits metrics.
func (c *Call) End(result CallResult) {
	if c == nil || c.ended {
		return
	}
	c.ended = true

	result.Provider = c.provider
	result.Operation = c.operation
	if result.TotalTokens == 0 {
		result.TotalTokens = result.InputTokens + result.OutputTokens
	}

	attrs := make([]attribute.KeyValue, 0, 10)
	if result.Model != "" {
		attrs = append(attrs, AttrModel.String(result.Model))
	}
	if result.ResponseID != "" {
		attrs = append(attrs, AttrResponseID.String(result.ResponseID))
	}
	if result.FinishReason != "" {
		attrs = append(attrs, AttrFinishReason.String(result.FinishReason))
	}
	if result.TotalTokens > 0 {
		attrs = append(attrs,
			AttrInputTokens.Int(result.InputTokens),
			AttrOutputTokens.Int(result.OutputTokens),
			AttrTotalTokens.Int(result.TotalTokens),
		)
	}
	if result.CostUSD > 0 {
		attrs = append(attrs, AttrCostUSD.Float64(result.CostUSD))
	}
	if result.Streaming {
		attrs = append(attrs, AttrStream.Bool(true), AttrStreamChunks.Int(result.StreamChunks))
	}
	if result.StatusCode != 0 {
		attrs = append(attrs, AttrStatusCode.Int(result.StatusCode))
	}
	c.span.SetAttributes(attrs...)

	switch {
	case result.Err != nil:
		c.span.RecordError(result.Err)
		c.span.SetStatus(codes.Error, result.Err.Error())
	case result.StatusCode >= 400:
		c.span.SetStatus(codes.Error, "upstream error response")
	default:
		c.span.SetStatus(codes.Ok, "")
	}
	c.span.End()

	c.recorder.metrics.Record(c.ctx, result, time.Since(c.start))
}
