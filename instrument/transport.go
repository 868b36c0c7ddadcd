// Package instrument wraps outbound HTTP traffic to LLM providers with
// telemetry. The transport never alters what the caller sends or receives:
// requests pass through unmodified, response bytes are delivered exactly as
// the upstream produced them, and upstream errors are re-returned unchanged.
// Observation rides alongside via a span, call metrics, and an optional
// usage record sink.
package instrument

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/llmmeter/llmmeter/pricing"
	"github.com/llmmeter/llmmeter/providers"
	"github.com/llmmeter/llmmeter/stream"
	"github.com/llmmeter/llmmeter/telemetry"
	"github.com/llmmeter/llmmeter/tokens"
	"github.com/llmmeter/llmmeter/usagestore"
)

// Operation names recorded on spans and usage records.
const (
	OperationChat       = "chat"
	OperationEmbeddings = "embeddings"
	OperationImages     = "images"
	OperationAudio      = "audio"
)

const defaultMaxBodySize = 1 << 20

// Sink receives the usage record of each finished call. *usagestore.Writer
// satisfies it directly.
type Sink interface {
	Enqueue(record *usagestore.Record) bool
}

// Transport is an http.RoundTripper that instruments calls to known LLM
// provider hosts. Requests to hosts it does not recognize pass through
// untouched.
type Transport struct {
	base        http.RoundTripper
	registry    *providers.Registry
	provider    providers.Provider
	recorder    *telemetry.Recorder
	calculator  *pricing.Calculator
	estimator   *tokens.Estimator
	sink        Sink
	logger      *slog.Logger
	maxBodySize int64
}

// TransportOption customizes a Transport.
type TransportOption func(*Transport)

// WithBaseTransport sets the underlying round tripper. Defaults to
// http.DefaultTransport.
func WithBaseTransport(base http.RoundTripper) TransportOption {
	return func(t *Transport) {
		if base != nil {
			t.base = base
		}
	}
}

// WithRegistry replaces the provider registry used for host detection.
func WithRegistry(registry *providers.Registry) TransportOption {
	return func(t *Transport) {
		if registry != nil {
			t.registry = registry
		}
	}
}

// WithProvider pins the transport to one provider, skipping host detection.
// Useful behind gateways and proxies where the host gives nothing away.
func WithProvider(provider providers.Provider) TransportOption {
	return func(t *Transport) { t.provider = provider }
}

// WithRecorder sets the telemetry recorder.
func WithRecorder(recorder *telemetry.Recorder) TransportOption {
	return func(t *Transport) {
		if recorder != nil {
			t.recorder = recorder
		}
	}
}

// WithCalculator enables cost attribution. Without it every call records a
// zero cost.
func WithCalculator(calculator *pricing.Calculator) TransportOption {
	return func(t *Transport) { t.calculator = calculator }
}

// WithEstimator enables token estimation for streamed responses whose final
// chunk carries no usage block.
func WithEstimator(estimator *tokens.Estimator) TransportOption {
	return func(t *Transport) { t.estimator = estimator }
}

// WithSink forwards each finished call as a usage record.
func WithSink(sink Sink) TransportOption {
	return func(t *Transport) { t.sink = sink }
}

// WithLogger sets the logger for degraded-path warnings.
func WithLogger(logger *slog.Logger) TransportOption {
	return func(t *Transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMaxBodySize caps how many response bytes are buffered for usage
// parsing. Larger non-streaming bodies are passed through uninspected.
func WithMaxBodySize(limit int64) TransportOption {
	return func(t *Transport) {
		if limit > 0 {
			t.maxBodySize = limit
		}
	}
}

func NewTransport(opts ...TransportOption) *Transport {
	t := &Transport{
		base:        http.DefaultTransport,
		registry:    providers.DefaultRegistry(),
		logger:      slog.Default(),
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.recorder == nil {
		t.recorder = telemetry.NewRecorder(t.logger)
	}
	// The HTTP leg gets its own child span under the llm call span, and
	// otelhttp handles trace context injection on the outbound request.
	t.base = otelhttp.NewTransport(
		t.base,
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return "HTTP " + normalizedMethod(req.Method) + " " + OperationForPath(req.URL.Path)
		}),
	)
	return t
}

func normalizedMethod(method string) string {
	method = strings.TrimSpace(method)
	if method == "" {
		return "UNKNOWN"
	}
	return method
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	provider := t.provider
	if provider == nil {
		detected, ok := t.registry.DetectByHost(req.URL.Host)
		if !ok {
			return t.base.RoundTrip(req)
		}
		provider = detected
	}
	operation := OperationForPath(req.URL.Path)

	ctx, call := t.recorder.StartCall(req.Context(), provider.Name(), operation)
	req = req.Clone(ctx)

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		result := telemetry.CallResult{Err: err}
		call.End(result)
		t.emit(provider.Name(), operation, result, time.Since(start))
		return resp, err
	}

	if stream.IsEventStream(resp.Header) {
		t.observeStream(call, provider, operation, resp, start)
		return resp, nil
	}
	t.observeResponse(call, provider, operation, resp, start)
	return resp, nil
}

// observeStream swaps the response body for a tee that folds chunks into a
// summary while the caller drains the stream. Usage and cost are attributed
// only when the stream reaches EOF; a stream cut short by an error or an
// early Close ends the call without them, since partial counts are not a
// completed response.
func (t *Transport) observeStream(call *telemetry.Call, provider providers.Provider, operation string, resp *http.Response, start time.Time) {
	var once sync.Once
	finish := func(summary stream.Summary, readErr error, complete bool) {
		once.Do(func() {
			result := telemetry.CallResult{
				Model:        summary.Model,
				ResponseID:   summary.ResponseID,
				Streaming:    true,
				StreamChunks: summary.Chunks,
				StatusCode:   resp.StatusCode,
				Err:          readErr,
			}
			if complete {
				completion := summary.CompletionTokens
				if completion == 0 && t.estimator != nil && summary.Text != "" {
					completion = t.estimator.Estimate(summary.Model, summary.Text)
				}
				result.FinishReason = summary.FinishReason
				result.InputTokens = summary.PromptTokens
				result.OutputTokens = completion
				result.CostUSD = t.cost(operation, summary.Model, summary.PromptTokens, completion)
			}
			call.End(result)
			t.emit(provider.Name(), operation, result, time.Since(start))
		})
	}

	reader := stream.NewReader(resp.Body, provider, func(summary stream.Summary) {
		finish(summary, nil, true)
	}, t.logger)
	resp.Body = &streamBody{reader: reader, finish: finish}
}

// observeResponse buffers a non-streaming body for parsing, then restores it
// so the caller reads exactly what the upstream sent. Oversized bodies skip
// parsing entirely.
func (t *Transport) observeResponse(call *telemetry.Call, provider providers.Provider, operation string, resp *http.Response, start time.Time) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodySize+1))
	if err != nil {
		resp.Body = io.NopCloser(bytes.NewReader(body))
		result := telemetry.CallResult{StatusCode: resp.StatusCode, Err: err}
		call.End(result)
		t.emit(provider.Name(), operation, result, time.Since(start))
		return
	}

	if int64(len(body)) > t.maxBodySize {
		resp.Body = spillBody{
			Reader: io.MultiReader(bytes.NewReader(body), resp.Body),
			Closer: resp.Body,
		}
		result := telemetry.CallResult{StatusCode: resp.StatusCode}
		call.End(result)
		t.emit(provider.Name(), operation, result, time.Since(start))
		return
	}

	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	data, parseErr := provider.ParseResponse(resp.StatusCode, resp.Header, body)
	if parseErr != nil || data == nil {
		if parseErr != nil {
			t.logger.Warn("response inspection failed", "provider", provider.Name(), "error", parseErr)
		}
		result := telemetry.CallResult{StatusCode: resp.StatusCode}
		call.End(result)
		t.emit(provider.Name(), operation, result, time.Since(start))
		return
	}

	result := telemetry.CallResult{
		Model:        data.Model,
		ResponseID:   data.ResponseID,
		FinishReason: data.FinishReason,
		InputTokens:  data.InputTokens,
		OutputTokens: data.OutputTokens,
		TotalTokens:  data.TotalTokens,
		CostUSD:      t.cost(operation, data.Model, data.InputTokens, data.OutputTokens),
		StatusCode:   resp.StatusCode,
	}
	call.End(result)
	t.emit(provider.Name(), operation, result, time.Since(start))
}

func (t *Transport) cost(operation, model string, inputTokens, outputTokens int) float64 {
	if t.calculator == nil || model == "" {
		return 0
	}
	return pricing.CostOrZero(t.calculator.Cost(pricing.Usage{
		Kind:             kindForOperation(operation),
		Model:            model,
		PromptTokens:     inputTokens,
		CompletionTokens: outputTokens,
	}))
}

func (t *Transport) emit(provider, operation string, result telemetry.CallResult, latency time.Duration) {
	if t.sink == nil {
		return
	}
	total := result.TotalTokens
	if total == 0 {
		total = result.InputTokens + result.OutputTokens
	}
	t.sink.Enqueue(&usagestore.Record{
		Provider:     provider,
		Model:        result.Model,
		Operation:    operation,
		InputTokens:  result.InputTokens,
		OutputTokens: result.OutputTokens,
		TotalTokens:  total,
		Streaming:    result.Streaming,
		FinishReason: result.FinishReason,
		StatusCode:   result.StatusCode,
		LatencyMS:    latency.Milliseconds(),
		CostUSD:      result.CostUSD,
	})
}

// streamBody delivers stream bytes to the caller and guarantees the call
// ends even when the stream is abandoned before EOF. It remembers a non-EOF
// read error so the close path can surface it on the span.
type streamBody struct {
	reader  *stream.Reader
	finish  func(summary stream.Summary, readErr error, complete bool)
	readErr error
}

func (b *streamBody) Read(p []byte) (int, error) {
	n, err := b.reader.Read(p)
	if err != nil && err != io.EOF {
		b.readErr = err
	}
	return n, err
}

func (b *streamBody) Close() error {
	err := b.reader.Close()
	b.finish(b.reader.Summary(), b.readErr, false)
	return err
}

// spillBody chains buffered bytes back in front of an unread remainder.
type spillBody struct {
	io.Reader
	io.Closer
}

// OperationForPath classifies an API path into an operation name. Unknown
// paths default to chat, the overwhelmingly common case.
func OperationForPath(path string) string {
	path = strings.ToLower(strings.TrimSuffix(path, "/"))
	switch {
	case strings.HasSuffix(path, "/embeddings"), strings.HasSuffix(path, "/embed"):
		return OperationEmbeddings
	case strings.HasSuffix(path, "/images/generations"),
		strings.HasSuffix(path, "/images/edits"),
		strings.HasSuffix(path, "/images/variations"):
		return OperationImages
	case strings.HasSuffix(path, "/audio/speech"):
		return OperationAudio
	default:
		return OperationChat
	}
}

func kindForOperation(operation string) pricing.Kind {
	switch operation {
	case OperationEmbeddings:
		return pricing.KindEmbeddings
	case OperationImages:
		return pricing.KindImages
	case OperationAudio:
		return pricing.KindAudio
	default:
		return pricing.KindChat
	}
}
