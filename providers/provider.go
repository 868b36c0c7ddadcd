// Package providers normalizes vendor-specific response and chunk shapes
// into the records the cost and aggregation core operates on. Vendor shape
// sniffing happens here, once, at the instrumentation boundary.
package providers

import (
	"net/http"

	"github.com/llmmeter/llmmeter/stream"
)

// CallData is the normalized outcome of one non-streaming provider response.
type CallData struct {
	StatusCode   int
	Model        string
	ResponseID   string
	FinishReason string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Defaults captures the hard-coded values a provider applies to request
// parameters the caller left unset. The values differ across vendors and are
// preserved verbatim rather than unified; they are not guaranteed equivalent
// to the vendor's own server-side defaults.
type Defaults struct {
	Temperature float64
	TopP        float64
}

type Provider interface {
	Name() string
	// ParseResponse extracts normalized call data from a complete response
	// body. Unparseable bodies yield best-effort partial data, not errors.
	ParseResponse(statusCode int, headers http.Header, body []byte) (*CallData, error)
	// NormalizeChunk translates one SSE event block (or raw JSON chunk) into
	// normalized stream events. Keep-alive and [DONE] sentinels yield no
	// events; a malformed data payload yields an error the caller logs.
	NormalizeChunk(chunk []byte) ([]stream.Event, error)
	Defaults() Defaults
}
