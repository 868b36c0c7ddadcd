// Package tokens estimates token counts for providers that do not report
// usage in-band. It resolves a model-specific tiktoken encoding when one is
// known and falls back to a character-length heuristic otherwise.
package tokens

import (
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const fallbackEncoding = "cl100k_base"

// modelEncodings maps model name prefixes to tiktoken encoding profiles.
// Longest matching prefix wins.
var modelEncodings = map[string]string{
	"gpt-4o":                 "o200k_base",
	"gpt-4.1":                "o200k_base",
	"o1":                     "o200k_base",
	"o3":                     "o200k_base",
	"gpt-4":                  "cl100k_base",
	"gpt-3.5-turbo":          "cl100k_base",
	"text-embedding-3-large": "cl100k_base",
	"text-embedding-3-small": "cl100k_base",
	"text-embedding-ada-002": "cl100k_base",
}

// newEncoding is a seam for tests; the tiktoken loader touches the network
// the first time an encoding is initialized.
var newEncoding = tiktoken.GetEncoding

// Estimator counts tokens with a cached per-encoding tokenizer. Safe for
// concurrent use.
type Estimator struct {
	logger *slog.Logger

	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
	failed   map[string]bool
}

func NewEstimator(logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{
		logger:   logger,
		encoders: make(map[string]*tiktoken.Tiktoken),
		failed:   make(map[string]bool),
	}
}

// Estimate returns a token count for text under the given model. It never
// fails: when no tokenizer is resolvable the length heuristic stands in.
func (e *Estimator) Estimate(model, text string) int {
	if text == "" {
		return 0
	}
	if enc := e.encoder(EncodingForModel(model)); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return HeuristicTokens(text)
}

func (e *Estimator) encoder(encoding string) *tiktoken.Tiktoken {
	e.mu.Lock()
	defer e.mu.Unlock()

	if enc, ok := e.encoders[encoding]; ok {
		return enc
	}
	if e.failed[encoding] {
		return nil
	}

	enc, err := newEncoding(encoding)
	if err != nil {
		// Remember the failure so a broken loader does not retry on the
		// request path.
		e.failed[encoding] = true
		e.logger.Warn("tokenizer init failed, using length heuristic", "encoding", encoding, "error", err)
		return nil
	}
	e.encoders[encoding] = enc
	return enc
}

// EncodingForModel resolves the tiktoken encoding profile for a model name,
// falling back to the generic byte-pair profile for unknown models.
func EncodingForModel(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))

	best := ""
	encoding := fallbackEncoding
	for prefix, enc := range modelEncodings {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
			encoding = enc
		}
	}
	return encoding
}

// HeuristicTokens approximates a token count as ceil(characters/4), the
// conventional rough average of four characters per token for English text.
// Characters are counted as runes so multi-byte text is not overestimated.
func HeuristicTokens(text string) int {
	if text == "" {
		return 0
	}
	return (utf8.RuneCountInString(text) + 3) / 4
}
