package tokens

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/pkoukk/tiktoken-go"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEncodingForModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		model string
		want  string
	}{
		{name: "gpt-4o", model: "gpt-4o", want: "o200k_base"},
		{name: "gpt-4o variant prefers longest prefix", model: "gpt-4o-mini-2024-07-18", want: "o200k_base"},
		{name: "gpt-4 base family", model: "gpt-4-turbo", want: "cl100k_base"},
		{name: "embeddings", model: "text-embedding-3-small", want: "cl100k_base"},
		{name: "case and whitespace normalized", model: "  GPT-4o  ", want: "o200k_base"},
		{name: "unknown model falls back", model: "claude-3-5-sonnet", want: "cl100k_base"},
		{name: "empty model falls back", model: "", want: "cl100k_base"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := EncodingForModel(tt.model); got != tt.want {
				t.Fatalf("EncodingForModel(%q) = %q, want %q", tt.model, got, tt.want)
			}
		})
	}
}

func TestHeuristicTokens(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "one byte rounds up", text: "a", want: 1},
		{name: "exact multiple", text: "abcdefgh", want: 2},
		{name: "rounds up", text: "abcdefghi", want: 3},
		{name: "longer text", text: strings.Repeat("x", 401), want: 101},
		{name: "multibyte counts runes not bytes", text: "こんにちは", want: 2},
		{name: "accented text", text: "héllo wörld", want: 3},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := HeuristicTokens(tt.text); got != tt.want {
				t.Fatalf("HeuristicTokens(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestEstimateFallsBackWhenEncodingInitFails(t *testing.T) {
	original := newEncoding
	newEncoding = func(string) (*tiktoken.Tiktoken, error) {
		return nil, errors.New("no encoding data available")
	}
	t.Cleanup(func() { newEncoding = original })

	estimator := NewEstimator(testLogger())

	text := strings.Repeat("hello ", 10)
	want := HeuristicTokens(text)
	if got := estimator.Estimate("gpt-4o", text); got != want {
		t.Fatalf("Estimate() = %d, want heuristic %d", got, want)
	}

	// Second call should hit the cached failure and still use the heuristic.
	if got := estimator.Estimate("gpt-4o", text); got != want {
		t.Fatalf("Estimate() second call = %d, want heuristic %d", got, want)
	}
}

func TestEstimateEmptyTextIsZero(t *testing.T) {
	t.Parallel()

	estimator := NewEstimator(testLogger())
	if got := estimator.Estimate("gpt-4o", ""); got != 0 {
		t.Fatalf("Estimate(empty) = %d, want 0", got)
	}
}
