package pricing

import (
	"errors"
	"math"
	"testing"
)

func testTable() Table {
	return Table{
		Chat: map[string]ChatPrice{
			"gpt-4o":      {PromptPer1K: 0.005, CompletionPer1K: 0.015},
			"gpt-4o-mini": {PromptPer1K: 0.00015, CompletionPer1K: 0.0006},
		},
		Embeddings: map[string]float64{
			"text-embedding-3-small": 0.00002,
		},
		Images: map[string]ImagePrice{
			"dall-e-3": {
				"standard": {"1024x1024": 0.04, "1792x1024": 0.08},
				"hd":       {"1024x1024": 0.08},
			},
		},
		Audio: map[string]float64{
			"tts-1": 0.015,
		},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestChatCost(t *testing.T) {
	t.Parallel()

	calculator := NewCalculator(testTable())

	tests := []struct {
		name             string
		model            string
		promptTokens     int
		completionTokens int
		want             float64
		wantErr          error
	}{
		{
			name:             "exact per-1k formula",
			model:            "gpt-4o",
			promptTokens:     1000,
			completionTokens: 500,
			want:             1000.0/1000*0.005 + 500.0/1000*0.015,
		},
		{
			name:             "fractional token counts",
			model:            "gpt-4o-mini",
			promptTokens:     123,
			completionTokens: 7,
			want:             123.0/1000*0.00015 + 7.0/1000*0.0006,
		},
		{
			name:             "zero usage is free",
			model:            "gpt-4o",
			promptTokens:     0,
			completionTokens: 0,
			want:             0,
		},
		{
			name:             "unknown model",
			model:            "gpt-99",
			promptTokens:     5000,
			completionTokens: 5000,
			want:             0,
			wantErr:          ErrModelNotPriced,
		},
		{
			name:             "surrounding whitespace is trimmed",
			model:            "  gpt-4o  ",
			promptTokens:     1000,
			completionTokens: 0,
			want:             0.005,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := calculator.ChatCost(tt.model, tt.promptTokens, tt.completionTokens)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ChatCost() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("ChatCost() error: %v", err)
			}
			if !almostEqual(got, tt.want) {
				t.Fatalf("ChatCost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmbeddingCost(t *testing.T) {
	t.Parallel()

	calculator := NewCalculator(testTable())

	got, err := calculator.EmbeddingCost("text-embedding-3-small", 8000)
	if err != nil {
		t.Fatalf("EmbeddingCost() error: %v", err)
	}
	if want := 8000.0 / 1000 * 0.00002; !almostEqual(got, want) {
		t.Fatalf("EmbeddingCost() = %v, want %v", got, want)
	}

	got, err = calculator.EmbeddingCost("text-embedding-unknown", 8000)
	if !errors.Is(err, ErrModelNotPriced) {
		t.Fatalf("EmbeddingCost() error = %v, want ErrModelNotPriced", err)
	}
	if got != 0 {
		t.Fatalf("EmbeddingCost() = %v, want 0 on lookup failure", got)
	}
}

func TestImageCostScalesLinearly(t *testing.T) {
	t.Parallel()

	calculator := NewCalculator(testTable())

	single, err := calculator.ImageCost("dall-e-3", "standard", "1024x1024", 1)
	if err != nil {
		t.Fatalf("ImageCost() error: %v", err)
	}

	for _, count := range []int{2, 3, 7} {
		got, err := calculator.ImageCost("dall-e-3", "standard", "1024x1024", count)
		if err != nil {
			t.Fatalf("ImageCost(count=%d) error: %v", count, err)
		}
		if want := single * float64(count); !almostEqual(got, want) {
			t.Fatalf("ImageCost(count=%d) = %v, want %v", count, got, want)
		}
	}
}

func TestImageCostLookupFailures(t *testing.T) {
	t.Parallel()

	calculator := NewCalculator(testTable())

	tests := []struct {
		name    string
		model   string
		quality string
		size    string
		wantErr error
	}{
		{name: "unknown model", model: "dall-e-9", quality: "standard", size: "1024x1024", wantErr: ErrModelNotPriced},
		{name: "unknown quality", model: "dall-e-3", quality: "ultra", size: "1024x1024", wantErr: ErrVariantNotPriced},
		{name: "unknown size", model: "dall-e-3", quality: "hd", size: "1792x1024", wantErr: ErrVariantNotPriced},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := calculator.ImageCost(tt.model, tt.quality, tt.size, 4)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ImageCost() error = %v, want %v", err, tt.wantErr)
			}
			if got != 0 {
				t.Fatalf("ImageCost() = %v, want 0 on lookup failure", got)
			}
		})
	}
}

func TestAudioCost(t *testing.T) {
	t.Parallel()

	calculator := NewCalculator(testTable())

	got, err := calculator.AudioCost("tts-1", 2500)
	if err != nil {
		t.Fatalf("AudioCost() error: %v", err)
	}
	if want := 2500.0 / 1000 * 0.015; !almostEqual(got, want) {
		t.Fatalf("AudioCost() = %v, want %v", got, want)
	}
}

func TestCostDispatch(t *testing.T) {
	t.Parallel()

	calculator := NewCalculator(testTable())

	tests := []struct {
		name    string
		usage   Usage
		want    float64
		wantErr error
	}{
		{
			name:  "chat",
			usage: Usage{Kind: KindChat, Model: "gpt-4o", PromptTokens: 2000, CompletionTokens: 1000},
			want:  2000.0/1000*0.005 + 1000.0/1000*0.015,
		},
		{
			name:  "embeddings",
			usage: Usage{Kind: KindEmbeddings, Model: "text-embedding-3-small", PromptTokens: 1000},
			want:  0.00002,
		},
		{
			name:  "images",
			usage: Usage{Kind: KindImages, Model: "dall-e-3", ImageQuality: "hd", ImageSize: "1024x1024", ImageCount: 2},
			want:  0.16,
		},
		{
			name:  "audio",
			usage: Usage{Kind: KindAudio, Model: "tts-1", Characters: 1000},
			want:  0.015,
		},
		{
			name:    "unknown kind",
			usage:   Usage{Kind: Kind("video"), Model: "sora"},
			wantErr: ErrUnknownKind,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := calculator.Cost(tt.usage)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Cost() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Cost() error: %v", err)
			}
			if !almostEqual(got, tt.want) {
				t.Fatalf("Cost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCostOrZero(t *testing.T) {
	t.Parallel()

	if got := CostOrZero(1.25, nil); got != 1.25 {
		t.Fatalf("CostOrZero() = %v, want 1.25", got)
	}
	if got := CostOrZero(1.25, ErrModelNotPriced); got != 0 {
		t.Fatalf("CostOrZero() = %v, want 0 on error", got)
	}
	if got := CostOrZero(-0.5, nil); got != 0 {
		t.Fatalf("CostOrZero() = %v, want 0 on negative cost", got)
	}
}

func TestEmptyTableCostsZero(t *testing.T) {
	t.Parallel()

	calculator := NewCalculator(Empty())

	usages := []Usage{
		{Kind: KindChat, Model: "gpt-4o", PromptTokens: 1_000_000, CompletionTokens: 1_000_000},
		{Kind: KindEmbeddings, Model: "text-embedding-3-small", PromptTokens: 1_000_000},
		{Kind: KindImages, Model: "dall-e-3", ImageQuality: "hd", ImageSize: "1024x1024", ImageCount: 100},
		{Kind: KindAudio, Model: "tts-1", Characters: 1_000_000},
	}

	for _, usage := range usages {
		if got := CostOrZero(calculator.Cost(usage)); got != 0 {
			t.Fatalf("CostOrZero(%q) = %v, want 0 against empty table", usage.Kind, got)
		}
	}
}
