package stream

import (
	"reflect"
	"testing"
)

func TestAccumulatorFoldsChunkSequence(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator()
	acc.Observe(TextDelta{Text: "Hello"})
	acc.Observe(TextDelta{Text: " world"})
	acc.Observe(FinishReason{Reason: "stop"}, Usage{PromptTokens: 5, CompletionTokens: 2})

	summary := acc.Summary()
	if summary.Text != "Hello world" {
		t.Fatalf("text = %q, want %q", summary.Text, "Hello world")
	}
	if summary.FinishReason != "stop" {
		t.Fatalf("finish_reason = %q, want %q", summary.FinishReason, "stop")
	}
	if summary.PromptTokens != 5 || summary.CompletionTokens != 2 {
		t.Fatalf("usage = (%d, %d), want (5, 2)", summary.PromptTokens, summary.CompletionTokens)
	}
	if summary.TotalTokens() != 7 {
		t.Fatalf("total tokens = %d, want 7", summary.TotalTokens())
	}
	if summary.Chunks != 3 {
		t.Fatalf("chunks = %d, want 3", summary.Chunks)
	}
}

func TestAccumulatorKeepsLatestNonEmptyMetadata(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator()
	acc.Observe(ResponseID{ID: "resp-1"}, ModelName{Model: "gpt-4o"})
	acc.Observe(ResponseID{ID: ""}, ModelName{Model: ""}, FinishReason{Reason: ""})
	acc.Observe(ResponseID{ID: "resp-2"})

	summary := acc.Summary()
	if summary.ResponseID != "resp-2" {
		t.Fatalf("response id = %q, want latest non-empty %q", summary.ResponseID, "resp-2")
	}
	if summary.Model != "gpt-4o" {
		t.Fatalf("model = %q, want %q (empty values never overwrite)", summary.Model, "gpt-4o")
	}
}

func TestAccumulatorUsageFieldsUpdateIndependently(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator()
	acc.Observe(Usage{PromptTokens: 12})
	acc.Observe(Usage{CompletionTokens: 3})
	acc.Observe(Usage{CompletionTokens: 9})

	summary := acc.Summary()
	if summary.PromptTokens != 12 {
		t.Fatalf("prompt tokens = %d, want 12", summary.PromptTokens)
	}
	if summary.CompletionTokens != 9 {
		t.Fatalf("completion tokens = %d, want latest 9", summary.CompletionTokens)
	}
}

func TestAccumulatorIdempotentPerRun(t *testing.T) {
	t.Parallel()

	sequence := [][]Event{
		{ResponseID{ID: "resp-7"}, ModelName{Model: "claude-3-5-sonnet"}},
		{TextDelta{Text: "The answer"}},
		{TextDelta{Text: " is 42."}},
		{FinishReason{Reason: "end_turn"}, Usage{PromptTokens: 20, CompletionTokens: 8}},
	}

	run := func() Summary {
		acc := NewAccumulator()
		for _, events := range sequence {
			acc.Observe(events...)
		}
		return acc.Summary()
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("summaries differ between runs:\n%+v\n%+v", first, second)
	}
}

func TestAccumulatorPartialSummaryDoesNotDisturbState(t *testing.T) {
	t.Parallel()

	acc := NewAccumulator()
	acc.Observe(TextDelta{Text: "partial"})
	_ = acc.Summary()
	acc.Observe(TextDelta{Text: " then complete"})

	if got := acc.Summary().Text; got != "partial then complete" {
		t.Fatalf("text = %q, want %q", got, "partial then complete")
	}
}
