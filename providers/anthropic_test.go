package providers

import (
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/llmmeter/llmmeter/stream"
)

func TestAnthropicProviderParseResponse(t *testing.T) {
	t.Parallel()

	provider := AnthropicProvider{}

	body := `{
		"id": "msg_01",
		"model": "claude-3-5-sonnet-20241022",
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 20, "output_tokens": 8}
	}`

	got, err := provider.ParseResponse(200, nil, []byte(body))
	if err != nil {
		t.Fatalf("ParseResponse() error: %v", err)
	}

	want := CallData{
		StatusCode:   200,
		Model:        "claude-3-5-sonnet-20241022",
		ResponseID:   "msg_01",
		FinishReason: "end_turn",
		InputTokens:  20,
		OutputTokens: 8,
		TotalTokens:  28,
	}
	if *got != want {
		t.Fatalf("ParseResponse() = %+v, want %+v", *got, want)
	}
}

func TestAnthropicProviderNormalizeChunk(t *testing.T) {
	t.Parallel()

	provider := AnthropicProvider{}

	tests := []struct {
		name  string
		chunk string
		want  []stream.Event
	}{
		{
			name:  "message_start",
			chunk: "event: message_start\ndata: {\"type\":\"message_start\",\"message\":{\"id\":\"msg_01\",\"model\":\"claude-3-5-sonnet\",\"usage\":{\"input_tokens\":20}}}",
			want: []stream.Event{
				stream.ResponseID{ID: "msg_01"},
				stream.ModelName{Model: "claude-3-5-sonnet"},
				stream.Usage{PromptTokens: 20},
			},
		},
		{
			name:  "content_block_delta",
			chunk: "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Hello\"}}",
			want:  []stream.Event{stream.TextDelta{Text: "Hello"}},
		},
		{
			name:  "message_delta",
			chunk: "event: message_delta\ndata: {\"type\":\"message_delta\",\"delta\":{\"stop_reason\":\"end_turn\"},\"usage\":{\"output_tokens\":8}}",
			want: []stream.Event{
				stream.FinishReason{Reason: "end_turn"},
				stream.Usage{CompletionTokens: 8},
			},
		},
		{
			name:  "ping event carries nothing",
			chunk: "event: ping\ndata: {\"type\":\"ping\"}",
			want:  nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := provider.NormalizeChunk([]byte(tt.chunk))
			if err != nil {
				t.Fatalf("NormalizeChunk() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("NormalizeChunk() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestAnthropicStreamEndToEnd(t *testing.T) {
	t.Parallel()

	body := strings.Join([]string{
		"event: message_start\ndata: {\"type\":\"message_start\",\"message\":{\"id\":\"msg_01\",\"model\":\"claude-3-5-sonnet\",\"usage\":{\"input_tokens\":20}}}\n\n",
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\"Hello\"}}\n\n",
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"text\":\" world\"}}\n\n",
		"event: message_delta\ndata: {\"type\":\"message_delta\",\"delta\":{\"stop_reason\":\"end_turn\"},\"usage\":{\"output_tokens\":8}}\n\n",
	}, "")

	var summary *stream.Summary
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reader := stream.NewReader(
		io.NopCloser(strings.NewReader(body)),
		AnthropicProvider{},
		func(s stream.Summary) { summary = &s },
		logger,
	)

	if _, err := io.Copy(io.Discard, reader); err != nil {
		t.Fatalf("Copy() error: %v", err)
	}
	if summary == nil {
		t.Fatal("summary never fired")
	}
	if summary.Text != "Hello world" {
		t.Fatalf("text = %q, want %q", summary.Text, "Hello world")
	}
	if summary.ResponseID != "msg_01" || summary.Model != "claude-3-5-sonnet" {
		t.Fatalf("metadata = (%q, %q)", summary.ResponseID, summary.Model)
	}
	if summary.PromptTokens != 20 || summary.CompletionTokens != 8 {
		t.Fatalf("usage = (%d, %d), want (20, 8)", summary.PromptTokens, summary.CompletionTokens)
	}
	if summary.FinishReason != "end_turn" {
		t.Fatalf("finish_reason = %q, want end_turn", summary.FinishReason)
	}
}
