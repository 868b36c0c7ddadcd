package providers

import (
	"fmt"
	"net/http"

	"github.com/llmmeter/llmmeter/stream"
)

type AnthropicProvider struct{}

func (AnthropicProvider) Name() string {
	return "anthropic"
}

func (AnthropicProvider) Defaults() Defaults {
	return Defaults{Temperature: 1.0, TopP: 1.0}
}

func (AnthropicProvider) ParseResponse(statusCode int, _ http.Header, body []byte) (*CallData, error) {
	data := &CallData{StatusCode: statusCode}

	payload, ok := parseJSONMap(body)
	if !ok {
		return data, nil
	}

	data.Model = extractModel(payload)
	data.ResponseID = firstString(payload, "id")
	data.FinishReason = firstString(payload, "stop_reason")
	data.InputTokens, data.OutputTokens, data.TotalTokens = extractUsage(payload)
	return data, nil
}

// NormalizeChunk handles the Anthropic event stream: message_start carries
// the id, model, and input token count; content_block_delta carries text;
// message_delta carries the stop reason and the output token count.
func (AnthropicProvider) NormalizeChunk(chunk []byte) ([]stream.Event, error) {
	payloadBytes := parseSSEPayload(chunk)
	if payloadBytes == nil {
		if _, ok := parseJSONMap(chunk); !ok {
			return nil, nil
		}
		payloadBytes = chunk
	}

	payload, ok := parseJSONMap(payloadBytes)
	if !ok {
		return nil, fmt.Errorf("malformed anthropic chunk payload")
	}

	var events []stream.Event
	switch firstString(payload, "type") {
	case "message_start":
		message := subMap(payload, "message")
		if message == nil {
			return nil, nil
		}
		if id := firstString(message, "id"); id != "" {
			events = append(events, stream.ResponseID{ID: id})
		}
		if model := extractModel(message); model != "" {
			events = append(events, stream.ModelName{Model: model})
		}
		if input, _, _ := extractUsage(message); input > 0 {
			events = append(events, stream.Usage{PromptTokens: input})
		}
	case "content_block_delta":
		delta := subMap(payload, "delta")
		if text := firstString(delta, "text"); text != "" {
			events = append(events, stream.TextDelta{Text: text})
		}
	case "message_delta":
		if reason := firstString(subMap(payload, "delta"), "stop_reason"); reason != "" {
			events = append(events, stream.FinishReason{Reason: reason})
		}
		if usage := subMap(payload, "usage"); usage != nil {
			if output := firstInt(usage, "output_tokens"); output > 0 {
				events = append(events, stream.Usage{CompletionTokens: output})
			}
		}
	}
	return events, nil
}
