package providers

import (
	"fmt"
	"net/http"

	"github.com/llmmeter/llmmeter/stream"
)

type CohereProvider struct{}

func (CohereProvider) Name() string {
	return "cohere"
}

func (CohereProvider) Defaults() Defaults {
	return Defaults{Temperature: 0.3, TopP: 0.75}
}

func (CohereProvider) ParseResponse(statusCode int, _ http.Header, body []byte) (*CallData, error) {
	data := &CallData{StatusCode: statusCode}

	payload, ok := parseJSONMap(body)
	if !ok {
		return data, nil
	}

	data.Model = extractModel(payload)
	data.ResponseID = firstString(payload, "generation_id", "response_id", "id")
	data.FinishReason = firstString(payload, "finish_reason")
	data.InputTokens, data.OutputTokens = cohereBilledUnits(payload)
	data.TotalTokens = data.InputTokens + data.OutputTokens
	return data, nil
}

// NormalizeChunk handles the Cohere event stream: text-generation events
// carry text, and the stream-end event embeds the full final response with
// billed token units.
func (CohereProvider) NormalizeChunk(chunk []byte) ([]stream.Event, error) {
	payloadBytes := parseSSEPayload(chunk)
	if payloadBytes == nil {
		if _, ok := parseJSONMap(chunk); !ok {
			return nil, nil
		}
		payloadBytes = chunk
	}

	payload, ok := parseJSONMap(payloadBytes)
	if !ok {
		return nil, fmt.Errorf("malformed cohere chunk payload")
	}

	var events []stream.Event
	switch firstString(payload, "event_type") {
	case "stream-start":
		if id := firstString(payload, "generation_id"); id != "" {
			events = append(events, stream.ResponseID{ID: id})
		}
	case "text-generation":
		if text := firstString(payload, "text"); text != "" {
			events = append(events, stream.TextDelta{Text: text})
		}
	case "stream-end":
		if reason := firstString(payload, "finish_reason"); reason != "" {
			events = append(events, stream.FinishReason{Reason: reason})
		}
		response := subMap(payload, "response")
		if response == nil {
			return events, nil
		}
		if id := firstString(response, "generation_id", "response_id", "id"); id != "" {
			events = append(events, stream.ResponseID{ID: id})
		}
		if input, output := cohereBilledUnits(response); input > 0 || output > 0 {
			events = append(events, stream.Usage{PromptTokens: input, CompletionTokens: output})
		}
	}
	return events, nil
}

func cohereBilledUnits(payload map[string]any) (int, int) {
	billed := subMap(subMap(payload, "meta"), "billed_units")
	if billed == nil {
		return 0, 0
	}
	return firstInt(billed, "input_tokens"), firstInt(billed, "output_tokens")
}
