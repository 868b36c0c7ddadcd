package providers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/llmmeter/llmmeter/stream"
)

// GeminiProvider covers the Gemini / Vertex AI generateContent shape.
// Streaming chunks reuse the non-streaming response shape with partial
// candidates, so both paths share one extractor.
type GeminiProvider struct{}

func (GeminiProvider) Name() string {
	return "gemini"
}

func (GeminiProvider) Defaults() Defaults {
	return Defaults{Temperature: 1.0, TopP: 0.95}
}

func (GeminiProvider) ParseResponse(statusCode int, _ http.Header, body []byte) (*CallData, error) {
	data := &CallData{StatusCode: statusCode}

	payload, ok := parseJSONMap(body)
	if !ok {
		return data, nil
	}

	data.Model = firstString(payload, "modelVersion", "model")
	data.ResponseID = firstString(payload, "responseId")
	data.InputTokens, data.OutputTokens, data.TotalTokens = geminiUsage(payload)
	if candidate := firstElement(payload, "candidates"); candidate != nil {
		data.FinishReason = firstString(candidate, "finishReason")
	}
	return data, nil
}

func (GeminiProvider) NormalizeChunk(chunk []byte) ([]stream.Event, error) {
	payloadBytes := parseSSEPayload(chunk)
	if payloadBytes == nil {
		if _, ok := parseJSONMap(chunk); !ok {
			return nil, nil
		}
		payloadBytes = chunk
	}

	payload, ok := parseJSONMap(payloadBytes)
	if !ok {
		return nil, fmt.Errorf("malformed gemini chunk payload")
	}

	var events []stream.Event
	if id := firstString(payload, "responseId"); id != "" {
		events = append(events, stream.ResponseID{ID: id})
	}
	if model := firstString(payload, "modelVersion", "model"); model != "" {
		events = append(events, stream.ModelName{Model: model})
	}
	if candidate := firstElement(payload, "candidates"); candidate != nil {
		if text := geminiCandidateText(candidate); text != "" {
			events = append(events, stream.TextDelta{Text: text})
		}
		if reason := firstString(candidate, "finishReason"); reason != "" {
			events = append(events, stream.FinishReason{Reason: reason})
		}
	}
	if input, output, _ := geminiUsage(payload); input > 0 || output > 0 {
		events = append(events, stream.Usage{PromptTokens: input, CompletionTokens: output})
	}
	return events, nil
}

func geminiUsage(payload map[string]any) (int, int, int) {
	usage := subMap(payload, "usageMetadata")
	if usage == nil {
		return 0, 0, 0
	}
	input := firstInt(usage, "promptTokenCount")
	output := firstInt(usage, "candidatesTokenCount")
	total := firstInt(usage, "totalTokenCount")
	if total == 0 {
		total = input + output
	}
	return input, output, total
}

func geminiCandidateText(candidate map[string]any) string {
	content := subMap(candidate, "content")
	if content == nil {
		return ""
	}
	parts, ok := content["parts"].([]any)
	if !ok {
		return ""
	}

	var b strings.Builder
	for _, raw := range parts {
		part, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := part["text"].(string); ok {
			b.WriteString(text)
		}
	}
	return b.String()
}
