package providers

import (
	"fmt"
	"net/http"

	"github.com/llmmeter/llmmeter/stream"
)

type OpenAIProvider struct{}

func (OpenAIProvider) Name() string {
	return "openai"
}

func (OpenAIProvider) Defaults() Defaults {
	return Defaults{Temperature: 1.0, TopP: 1.0}
}

func (OpenAIProvider) ParseResponse(statusCode int, _ http.Header, body []byte) (*CallData, error) {
	return parseChatCompletionResponse(statusCode, body), nil
}

func (OpenAIProvider) NormalizeChunk(chunk []byte) ([]stream.Event, error) {
	return normalizeChatCompletionChunk(chunk)
}

// AzureOpenAIProvider shares the OpenAI wire shape; only the name and host
// detection differ.
type AzureOpenAIProvider struct {
	OpenAIProvider
}

func (AzureOpenAIProvider) Name() string {
	return "azure_openai"
}

// parseChatCompletionResponse handles the OpenAI-style completion/embedding
// response shape, shared by OpenAI, Azure OpenAI, and Mistral.
func parseChatCompletionResponse(statusCode int, body []byte) *CallData {
	data := &CallData{StatusCode: statusCode}

	payload, ok := parseJSONMap(body)
	if !ok {
		return data
	}

	data.Model = extractModel(payload)
	data.ResponseID = firstString(payload, "id")
	data.InputTokens, data.OutputTokens, data.TotalTokens = extractUsage(payload)
	if choice := firstElement(payload, "choices"); choice != nil {
		data.FinishReason = firstString(choice, "finish_reason")
	}
	return data
}

// normalizeChatCompletionChunk handles the OpenAI-style streaming chunk
// shape: deltas under choices[0].delta.content, usage on the final chunk.
func normalizeChatCompletionChunk(chunk []byte) ([]stream.Event, error) {
	payloadBytes := parseSSEPayload(chunk)
	if payloadBytes == nil {
		if _, ok := parseJSONMap(chunk); !ok {
			return nil, nil
		}
		payloadBytes = chunk
	}

	payload, ok := parseJSONMap(payloadBytes)
	if !ok {
		return nil, fmt.Errorf("malformed chat completion chunk payload")
	}

	var events []stream.Event
	if id := firstString(payload, "id"); id != "" {
		events = append(events, stream.ResponseID{ID: id})
	}
	if model := extractModel(payload); model != "" {
		events = append(events, stream.ModelName{Model: model})
	}
	if choice := firstElement(payload, "choices"); choice != nil {
		if delta := subMap(choice, "delta"); delta != nil {
			if content, ok := delta["content"].(string); ok && content != "" {
				events = append(events, stream.TextDelta{Text: content})
			}
		}
		if reason := firstString(choice, "finish_reason"); reason != "" {
			events = append(events, stream.FinishReason{Reason: reason})
		}
	}
	if input, output, _ := extractUsage(payload); input > 0 || output > 0 {
		events = append(events, stream.Usage{PromptTokens: input, CompletionTokens: output})
	}
	return events, nil
}
