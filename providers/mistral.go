package providers

import (
	"net/http"

	"github.com/llmmeter/llmmeter/stream"
)

// MistralProvider follows the OpenAI chat completion wire shape but keeps
// its own unset-parameter defaults.
type MistralProvider struct{}

func (MistralProvider) Name() string {
	return "mistral"
}

func (MistralProvider) Defaults() Defaults {
	return Defaults{Temperature: 0.7, TopP: 1.0}
}

func (MistralProvider) ParseResponse(statusCode int, _ http.Header, body []byte) (*CallData, error) {
	return parseChatCompletionResponse(statusCode, body), nil
}

func (MistralProvider) NormalizeChunk(chunk []byte) ([]stream.Event, error) {
	return normalizeChatCompletionChunk(chunk)
}
