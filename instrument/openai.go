package instrument

import (
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// NewHTTPClient returns an http.Client that routes through the instrumented
// transport. Drop it into any SDK that accepts a custom client.
func NewHTTPClient(transport *Transport) *http.Client {
	return &http.Client{Transport: transport}
}

// NewOpenAIClient builds a go-openai client whose calls are instrumented.
func NewOpenAIClient(apiKey string, transport *Transport) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = NewHTTPClient(transport)
	return openai.NewClientWithConfig(cfg)
}

// NewAzureOpenAIClient builds a go-openai client against an Azure OpenAI
// deployment with the instrumented transport attached.
func NewAzureOpenAIClient(apiKey, baseURL string, transport *Transport) *openai.Client {
	cfg := openai.DefaultAzureConfig(apiKey, baseURL)
	cfg.HTTPClient = NewHTTPClient(transport)
	return openai.NewClientWithConfig(cfg)
}
