package providers

import (
	"sort"
	"strings"
)

type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	registry := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, provider := range providers {
		registry.providers[provider.Name()] = provider
	}
	return registry
}

func DefaultRegistry() *Registry {
	return NewRegistry(
		OpenAIProvider{},
		AzureOpenAIProvider{},
		AnthropicProvider{},
		CohereProvider{},
		MistralProvider{},
		GeminiProvider{},
	)
}

func (r *Registry) Get(name string) (Provider, bool) {
	provider, ok := r.providers[name]
	return provider, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DetectByHost resolves the provider serving a request by its upstream host.
// Azure is checked before OpenAI since both carry "openai" in the host.
func (r *Registry) DetectByHost(host string) (Provider, bool) {
	host = strings.ToLower(strings.TrimSpace(host))
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}

	switch {
	case strings.HasSuffix(host, "openai.azure.com"):
		return r.Get("azure_openai")
	case host == "api.openai.com":
		return r.Get("openai")
	case host == "api.anthropic.com":
		return r.Get("anthropic")
	case host == "api.cohere.ai" || host == "api.cohere.com":
		return r.Get("cohere")
	case host == "api.mistral.ai":
		return r.Get("mistral")
	case host == "generativelanguage.googleapis.com" || strings.HasSuffix(host, "aiplatform.googleapis.com"):
		return r.Get("gemini")
	default:
		return nil, false
	}
}
