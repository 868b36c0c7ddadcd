package telemetry

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for LLM call spans and metrics.
var (
	AttrProvider  = attribute.Key("llm.provider")
	AttrModel     = attribute.Key("llm.model")
	AttrOperation = attribute.Key("llm.operation")

	AttrInputTokens  = attribute.Key("llm.tokens.input")
	AttrOutputTokens = attribute.Key("llm.tokens.output")
	AttrTotalTokens  = attribute.Key("llm.tokens.total")
	AttrCostUSD      = attribute.Key("llm.cost_usd")

	AttrStream       = attribute.Key("llm.stream")
	AttrStreamChunks = attribute.Key("llm.stream_chunks")
	AttrFinishReason = attribute.Key("llm.finish_reason")
	AttrResponseID   = attribute.Key("llm.response_id")
	AttrStatusCode   = attribute.Key("http.response.status_code")
)
