package providers

import (
	"encoding/json"
	"strings"
)

func parseJSONMap(raw []byte) (map[string]any, bool) {
	value := strings.TrimSpace(string(raw))
	if value == "" || !strings.HasPrefix(value, "{") {
		return nil, false
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(value), &out); err != nil {
		return nil, false
	}
	return out, true
}

// parseSSEPayload extracts the data payload from one SSE event block.
// Keep-alive comments, empty payloads, and the [DONE] sentinel yield nil.
func parseSSEPayload(chunk []byte) []byte {
	lines := strings.Split(string(chunk), "\n")
	dataLines := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if value == "" || value == "[DONE]" {
			continue
		}
		dataLines = append(dataLines, value)
	}
	if len(dataLines) == 0 {
		return nil
	}
	// An event block normally carries one data line, but tolerate multi-line
	// payloads by preferring the last JSON-looking one.
	for i := len(dataLines) - 1; i >= 0; i-- {
		if strings.HasPrefix(dataLines[i], "{") {
			return []byte(dataLines[i])
		}
	}
	return []byte(dataLines[len(dataLines)-1])
}

func firstInt(values map[string]any, keys ...string) int {
	for _, key := range keys {
		raw, ok := values[key]
		if !ok {
			continue
		}
		switch typed := raw.(type) {
		case float64:
			return int(typed)
		case int:
			return typed
		}
	}
	return 0
}

func firstString(values map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := values[key].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func subMap(values map[string]any, key string) map[string]any {
	if values == nil {
		return nil
	}
	out, _ := values[key].(map[string]any)
	return out
}

func firstElement(values map[string]any, key string) map[string]any {
	if values == nil {
		return nil
	}
	list, ok := values[key].([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	out, _ := list[0].(map[string]any)
	return out
}

// extractUsage reads token counts from a "usage" object, accepting both the
// OpenAI and Anthropic field aliases.
func extractUsage(payload map[string]any) (int, int, int) {
	usage := subMap(payload, "usage")
	if usage == nil {
		return 0, 0, 0
	}

	input := firstInt(usage, "prompt_tokens", "input_tokens")
	output := firstInt(usage, "completion_tokens", "output_tokens")
	total := firstInt(usage, "total_tokens")
	if total == 0 {
		total = input + output
	}
	return input, output, total
}

func extractModel(payload map[string]any) string {
	return firstString(payload, "model")
}
