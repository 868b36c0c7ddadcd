package pricing

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind selects the pricing formula applied to a usage record.
type Kind string

const (
	KindChat       Kind = "chat"
	KindEmbeddings Kind = "embeddings"
	KindImages     Kind = "images"
	KindAudio      Kind = "audio"
)

// ChatPrice holds USD rates per 1K tokens for a chat/completion model.
type ChatPrice struct {
	PromptPer1K     float64 `json:"promptPrice"`
	CompletionPer1K float64 `json:"completionPrice"`
}

// ImagePrice maps quality -> size -> USD per generated image.
type ImagePrice map[string]map[string]float64

// Table is the process-wide price lookup structure. It is immutable after
// load, so concurrent reads need no locking.
type Table struct {
	Chat       map[string]ChatPrice `json:"chat"`
	Embeddings map[string]float64   `json:"embeddings"`
	Images     map[string]ImagePrice `json:"images"`
	Audio      map[string]float64   `json:"audio"`
}

// Empty returns a table with no priced models. Every cost computed against it
// is zero.
func Empty() Table {
	return Table{}
}

// Load decodes a pricing document. The document is a JSON object keyed by
// category ("chat", "embeddings", "images", "audio").
func Load(data []byte) (Table, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return Table{}, fmt.Errorf("pricing document is empty")
	}

	var table Table
	if err := json.Unmarshal([]byte(trimmed), &table); err != nil {
		return Table{}, fmt.Errorf("parse pricing document: %w", err)
	}
	return table, nil
}

// IsEmpty reports whether the table prices no models at all.
func (t Table) IsEmpty() bool {
	return len(t.Chat) == 0 && len(t.Embeddings) == 0 && len(t.Images) == 0 && len(t.Audio) == 0
}

// ModelCount returns the number of priced models per category, keyed by Kind.
func (t Table) ModelCount() map[Kind]int {
	return map[Kind]int{
		KindChat:       len(t.Chat),
		KindEmbeddings: len(t.Embeddings),
		KindImages:     len(t.Images),
		KindAudio:      len(t.Audio),
	}
}
