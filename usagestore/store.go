// Package usagestore is an optional durable ledger of per-call usage
// records, used for offline cost reporting. The instrumented call path never
// blocks on it; records flow through a bounded async writer that drops under
// pressure.
package usagestore

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is one completed instrumented call.
type Record struct {
	ID           string
	Timestamp    time.Time
	Provider     string
	Model        string
	Operation    string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	Streaming    bool
	FinishReason string
	StatusCode   int
	LatencyMS    int64
	CostUSD      float64
}

// Filter narrows summary queries. Zero fields match everything.
type Filter struct {
	Provider string
	Model    string
	From     time.Time
	To       time.Time
}

// Summary aggregates matching records.
type Summary struct {
	Requests     int64
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// ModelStats aggregates matching records per (provider, model).
type ModelStats struct {
	Provider     string
	Model        string
	Requests     int64
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
}

type Store interface {
	WriteRecord(ctx context.Context, record *Record) error
	WriteBatch(ctx context.Context, records []*Record) error
	Summary(ctx context.Context, filter Filter) (*Summary, error)
	ModelStats(ctx context.Context, filter Filter) ([]ModelStats, error)
	Close() error
}

// normalizeRecord fills generated fields so every backend stores the same
// shape.
func normalizeRecord(record *Record) *Record {
	normalized := *record
	if strings.TrimSpace(normalized.ID) == "" {
		normalized.ID = uuid.NewString()
	}
	if normalized.Timestamp.IsZero() {
		normalized.Timestamp = time.Now()
	}
	normalized.Timestamp = normalized.Timestamp.UTC()
	if normalized.TotalTokens == 0 {
		normalized.TotalTokens = normalized.InputTokens + normalized.OutputTokens
	}
	return &normalized
}
