package usagestore

import (
	"context"
	"sync"
)

// MemoryStore keeps records in memory. It backs tests and the "none"
// storage driver fallback where durability is not wanted.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) WriteRecord(_ context.Context, record *Record) error {
	if record == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, normalizeRecord(record))
	return nil
}

func (s *MemoryStore) WriteBatch(ctx context.Context, records []*Record) error {
	for _, record := range records {
		if err := s.WriteRecord(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Summary(_ context.Context, filter Filter) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &Summary{}
	for _, record := range s.records {
		if !matches(record, filter) {
			continue
		}
		summary.Requests++
		summary.InputTokens += int64(record.InputTokens)
		summary.OutputTokens += int64(record.OutputTokens)
		summary.TotalTokens += int64(record.TotalTokens)
		summary.CostUSD += record.CostUSD
	}
	return summary, nil
}

func (s *MemoryStore) ModelStats(_ context.Context, filter Filter) ([]ModelStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKey := map[string]*ModelStats{}
	var order []string
	for _, record := range s.records {
		if !matches(record, filter) {
			continue
		}
		key := record.Provider + "\x00" + record.Model
		stats, ok := byKey[key]
		if !ok {
			stats = &ModelStats{Provider: record.Provider, Model: record.Model}
			byKey[key] = stats
			order = append(order, key)
		}
		stats.Requests++
		stats.InputTokens += int64(record.InputTokens)
		stats.OutputTokens += int64(record.OutputTokens)
		stats.CostUSD += record.CostUSD
	}

	out := make([]ModelStats, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Len reports how many records have been written.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func matches(record *Record, filter Filter) bool {
	if filter.Provider != "" && record.Provider != filter.Provider {
		return false
	}
	if filter.Model != "" && record.Model != filter.Model {
		return false
	}
	if !filter.From.IsZero() && record.Timestamp.Before(filter.From) {
		return false
	}
	if !filter.To.IsZero() && record.Timestamp.After(filter.To) {
		return false
	}
	return true
}
