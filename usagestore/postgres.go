package usagestore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore persists usage records in PostgreSQL via the pgx stdlib
// driver.
type PostgresStore struct {
	DSN string
	db  *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn cannot be empty")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	store := &PostgresStore{DSN: dsn, db: db}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS usage_records (
    id            TEXT PRIMARY KEY,
    ts            TIMESTAMPTZ NOT NULL,
    provider      TEXT NOT NULL,
    model         TEXT NOT NULL DEFAULT '',
    operation     TEXT NOT NULL DEFAULT '',
    input_tokens  BIGINT NOT NULL DEFAULT 0,
    output_tokens BIGINT NOT NULL DEFAULT 0,
    total_tokens  BIGINT NOT NULL DEFAULT 0,
    streaming     BOOLEAN NOT NULL DEFAULT FALSE,
    finish_reason TEXT NOT NULL DEFAULT '',
    status_code   INTEGER NOT NULL DEFAULT 0,
    latency_ms    BIGINT NOT NULL DEFAULT 0,
    cost_usd      DOUBLE PRECISION NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_usage_records_ts ON usage_records (ts);
CREATE INDEX IF NOT EXISTS idx_usage_records_provider_model ON usage_records (provider, model);
`)
	if err != nil {
		return fmt.Errorf("ensure usage_records schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) WriteRecord(ctx context.Context, record *Record) error {
	if record == nil {
		return nil
	}
	return s.WriteBatch(ctx, []*Record{record})
}

func (s *PostgresStore) WriteBatch(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin usage batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO usage_records (
    id, ts, provider, model, operation,
    input_tokens, output_tokens, total_tokens,
    streaming, finish_reason, status_code, latency_ms, cost_usd
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`)
	if err != nil {
		return fmt.Errorf("prepare usage insert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if record == nil {
			continue
		}
		row := normalizeRecord(record)
		_, err = stmt.ExecContext(ctx,
			row.ID,
			row.Timestamp,
			row.Provider,
			row.Model,
			row.Operation,
			row.InputTokens,
			row.OutputTokens,
			row.TotalTokens,
			row.Streaming,
			row.FinishReason,
			row.StatusCode,
			row.LatencyMS,
			row.CostUSD,
		)
		if err != nil {
			return fmt.Errorf("write usage record %q: %w", row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit usage batch: %w", err)
	}
	return nil
}

func (s *PostgresStore) Summary(ctx context.Context, filter Filter) (*Summary, error) {
	where, args := postgresFilter(filter)

	row := s.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(input_tokens), 0),
       COALESCE(SUM(output_tokens), 0),
       COALESCE(SUM(total_tokens), 0),
       COALESCE(SUM(cost_usd), 0)
FROM usage_records`+where, args...)

	summary := &Summary{}
	if err := row.Scan(&summary.Requests, &summary.InputTokens, &summary.OutputTokens, &summary.TotalTokens, &summary.CostUSD); err != nil {
		return nil, fmt.Errorf("query usage summary: %w", err)
	}
	return summary, nil
}

func (s *PostgresStore) ModelStats(ctx context.Context, filter Filter) ([]ModelStats, error) {
	where, args := postgresFilter(filter)

	rows, err := s.db.QueryContext(ctx, `
SELECT provider, model, COUNT(*),
       COALESCE(SUM(input_tokens), 0),
       COALESCE(SUM(output_tokens), 0),
       COALESCE(SUM(cost_usd), 0)
FROM usage_records`+where+`
GROUP BY provider, model
ORDER BY SUM(cost_usd) DESC, COUNT(*) DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query model stats: %w", err)
	}
	defer rows.Close()

	var stats []ModelStats
	for rows.Next() {
		var entry ModelStats
		if err := rows.Scan(&entry.Provider, &entry.Model, &entry.Requests, &entry.InputTokens, &entry.OutputTokens, &entry.CostUSD); err != nil {
			return nil, fmt.Errorf("scan model stats: %w", err)
		}
		stats = append(stats, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model stats: %w", err)
	}
	return stats, nil
}

func postgresFilter(filter Filter) (string, []any) {
	var clauses []string
	var args []any

	if filter.Provider != "" {
		args = append(args, filter.Provider)
		clauses = append(clauses, fmt.Sprintf("provider = $%d", len(args)))
	}
	if filter.Model != "" {
		args = append(args, filter.Model)
		clauses = append(clauses, fmt.Sprintf("model = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From.UTC())
		clauses = append(clauses, fmt.Sprintf("ts >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To.UTC())
		clauses = append(clauses, fmt.Sprintf("ts <= $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
