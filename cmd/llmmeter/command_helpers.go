package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/llmmeter/llmmeter/config"
	"github.com/llmmeter/llmmeter/pricing"
	"github.com/llmmeter/llmmeter/usagestore"
)

// normalizeTextJSONFormat validates command output format flags with shared
// semantics.
func normalizeTextJSONFormat(command, rawValue, defaultValue string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(rawValue))
	if normalized == "" {
		normalized = strings.TrimSpace(defaultValue)
	}
	switch normalized {
	case "text", "json":
		return normalized, nil
	default:
		return "", fmt.Errorf("invalid %s format %q: expected text or json", strings.TrimSpace(command), rawValue)
	}
}

// parseTimeFlag accepts RFC3339 or a bare date. Bare dates on an end bound
// extend to the end of that day so --to covers the named day fully.
func parseTimeFlag(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return parsed.UTC(), nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC3339 or YYYY-MM-DD, got %q", raw)
	}
	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return parsed.UTC(), nil
}

// loadPricingTable resolves the pricing table for a command: a local file
// wins over the remote document, and fetch failures degrade to an empty
// table.
func loadPricingTable(ctx context.Context, cfg config.Config, errOut io.Writer) (pricing.Table, error) {
	if file := strings.TrimSpace(cfg.Pricing.File); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return pricing.Table{}, fmt.Errorf("read pricing file: %w", err)
		}
		table, err := pricing.Load(data)
		if err != nil {
			return pricing.Table{}, err
		}
		return table, nil
	}

	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelWarn}))
	opts := []pricing.FetchOption{
		pricing.WithLogger(logger),
		pricing.WithTimeout(time.Duration(cfg.Pricing.FetchTimeoutMS) * time.Millisecond),
	}
	fetcher := pricing.NewFetcher(cfg.Pricing.URL, opts...)
	return fetcher.Fetch(ctx), nil
}

// openUsageStore opens the ledger backend named by the config.
func openUsageStore(cfg config.Config) (usagestore.Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverSQLite:
		return usagestore.NewSQLiteStore(cfg.Storage.Path)
	case config.StorageDriverPostgres:
		return usagestore.NewPostgresStore(cfg.Storage.DSN)
	case config.StorageDriverNone:
		return nil, fmt.Errorf("storage.driver is %q: no usage ledger to report on", cfg.Storage.Driver)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func closeStoreWithWarning(store usagestore.Store, errOut io.Writer) {
	if err := store.Close(); err != nil {
		fmt.Fprintf(errOut, "warning: failed to close usage store: %v\n", err)
	}
}
