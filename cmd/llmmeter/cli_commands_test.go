package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/llmmeter/llmmeter/usagestore"
)

const testPricingJSON = `{
  "chat": {
    "gpt-4o": {"promptPrice": 0.005, "completionPrice": 0.015}
  },
  "embeddings": {
    "text-embedding-3-small": 0.00002
  }
}`

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "llmmeter.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func writeTestPricing(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pricing.json")
	if err := os.WriteFile(path, []byte(testPricingJSON), 0o644); err != nil {
		t.Fatalf("write pricing: %v", err)
	}
	return path
}

func TestRunUnknownCommand(t *testing.T) {
	if code := run([]string{"frobnicate"}); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestRunNoArgs(t *testing.T) {
	if code := run(nil); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestCostCommandChat(t *testing.T) {
	pricingPath := writeTestPricing(t)
	configPath := writeTestConfig(t, "pricing:\n  file: "+pricingPath+"\n")

	var out, errOut bytes.Buffer
	code := runCost([]string{
		"--config", configPath,
		"--model", "gpt-4o",
		"--prompt-tokens", "1000",
		"--completion-tokens", "1000",
	}, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "$0.020000") {
		t.Fatalf("output = %q, want cost $0.020000", out.String())
	}
}

func TestCostCommandJSON(t *testing.T) {
	pricingPath := writeTestPricing(t)
	configPath := writeTestConfig(t, "pricing:\n  file: "+pricingPath+"\n")

	var out, errOut bytes.Buffer
	code := runCost([]string{
		"--config", configPath,
		"--format", "json",
		"--model", "text-embedding-3-small",
		"--kind", "embeddings",
		"--prompt-tokens", "500",
	}, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut.String())
	}

	var doc costDocument
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if doc.Model != "text-embedding-3-small" || doc.Kind != "embeddings" {
		t.Fatalf("document = %+v", doc)
	}
	want := (500.0 / 1000) * 0.00002
	if diff := doc.CostUSD - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("cost = %v, want %v", doc.CostUSD, want)
	}
}

func TestCostCommandUnknownModel(t *testing.T) {
	pricingPath := writeTestPricing(t)
	configPath := writeTestConfig(t, "pricing:\n  file: "+pricingPath+"\n")

	var out, errOut bytes.Buffer
	code := runCost([]string{
		"--config", configPath,
		"--model", "made-up-model",
		"--prompt-tokens", "10",
	}, &out, &errOut)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "not priced") {
		t.Fatalf("stderr = %q, want lookup failure", errOut.String())
	}
}

func TestCostCommandMissingModel(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := runCost(nil, &out, &errOut); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestReportCommandText(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "usage.db")
	seedUsageDB(t, dbPath)
	configPath := writeTestConfig(t, "storage:\n  driver: sqlite\n  path: "+dbPath+"\n")

	var out, errOut bytes.Buffer
	code := runReport([]string{"--config", configPath}, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "Requests:      2") {
		t.Fatalf("output = %q, want 2 requests", out.String())
	}
	if !strings.Contains(out.String(), "gpt-4o") {
		t.Fatalf("output = %q, want per-model row", out.String())
	}
}

func TestReportCommandJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "usage.db")
	seedUsageDB(t, dbPath)
	configPath := writeTestConfig(t, "storage:\n  driver: sqlite\n  path: "+dbPath+"\n")

	var out, errOut bytes.Buffer
	code := runReport([]string{"--config", configPath, "--format", "json", "--provider", "openai"}, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut.String())
	}

	var doc reportDocument
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if doc.SchemaVersion != reportSchemaVersion {
		t.Fatalf("schema version = %q", doc.SchemaVersion)
	}
	if doc.Summary.TotalRequests != 1 {
		t.Fatalf("filtered requests = %d, want 1", doc.Summary.TotalRequests)
	}
}

func TestReportCommandInvalidRange(t *testing.T) {
	var out, errOut bytes.Buffer
	code := runReport([]string{"--from", "2026-03-02", "--to", "2026-03-01"}, &out, &errOut)
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestReportCommandNoStorage(t *testing.T) {
	configPath := writeTestConfig(t, "storage:\n  driver: none\n")

	var out, errOut bytes.Buffer
	code := runReport([]string{"--config", configPath}, &out, &errOut)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "no usage ledger") {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestPricingCommandText(t *testing.T) {
	pricingPath := writeTestPricing(t)
	configPath := writeTestConfig(t, "pricing:\n  file: "+pricingPath+"\n")

	var out, errOut bytes.Buffer
	code := runPricing([]string{"--config", configPath}, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "gpt-4o") || !strings.Contains(out.String(), "text-embedding-3-small") {
		t.Fatalf("output = %q, want model listing", out.String())
	}
}

func TestParseTimeFlag(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		endOfDay bool
		want     time.Time
		wantErr  bool
	}{
		{name: "empty", raw: "", want: time.Time{}},
		{name: "rfc3339", raw: "2026-03-01T12:30:00Z", want: time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)},
		{name: "bare date", raw: "2026-03-01", want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{name: "bare date end of day", raw: "2026-03-01", endOfDay: true, want: time.Date(2026, 3, 1, 23, 59, 59, 999999999, time.UTC)},
		{name: "garbage", raw: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTimeFlag(tt.raw, tt.endOfDay)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTimeFlag() error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("parseTimeFlag() = %v, want %v", got, tt.want)
			}
		})
	}
}

func seedUsageDB(t *testing.T, path string) {
	t.Helper()

	store, err := usagestore.NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	}()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []*usagestore.Record{
		{Provider: "openai", Model: "gpt-4o", Operation: "chat", Timestamp: base, InputTokens: 100, OutputTokens: 50, CostUSD: 0.00125},
		{Provider: "anthropic", Model: "claude-3-5-sonnet", Operation: "chat", Timestamp: base.Add(time.Hour), InputTokens: 80, OutputTokens: 20, CostUSD: 0.0006},
	}
	if err := store.WriteBatch(context.Background(), records); err != nil {
		t.Fatalf("WriteBatch() error: %v", err)
	}
}
