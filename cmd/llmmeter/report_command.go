package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/llmmeter/llmmeter/config"
	"github.com/llmmeter/llmmeter/usagestore"
)

const reportSchemaVersion = "report.v1"

type reportDocument struct {
	SchemaVersion string            `json:"schema_version"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Storage       reportStorageInfo `json:"storage"`
	Filters       reportFilterInfo  `json:"filters"`
	Summary       reportSummaryInfo `json:"summary"`
	Models        []reportModelInfo `json:"models"`
}

type reportStorageInfo struct {
	Driver string `json:"driver"`
	Path   string `json:"path,omitempty"`
}

type reportFilterInfo struct {
	Provider string     `json:"provider,omitempty"`
	Model    string     `json:"model,omitempty"`
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`
}

type reportSummaryInfo struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	TotalTokens       int64   `json:"total_tokens"`
	TotalCostUSD      float64 `json:"total_cost_usd"`
}

type reportModelInfo struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	RequestCount int64   `json:"request_count"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

func runReport(args []string, out io.Writer, errOut io.Writer) int {
	flagSet := flag.NewFlagSet("report", flag.ContinueOnError)
	flagSet.SetOutput(errOut)

	configPath := flagSet.String("config", defaultConfigPath, "Path to config file")
	format := flagSet.String("format", "text", "Output format: text or json")
	fromRaw := flagSet.String("from", "", "Report start time (RFC3339 or YYYY-MM-DD)")
	toRaw := flagSet.String("to", "", "Report end time (RFC3339 or YYYY-MM-DD)")
	provider := flagSet.String("provider", "", "Provider filter")
	model := flagSet.String("model", "", "Model filter")

	if err := flagSet.Parse(args); err != nil {
		return 2
	}
	if flagSet.NArg() != 0 {
		fmt.Fprintln(errOut, "report does not accept positional arguments")
		return 2
	}

	normalizedFormat, err := normalizeTextJSONFormat("report", *format, "text")
	if err != nil {
		fmt.Fprintln(errOut, err.Error())
		return 2
	}
	from, err := parseTimeFlag(*fromRaw, false)
	if err != nil {
		fmt.Fprintf(errOut, "invalid from: %v\n", err)
		return 2
	}
	to, err := parseTimeFlag(*toRaw, true)
	if err != nil {
		fmt.Fprintf(errOut, "invalid to: %v\n", err)
		return 2
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		fmt.Fprintln(errOut, "invalid range: to must be greater than or equal to from")
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(errOut, "failed to load config: %v\n", err)
		return 1
	}

	store, err := openUsageStore(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "failed to open usage store: %v\n", err)
		return 1
	}
	defer closeStoreWithWarning(store, errOut)

	filter := usagestore.Filter{
		Provider: *provider,
		Model:    *model,
		From:     from,
		To:       to,
	}

	ctx := context.Background()
	summary, err := store.Summary(ctx, filter)
	if err != nil {
		fmt.Fprintf(errOut, "failed to query summary: %v\n", err)
		return 1
	}
	stats, err := store.ModelStats(ctx, filter)
	if err != nil {
		fmt.Fprintf(errOut, "failed to query model stats: %v\n", err)
		return 1
	}

	if normalizedFormat == "json" {
		return writeReportJSON(out, errOut, cfg, filter, summary, stats)
	}
	writeReportText(out, summary, stats)
	return 0
}

func writeReportJSON(out, errOut io.Writer, cfg config.Config, filter usagestore.Filter, summary *usagestore.Summary, stats []usagestore.ModelStats) int {
	doc := reportDocument{
		SchemaVersion: reportSchemaVersion,
		GeneratedAt:   time.Now().UTC(),
		Storage: reportStorageInfo{
			Driver: cfg.Storage.Driver,
			Path:   cfg.Storage.Path,
		},
		Filters: reportFilterInfo{
			Provider: filter.Provider,
			Model:    filter.Model,
		},
		Summary: reportSummaryInfo{
			TotalRequests:     summary.Requests,
			TotalInputTokens:  summary.InputTokens,
			TotalOutputTokens: summary.OutputTokens,
			TotalTokens:       summary.TotalTokens,
			TotalCostUSD:      summary.CostUSD,
		},
		Models: make([]reportModelInfo, 0, len(stats)),
	}
	if !filter.From.IsZero() {
		from := filter.From
		doc.Filters.From = &from
	}
	if !filter.To.IsZero() {
		to := filter.To
		doc.Filters.To = &to
	}
	for _, entry := range stats {
		doc.Models = append(doc.Models, reportModelInfo{
			Provider:     entry.Provider,
			Model:        entry.Model,
			RequestCount: entry.Requests,
			InputTokens:  entry.InputTokens,
			OutputTokens: entry.OutputTokens,
			TotalCostUSD: entry.CostUSD,
		})
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		fmt.Fprintf(errOut, "failed to encode report: %v\n", err)
		return 1
	}
	return 0
}

func writeReportText(out io.Writer, summary *usagestore.Summary, stats []usagestore.ModelStats) {
	fmt.Fprintf(out, "Requests:      %d\n", summary.Requests)
	fmt.Fprintf(out, "Input tokens:  %d\n", summary.InputTokens)
	fmt.Fprintf(out, "Output tokens: %d\n", summary.OutputTokens)
	fmt.Fprintf(out, "Total tokens:  %d\n", summary.TotalTokens)
	fmt.Fprintf(out, "Total cost:    $%.6f\n", summary.CostUSD)

	if len(stats) == 0 {
		return
	}
	fmt.Fprintln(out, "")
	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "PROVIDER\tMODEL\tREQUESTS\tINPUT\tOUTPUT\tCOST")
	for _, entry := range stats {
		fmt.Fprintf(writer, "%s\t%s\t%d\t%d\t%d\t$%.6f\n",
			entry.Provider, entry.Model, entry.Requests, entry.InputTokens, entry.OutputTokens, entry.CostUSD)
	}
	_ = writer.Flush()
}
