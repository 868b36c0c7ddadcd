package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/llmmeter/llmmeter/config"
	"github.com/llmmeter/llmmeter/pricing"
)

type pricingDocument struct {
	ModelCounts map[string]int      `json:"model_counts"`
	Models      map[string][]string `json:"models"`
}

func runPricing(args []string, out io.Writer, errOut io.Writer) int {
	flagSet := flag.NewFlagSet("pricing", flag.ContinueOnError)
	flagSet.SetOutput(errOut)

	configPath := flagSet.String("config", defaultConfigPath, "Path to config file")
	format := flagSet.String("format", "text", "Output format: text or json")

	if err := flagSet.Parse(args); err != nil {
		return 2
	}
	if flagSet.NArg() != 0 {
		fmt.Fprintln(errOut, "pricing does not accept positional arguments")
		return 2
	}
	normalizedFormat, err := normalizeTextJSONFormat("pricing", *format, "text")
	if err != nil {
		fmt.Fprintln(errOut, err.Error())
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(errOut, "failed to load config: %v\n", err)
		return 1
	}

	table, err := loadPricingTable(context.Background(), cfg, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "failed to load pricing: %v\n", err)
		return 1
	}
	if table.IsEmpty() {
		fmt.Fprintln(errOut, "pricing table is empty: all costs resolve to zero")
	}

	models := map[string][]string{
		string(pricing.KindChat):       sortedKeys(table.Chat),
		string(pricing.KindEmbeddings): sortedKeys(table.Embeddings),
		string(pricing.KindImages):     sortedKeys(table.Images),
		string(pricing.KindAudio):      sortedKeys(table.Audio),
	}

	if normalizedFormat == "json" {
		counts := make(map[string]int, len(models))
		for category, names := range models {
			counts[category] = len(names)
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(pricingDocument{ModelCounts: counts, Models: models}); err != nil {
			fmt.Fprintf(errOut, "failed to encode output: %v\n", err)
			return 1
		}
		return 0
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "CATEGORY\tMODELS")
	for _, category := range []pricing.Kind{pricing.KindChat, pricing.KindEmbeddings, pricing.KindImages, pricing.KindAudio} {
		names := models[string(category)]
		fmt.Fprintf(writer, "%s\t%d\n", category, len(names))
		for _, name := range names {
			fmt.Fprintf(writer, "\t%s\n", name)
		}
	}
	_ = writer.Flush()
	return 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
