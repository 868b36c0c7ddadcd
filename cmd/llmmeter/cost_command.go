package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/llmmeter/llmmeter/config"
	"github.com/llmmeter/llmmeter/pricing"
)

type costDocument struct {
	Model   string  `json:"model"`
	Kind    string  `json:"kind"`
	CostUSD float64 `json:"cost_usd"`
}

func runCost(args []string, out io.Writer, errOut io.Writer) int {
	flagSet := flag.NewFlagSet("cost", flag.ContinueOnError)
	flagSet.SetOutput(errOut)

	configPath := flagSet.String("config", defaultConfigPath, "Path to config file")
	format := flagSet.String("format", "text", "Output format: text or json")
	model := flagSet.String("model", "", "Model name (required)")
	kind := flagSet.String("kind", string(pricing.KindChat), "Usage kind: chat, embeddings, images or audio")
	promptTokens := flagSet.Int("prompt-tokens", 0, "Prompt token count")
	completionTokens := flagSet.Int("completion-tokens", 0, "Completion token count")
	characters := flagSet.Int("characters", 0, "Synthesized character count (audio)")
	imageCount := flagSet.Int("count", 1, "Generated image count (images)")
	imageQuality := flagSet.String("quality", "standard", "Image quality (images)")
	imageSize := flagSet.String("size", "1024x1024", "Image size (images)")

	if err := flagSet.Parse(args); err != nil {
		return 2
	}
	if flagSet.NArg() != 0 {
		fmt.Fprintln(errOut, "cost does not accept positional arguments")
		return 2
	}
	if strings.TrimSpace(*model) == "" {
		fmt.Fprintln(errOut, "--model is required")
		return 2
	}
	normalizedFormat, err := normalizeTextJSONFormat("cost", *format, "text")
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

	calculator := pricing.NewCalculator(table)
	cost, err := calculator.Cost(pricing.Usage{
		Kind:             pricing.Kind(strings.ToLower(strings.TrimSpace(*kind))),
		Model:            *model,
		PromptTokens:     *promptTokens,
		CompletionTokens: *completionTokens,
		Characters:       *characters,
		ImageCount:       *imageCount,
		ImageQuality:     *imageQuality,
		ImageSize:        *imageSize,
	})
	if err != nil {
		fmt.Fprintln(errOut, err.Error())
		return 1
	}

	if normalizedFormat == "json" {
		doc := costDocument{Model: *model, Kind: strings.ToLower(strings.TrimSpace(*kind)), CostUSD: cost}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(doc); err != nil {
			fmt.Fprintf(errOut, "failed to encode output: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Fprintf(out, "%s (%s): $%.6f\n", *model, strings.ToLower(strings.TrimSpace(*kind)), cost)
	return 0
}
