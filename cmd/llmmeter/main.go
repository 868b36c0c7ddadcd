package main

import (
	"fmt"
	"os"
)

const defaultConfigPath = "llmmeter.yaml"

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return 2
	}

	switch args[0] {
	case "version", "--version", "-v":
		fmt.Println("llmmeter " + version)
		return 0
	case "cost":
		return runCost(args[1:], os.Stdout, os.Stderr)
	case "report":
		return runReport(args[1:], os.Stdout, os.Stderr)
	case "pricing":
		return runPricing(args[1:], os.Stdout, os.Stderr)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", args[0])
		printUsage(os.Stderr)
		return 2
	}
}

func printUsage(out *os.File) {
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  llmmeter cost --model gpt-4o --prompt-tokens N --completion-tokens N [flags]")
	fmt.Fprintln(out, "  llmmeter report [--provider name] [--model name] [--from time] [--to time] [--format text|json]")
	fmt.Fprintln(out, "  llmmeter pricing [--format text|json]")
	fmt.Fprintln(out, "  llmmeter version")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Global flags per command: --config path/to/llmmeter.yaml")
}
