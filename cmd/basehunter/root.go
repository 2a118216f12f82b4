package main

import (
	"context"

	"github.com/spf13/cobra"
)

const (
	appName = "basehunter"
	version = "v0.4.1"
)

type rootFlags struct {
	scannerConfig   string
	providersConfig string
	universeFile    string
}

// Execute builds the command tree and runs it.
func Execute(ctx context.Context) error {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:     appName,
		Short:   "Volatility contraction scanner for US equities",
		Long:    "basehunter scans an equity universe for volatility contraction bases and confirmed breakouts, ranks candidates by a combined pattern, fundamentals and sentiment score, and serves results over HTTP or on a schedule.",
		Version: version,
	}

	root.PersistentFlags().StringVar(&flags.scannerConfig, "config", "", "Scanner tuning YAML (built-in defaults when empty)")
	root.PersistentFlags().StringVar(&flags.providersConfig, "providers", "", "Provider operations YAML (built-in defaults when empty)")
	root.PersistentFlags().StringVar(&flags.universeFile, "universe", "config/universe.yaml", "Universe definition YAML")

	root.AddCommand(scanCmd(flags))
	root.AddCommand(serveCmd(flags))
	root.AddCommand(scheduleCmd(flags))

	return root.ExecuteContext(ctx)
}
