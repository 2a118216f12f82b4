package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/basehunter/basehunter/internal/persistence"
	"github.com/basehunter/basehunter/internal/scan/pipeline"
)

func scanCmd(flags *rootFlags) *cobra.Command {
	var (
		symbols string
		asJSON    bool
		persist   bool
		setups    bool
		breakouts bool
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one scan over the universe and print ranked results",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := buildApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Close()

			targets := app.universe.Symbols()
			if symbols != "" {
				targets = parseSymbols(symbols)
			}
			if len(targets) == 0 {
				return fmt.Errorf("no symbols to scan")
			}

			results, summary, err := app.scanner.Scan(ctx, targets)
			if err != nil {
				return fmt.Errorf("scan failed: %w", err)
			}

			if persist {
				if app.repo == nil {
					return fmt.Errorf("--persist requires DATABASE_URL")
				}
				record := persistence.NewScanRecord("manual", app.universe.Name(), summary)
				scanID, err := app.repo.SaveScan(ctx, record, results)
				if err != nil {
					return fmt.Errorf("failed to persist scan: %w", err)
				}
				log.Info().Int64("scan_id", scanID).Msg("scan persisted")
			}

			if setups {
				results = filterResults(results, func(r pipeline.Result) bool { return r.Setup != nil })
			}
			if breakouts {
				results = pipeline.Breakouts(results)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Summary pipeline.Summary  `json:"summary"`
					Results []pipeline.Result `json:"results"`
				}{summary, results})
			}

			printResults(results, summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&symbols, "symbols", "", "Comma-separated symbols (default: whole universe)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	cmd.Flags().BoolVar(&persist, "persist", false, "Save the scan to postgres (needs DATABASE_URL)")
	cmd.Flags().BoolVar(&setups, "setups-only", false, "Show only symbols with a detected base")
	cmd.Flags().BoolVar(&breakouts, "breakouts-only", false, "Show only symbols with a confirmed breakout")
	return cmd
}

func parseSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func filterResults(results []pipeline.Result, keep func(pipeline.Result) bool) []pipeline.Result {
	out := results[:0]
	for _, r := range results {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func printResults(results []pipeline.Result, summary pipeline.Summary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tSCORE\tRATING\tPIVOT\tFROM PIVOT\tLEGS\tDEPTH\tRS PCTL\tBREAKOUT\tNOTE")
	for _, r := range results {
		if r.Setup == nil {
			fmt.Fprintf(w, "%s\t%.1f\t%s\t-\t-\t-\t-\t-\t-\t%s\n",
				r.Symbol, r.CombinedScore, r.Recommendation, r.Reason)
			continue
		}
		brk := "-"
		if r.Breakout != nil {
			brk = fmt.Sprintf("%.1fx vol", r.Breakout.RelativeVolume)
		}
		fmt.Fprintf(w, "%s\t%.1f\t%s\t%.2f\t%.1f%%\t%d\t%.1f%%\t%.0f\t%s\t%s\n",
			r.Symbol, r.CombinedScore, r.Recommendation,
			r.Setup.PivotPrice, r.Setup.DistanceFromPivotPct,
			len(r.Setup.Legs), r.Setup.TotalBaseDepthPct,
			r.Setup.RSPercentile, brk, r.Reason)
	}
	w.Flush()
	fmt.Printf("\n%d evaluated, %d setups, %d breakouts, %d fetch errors in %s\n",
		summary.SymbolsEvaluated, summary.SetupsFound, summary.BreakoutsFound,
		summary.FetchErrors, summary.Duration.Round(10*time.Millisecond))
}
