// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/runq-org/runq/internal/evalmetrics"
	"github.com/spf13/cobra"
)

func newSummaryCmd() *cobra.Command {
	var jsonOut bool
	var logPath string
	c := &cobra.Command{
		Use:   "summary [run-id]",
		Short: "Aggregate evaluation metrics from a run's log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := logPath
			if path == "" {
				if len(args) != 1 {
					return fmt.Errorf("need a run id or --log")
				}
				e, err := loadEnv(ctx, false)
				if err != nil {
					return err
				}
				defer e.Close()
				run, err := e.store.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if run.LogPath == "" {
					return fmt.Errorf("run %s has no log recorded", run.ID)
				}
				path = run.LogPath
			}

			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open log: %w", err)
			}
			defer f.Close()

			sum, err := evalmetrics.Scrape(f)
			if err != nil {
				return err
			}
			if sum.Batches == 0 {
				return fmt.Errorf("no metric observations in %s", path)
			}

			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}
			fmt.Printf("Batches: %d\n", sum.Batches)
			fmt.Printf("Tokens: %.0f\n", sum.Tokens)
			fmt.Printf("NLL: %.6f\n", sum.NLL)
			fmt.Printf("BPD: %.6f\n", sum.BPD)
			fmt.Printf("PPL: %.6f\n", sum.Perplexity)
			return nil
		},
	}
	c.Flags().BoolVar(&jsonOut, "json", false, "Output summary as JSON")
	c.Flags().StringVar(&logPath, "log", "", "Scrape this log file instead of a stored run's")
	return c
}
