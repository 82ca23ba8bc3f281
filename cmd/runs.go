// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/runq-org/runq/internal/runstore"
	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	var jsonOut bool
	c := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List dispatched runs, or show one run with its journal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := loadEnv(ctx, false)
			if err != nil {
				return err
			}
			defer e.Close()

			if len(args) == 1 {
				return showRun(cmd, e, args[0], jsonOut)
			}

			runs, err := e.store.List(ctx)
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Println("(no runs recorded)")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tMODE\tNAME\tSTATUS\tJOB\tEXIT\tLOG")
			for _, run := range runs {
				exit := "-"
				if run.ExitCode != nil {
					exit = fmt.Sprintf("%d", *run.ExitCode)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					run.ID, run.Mode, run.Name, run.Status, run.JobID, exit, run.LogPath)
			}
			return tw.Flush()
		},
	}
	c.Flags().BoolVar(&jsonOut, "json", false, "Output runs as JSON")
	return c
}

func showRun(cmd *cobra.Command, e *env, id string, jsonOut bool) error {
	ctx := cmd.Context()
	run, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	journal, err := e.store.Journal(ctx, id)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Run     runstore.Run            `json:"run"`
			Journal []runstore.JournalEntry `json:"journal"`
		}{run, journal})
	}

	fmt.Printf("Run: %s\n", run.ID)
	fmt.Printf("Mode: %s\n", run.Mode)
	fmt.Printf("Name: %s\n", run.Name)
	fmt.Printf("Status: %s\n", run.Status)
	fmt.Printf("Job: %d\n", run.JobID)
	if run.ExitCode != nil {
		fmt.Printf("Exit: %d\n", *run.ExitCode)
	}
	if run.LogPath != "" {
		fmt.Printf("Log: %s\n", run.LogPath)
	}
	fmt.Println("Journal:")
	for _, entry := range journal {
		fmt.Printf("  %s  %-10s job=%d\n",
			entry.Timestamp.Format("2006-01-02T15:04:05Z"), entry.Transition, entry.JobID)
	}
	return nil
}
