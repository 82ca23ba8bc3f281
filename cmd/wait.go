// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"errors"
	"fmt"

	"github.com/runq-org/runq/internal/backend/local"
	"github.com/spf13/cobra"
)

func newWaitCmd() *cobra.Command {
	var jsonEvents bool
	c := &cobra.Command{
		Use:   "wait <run-id>",
		Short: "Block until a dispatched run reaches a terminal state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := loadEnv(ctx, jsonEvents)
			if err != nil {
				return err
			}
			defer e.Close()

			run, stored, err := e.loadRun(ctx, args[0])
			if err != nil {
				return err
			}
			if stored.Status.Terminal() {
				exit := "-"
				if stored.ExitCode != nil {
					exit = fmt.Sprintf("%d", *stored.ExitCode)
				}
				fmt.Printf("run %s already %s (exit %s)\n", stored.ID, stored.Status, exit)
				return nil
			}

			result, err := e.disp.Wait(ctx, run)
			if errors.Is(err, local.ErrNotOwned) {
				return fmt.Errorf("run %s was dispatched by another process; the local backend cannot reattach to job %d", run.ID, run.JobID)
			}
			if err != nil {
				return errors.New(e.disp.RenderError(err))
			}
			if result.ExitCode != 0 {
				return fmt.Errorf("run %s failed with exit code %d (log %s)", run.ID, result.ExitCode, result.LogPath)
			}
			fmt.Printf("run %s completed (log %s)\n", run.ID, result.LogPath)
			return nil
		},
	}
	c.Flags().BoolVar(&jsonEvents, "json", false, "Emit lifecycle events as JSON")
	return c
}

func newCancelCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "cancel <run-id>",
		Short: "Cancel a dispatched run (best-effort)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := loadEnv(ctx, false)
			if err != nil {
				return err
			}
			defer e.Close()

			run, stored, err := e.loadRun(ctx, args[0])
			if err != nil {
				return err
			}
			if stored.Status.Terminal() {
				return fmt.Errorf("run %s is already %s", stored.ID, stored.Status)
			}
			if err := e.disp.Cancel(ctx, run); err != nil {
				if errors.Is(err, local.ErrNotOwned) {
					return fmt.Errorf("run %s was dispatched by another process; the local backend cannot reach job %d", run.ID, run.JobID)
				}
				return err
			}
			fmt.Printf("run %s canceled (job %d)\n", run.ID, run.JobID)
			return nil
		},
	}
	return c
}
