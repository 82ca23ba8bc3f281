// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"fmt"
	"os"

	"github.com/runq-org/runq/internal/paths"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:           "runq",
	Short:         "Run dispatcher for training and evaluation jobs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if dataDir := os.Getenv("RUNQ_DATA_DIR"); dataDir != "" {
		paths.SetDataDirOverride(dataDir)
	}

	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory holding config.yaml and modes.d/ (default: platform data dir)")

	rootCmd.AddCommand(newSubmitCmd())
	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newWaitCmd())
	rootCmd.AddCommand(newCancelCmd())
	rootCmd.AddCommand(newModesCmd())
	rootCmd.AddCommand(newSummaryCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
