// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/runq-org/runq/internal/engine"
	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	var asJSON bool
	c := &cobra.Command{
		Use:   "resolve <mode> [key=value ...] [+key=value ...]",
		Short: "Preview the resolved configuration and command (no dispatch)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			schema, ok := e.registry.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown mode %q (see 'runq modes')", args[0])
			}
			overrides, err := parseOverrides(args[1:])
			if err != nil {
				return err
			}
			cfg, err := engine.Resolve(schema, overrides)
			if err != nil {
				return errors.New(e.disp.RenderError(err))
			}
			preview, err := engine.BuildPreview(cfg, e.cfg.Entrypoint)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(preview)
			}

			fmt.Printf("Mode: %s\n", preview.Mode)
			if preview.Command != "" {
				fmt.Printf("Command: %s\n", preview.Command)
			}
			fmt.Println("Resolved:")
			keys := make([]string, 0, len(preview.Resolved))
			for k := range preview.Resolved {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			newKeys := make(map[string]bool, len(preview.NewKeys))
			for _, k := range preview.NewKeys {
				newKeys[k] = true
			}
			for _, k := range keys {
				marker := ""
				if newKeys[k] {
					marker = " (new)"
				}
				fmt.Printf("  - %s: %v%s\n", k, preview.Resolved[k], marker)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "Output preview as JSON")
	return c
}
