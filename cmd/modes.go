// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newModesCmd() *cobra.Command {
	var jsonOut bool
	c := &cobra.Command{
		Use:   "modes [mode]",
		Short: "List known modes, or show one mode's option schema",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			if len(args) == 1 {
				schema, ok := e.registry.Get(args[0])
				if !ok {
					return fmt.Errorf("unknown mode %q", args[0])
				}
				if jsonOut {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(schema)
				}
				fmt.Printf("Mode: %s\n", schema.Mode)
				tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tTYPE\tDEFAULT\tDESCRIPTION")
				for _, opt := range schema.Options {
					fmt.Fprintf(tw, "%s\t%s\t%v\t%s\n", opt.Key, opt.Type, opt.Default, opt.Description)
				}
				return tw.Flush()
			}

			names := e.registry.Names()
			if jsonOut {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(names)
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return c
}
