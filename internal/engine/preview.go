// SPDX-License-Identifier: AGPL-3.0-or-later
package engine

import (
	"github.com/runq-org/runq/internal/types"
)

// Preview is a minimal, printable summary of what a submission would run.
// No resources are reserved building one.
type Preview struct {
	Mode     string                 `json:"mode"`
	Command  string                 `json:"command,omitempty"`
	Resolved map[string]interface{} `json:"resolved,omitempty"`
	NewKeys  []string               `json:"new_keys,omitempty"`
}

// BuildPreview resolves nothing itself; it reshapes an already resolved
// configuration for display.
func BuildPreview(cfg types.ResolvedConfig, entrypoint string) (Preview, error) {
	p := Preview{Mode: cfg.Mode}

	resolved := make(map[string]interface{}, len(cfg.Values))
	for _, key := range cfg.SortedKeys() {
		rv := cfg.Values[key]
		resolved[key] = rv.Value
		if rv.New {
			p.NewKeys = append(p.NewKeys, key)
		}
	}
	if len(resolved) > 0 {
		p.Resolved = resolved
	}

	if entrypoint != "" {
		cmd, err := CommandLine(entrypoint, cfg)
		if err != nil {
			return Preview{}, err
		}
		p.Command = cmd
	}
	return p, nil
}
