// SPDX-License-Identifier: AGPL-3.0-or-later
package engine

import (
	"fmt"
	"strconv"

	"github.com/kballard/go-shellquote"
	"github.com/runq-org/runq/internal/types"
)

// Argv renders a resolved configuration into the key=value argument list
// for the external entry point: mode first, then keys in lexical order.
// Schema-extending keys carry the + prefix.
func Argv(cfg types.ResolvedConfig) []string {
	out := make([]string, 0, len(cfg.Values)+1)
	out = append(out, "mode="+cfg.Mode)
	for _, key := range cfg.SortedKeys() {
		rv := cfg.Values[key]
		prefix := ""
		if rv.New {
			prefix = "+"
		}
		out = append(out, prefix+key+"="+FormatValue(rv))
	}
	return out
}

// CommandLine renders the full shell command: the configured entrypoint
// followed by the quoted argv. The entrypoint may itself contain arguments.
func CommandLine(entrypoint string, cfg types.ResolvedConfig) (string, error) {
	words, err := shellquote.Split(entrypoint)
	if err != nil {
		return "", fmt.Errorf("split entrypoint: %w", err)
	}
	if len(words) == 0 {
		return "", fmt.Errorf("empty entrypoint")
	}
	return shellquote.Join(append(words, Argv(cfg)...)...), nil
}

// FormatValue renders a resolved value the way the external program parses
// it back.
func FormatValue(rv types.ResolvedValue) string {
	switch v := rv.Value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
