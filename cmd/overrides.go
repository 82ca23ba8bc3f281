// SPDX-License-Identifier: AGPL-3.0-or-later
package cmd

import (
	"fmt"
	"strings"

	"github.com/runq-org/runq/internal/types"
)

// parseOverrides turns positional key=value tokens into an override set.
// A leading "+" marks a key the mode's schema does not declare.
func parseOverrides(args []string) (types.OverrideSet, error) {
	var out types.OverrideSet
	for _, arg := range args {
		token := arg
		isNew := strings.HasPrefix(token, "+")
		if isNew {
			token = token[1:]
		}
		key, value, ok := strings.Cut(token, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("override %q: want key=value or +key=value", arg)
		}
		out = append(out, types.Override{Key: key, Value: value, New: isNew})
	}
	return out, nil
}
