// SPDX-License-Identifier: AGPL-3.0-or-later
package engine

import (
	"fmt"
	"strings"

	"github.com/runq-org/runq/internal/types"
)

// ValidateSchema checks a schema at load time: every option needs a dotted
// key, a recognized type, and a default matching that type.
func ValidateSchema(s *types.Schema) error {
	if s == nil {
		return fmt.Errorf("nil schema")
	}
	if strings.TrimSpace(s.Mode) == "" {
		return fmt.Errorf("schema missing mode name")
	}
	seen := make(map[string]struct{}, len(s.Options))
	for _, opt := range s.Options {
		if strings.TrimSpace(opt.Key) == "" {
			return fmt.Errorf("mode %s: option with empty key", s.Mode)
		}
		if _, dup := seen[opt.Key]; dup {
			return fmt.Errorf("mode %s: duplicate key %s", s.Mode, opt.Key)
		}
		seen[opt.Key] = struct{}{}
		if !opt.Type.Valid() {
			return fmt.Errorf("mode %s: key %s has unsupported type %q", s.Mode, opt.Key, opt.Type)
		}
		if _, err := normalizeDefault(opt); err != nil {
			return fmt.Errorf("mode %s: %w", s.Mode, err)
		}
	}
	return nil
}
