// SPDX-License-Identifier: AGPL-3.0-or-later
package engine

import (
	"fmt"

	"github.com/runq-org/runq/internal/types"
)

// SchemaTypeError reports an override whose value does not parse as the
// type the schema declares for its key.
type SchemaTypeError struct {
	Key      string
	Expected types.OptionType
	Actual   string
	Raw      string
}

func (e *SchemaTypeError) Error() string {
	return fmt.Sprintf("key %s: expected %s, got %s %q", e.Key, e.Expected, e.Actual, e.Raw)
}

// UnknownKeyError reports an override whose key is absent from the schema
// and was not flagged as new.
type UnknownKeyError struct {
	Key  string
	Mode string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown key %s for mode %q (use +%s=... to extend the schema)", e.Key, e.Mode, e.Key)
}
