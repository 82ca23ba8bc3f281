// SPDX-License-Identifier: AGPL-3.0-or-later
package dispatch

import "context"

type runIDKey struct{}

// WithRunID attaches the dispatcher-side run identifier to ctx so backends
// can label log events without a direct dependency on the dispatcher.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFrom returns the attached run identifier, or "" when absent.
func RunIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(runIDKey{}).(string); ok {
		return v
	}
	return ""
}
