// SPDX-License-Identifier: AGPL-3.0-or-later

// Package paths centralises runq data-directory resolution.
package paths

import (
	"os"
	"path/filepath"
	"sync/atomic"
)

const (
	appDirName = "runq"
	envDataDir = "RUNQ_DATA_DIR"
)

var override atomic.Pointer[string]

// SetDataDirOverride allows callers (e.g. config loader) to pin the data
// directory to an explicit location. Passing an empty string clears the override.
func SetDataDirOverride(dir string) {
	if dir == "" {
		override.Store(nil)
		return
	}
	clean := filepath.Clean(dir)
	override.Store(&clean)
}

// DataDir returns the absolute directory runq should use for persistence.
// Order of precedence:
//  1. Explicit override provided via SetDataDirOverride.
//  2. RUNQ_DATA_DIR environment variable.
//  3. $XDG_DATA_HOME/runq, or ~/.local/share/runq.
//  4. Fallback: ./runq (mainly for constrained envs).
func DataDir() string {
	if ptr := override.Load(); ptr != nil && *ptr != "" {
		return *ptr
	}

	if dir := os.Getenv(envDataDir); dir != "" {
		return filepath.Clean(dir)
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "share", appDirName)
	}

	if cwd, err := os.Getwd(); err == nil && cwd != "" {
		return filepath.Join(cwd, appDirName)
	}

	// As an absolute last resort fall back to the OS temp dir.
	return filepath.Join(os.TempDir(), appDirName)
}

// DataPath joins the runq data directory with the supplied path elements.
func DataPath(elem ...string) string {
	parts := append([]string{DataDir()}, elem...)
	return filepath.Join(parts...)
}

// LogsDir returns the root directory for run output logs.
func LogsDir() string {
	return DataPath("logs")
}
