// SPDX-License-Identifier: AGPL-3.0-or-later

package configloader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/runq-org/runq/internal/paths"
	"github.com/runq-org/runq/internal/types"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultEntrypoint is the external command a resolved configuration is
	// rendered for when config.yaml does not name one.
	DefaultEntrypoint = "python main.py"

	defaultBackend = "local"
)

// LoadConfig reads config.yaml under dir and returns the dispatcher
// configuration with defaults filled in. A missing file yields the default
// configuration, not an error.
func LoadConfig(dir string) (*types.Config, error) {
	cfg := &types.Config{}

	configPath := filepath.Join(dir, "config.yaml")
	f, err := os.Open(configPath)
	switch {
	case err == nil:
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	case os.IsNotExist(err):
		// defaults only
	default:
		return nil, fmt.Errorf("open config: %w", err)
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if cfg.Backend == "" {
		cfg.Backend = defaultBackend
	}
	switch cfg.Backend {
	case "local", "slurm":
	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}

	if strings.TrimSpace(cfg.Entrypoint) == "" {
		cfg.Entrypoint = DefaultEntrypoint
	}

	applyResourceDefaults(&cfg.Defaults)

	// Resolve data directory precedence: explicit env in config > process env > platform default.
	dataDir := ""
	if cfg.Env != nil {
		if val, ok := cfg.Env["RUNQ_DATA_DIR"]; ok && strings.TrimSpace(val) != "" {
			dataDir = strings.TrimSpace(val)
		}
	}
	if dataDir == "" {
		if env := os.Getenv("RUNQ_DATA_DIR"); env != "" {
			dataDir = env
		}
	}
	if dataDir != "" {
		paths.SetDataDirOverride(dataDir)
	}
	resolvedDataDir := paths.DataDir()
	paths.SetDataDirOverride(resolvedDataDir)
	if cfg.Env == nil {
		cfg.Env = make(map[string]string)
	}
	cfg.Env["RUNQ_DATA_DIR"] = resolvedDataDir

	return cfg, nil
}

func applyResourceDefaults(r *types.Resources) {
	if r.Nodes == 0 {
		r.Nodes = 1
	}
	if r.TasksPerNode == 0 {
		r.TasksPerNode = 1
	}
	if r.MemoryMB == 0 {
		r.MemoryMB = 32 << 10
	}
	if r.TimeLimit == 0 {
		r.TimeLimit = types.Duration(24 * time.Hour)
	}
	if r.LogTemplate == "" {
		r.LogTemplate = filepath.Join(paths.LogsDir(), "%x-%j.log")
	}
}
