// SPDX-License-Identifier: AGPL-3.0-or-later
package types

// Config holds dispatcher-level settings decoded from config.yaml.
type Config struct {
	// Backend selects the execution backend: "local" or "slurm".
	Backend string `yaml:"backend,omitempty"`
	// Entrypoint is the external training/evaluation command the resolved
	// configuration is rendered for, e.g. "python main.py".
	Entrypoint string `yaml:"entrypoint,omitempty"`
	// VerboseErrors controls whether resolution errors print full
	// diagnostic detail. An explicit field, never a process-wide flag, so
	// concurrent dispatchers cannot race on it.
	VerboseErrors bool              `yaml:"verbose_errors,omitempty"`
	Env           map[string]string `yaml:"env,omitempty"`
	// Defaults seed the resource request for submissions that omit flags.
	Defaults Resources `yaml:"defaults,omitempty"`
}

func (c *Config) EnvSlice() []string {
	if c == nil {
		return nil
	}
	out := make([]string, 0, len(c.Env))
	for k, v := range c.Env {
		out = append(out, k+"="+v)
	}
	return out
}
