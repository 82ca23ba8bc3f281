// SPDX-License-Identifier: AGPL-3.0-or-later

// Package modes loads the per-mode configuration schemas: the built-in
// eval mode plus any user-defined modes found under <dir>/modes.d.
package modes

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/runq-org/runq/internal/engine"
	"github.com/runq-org/runq/internal/types"
	"gopkg.in/yaml.v3"
)

// Registry holds every loaded schema, keyed by mode name. Read-only after
// Load returns.
type Registry struct {
	schemas map[string]*types.Schema
}

// Load builds the registry from builtins plus yaml files under
// <dir>/modes.d. A missing directory is not an error; a malformed or
// invalid schema file is.
func Load(dir string) (*Registry, error) {
	reg := &Registry{schemas: make(map[string]*types.Schema)}
	for _, s := range builtins() {
		if err := engine.ValidateSchema(s); err != nil {
			return nil, fmt.Errorf("builtin schema: %w", err)
		}
		reg.schemas[s.Mode] = s
	}

	modesDir := filepath.Join(dir, "modes.d")
	entries, err := os.ReadDir(modesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return reg, nil
		}
		return nil, fmt.Errorf("read modes dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		s, err := loadFile(filepath.Join(modesDir, name))
		if err != nil {
			return nil, err
		}
		reg.schemas[s.Mode] = s
	}
	return reg, nil
}

func loadFile(path string) (*types.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mode file: %w", err)
	}
	defer f.Close()

	var s types.Schema
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode mode file %s: %w", filepath.Base(path), err)
	}
	if err := engine.ValidateSchema(&s); err != nil {
		return nil, fmt.Errorf("mode file %s: %w", filepath.Base(path), err)
	}
	return &s, nil
}

// Get returns the schema for mode, if loaded.
func (r *Registry) Get(mode string) (*types.Schema, bool) {
	s, ok := r.schemas[mode]
	return s, ok
}

// Names lists loaded mode names in lexical order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
