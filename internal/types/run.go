// SPDX-License-Identifier: AGPL-3.0-or-later
package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Override is one caller-supplied (key, value) pair. Value is the raw text
// as typed; the engine parses it against the schema's declared type. New
// marks a key the schema does not declare (the +key=value form) and must be
// set explicitly for such keys.
type Override struct {
	Key   string
	Value string
	New   bool
}

// OverrideSet is an ordered sequence of overrides. Later entries for the
// same key win.
type OverrideSet []Override

// ResolvedValue is one fully-typed entry of a resolved configuration.
type ResolvedValue struct {
	Type  OptionType  `json:"type"`
	Value interface{} `json:"value"`
	New   bool        `json:"new,omitempty"`
}

// UnmarshalJSON restores the Go type Value carried before encoding; plain
// json decoding would widen every number to float64.
func (v *ResolvedValue) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type  OptionType      `json:"type"`
		Value json.RawMessage `json:"value"`
		New   bool            `json:"new"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.Type = raw.Type
	v.New = raw.New
	switch raw.Type {
	case TypeInt:
		var n int64
		if err := json.Unmarshal(raw.Value, &n); err != nil {
			return fmt.Errorf("decode int value: %w", err)
		}
		v.Value = n
	case TypeFloat:
		var f float64
		if err := json.Unmarshal(raw.Value, &f); err != nil {
			return fmt.Errorf("decode float value: %w", err)
		}
		v.Value = f
	case TypeBool:
		var b bool
		if err := json.Unmarshal(raw.Value, &b); err != nil {
			return fmt.Errorf("decode bool value: %w", err)
		}
		v.Value = b
	default:
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return fmt.Errorf("decode string value: %w", err)
		}
		v.Value = s
	}
	return nil
}

// ResolvedConfig is the result of applying an OverrideSet to a Schema:
// every schema default, overridden where applicable, plus any explicitly
// flagged new keys. Immutable once built.
type ResolvedConfig struct {
	Mode   string                   `json:"mode"`
	Values map[string]ResolvedValue `json:"values"`
}

// SortedKeys returns all keys in lexical order for deterministic rendering.
func (c ResolvedConfig) SortedKeys() []string {
	keys := make([]string, 0, len(c.Values))
	for k := range c.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resources describes the reservation a run occupies for its lifetime.
type Resources struct {
	Nodes        int      `yaml:"nodes,omitempty" json:"nodes"`
	TasksPerNode int      `yaml:"tasks_per_node,omitempty" json:"tasks_per_node"`
	GPUs         int      `yaml:"gpus,omitempty" json:"gpus"`
	MemoryMB     int64    `yaml:"memory_mb,omitempty" json:"memory_mb"`
	TimeLimit    Duration `yaml:"time_limit,omitempty" json:"time_limit"`
	Partition    string   `yaml:"partition,omitempty" json:"partition,omitempty"`
	// Constraints is an OR-set of acceptable hardware constraint tags.
	Constraints []string `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Requeue     bool     `yaml:"requeue,omitempty" json:"requeue"`
	// LogTemplate is the output log path; %x expands to the run name and
	// %j to the backend job id. The log is always opened in append mode.
	LogTemplate string `yaml:"log_template,omitempty" json:"log_template,omitempty"`
}

// LogPath expands the log template for a concrete run: %x becomes name,
// %j the backend job id. A template without verbs passes through verbatim,
// which is how a re-queued run pins its original log file.
func (r Resources) LogPath(name string, jobID int64) string {
	path := strings.ReplaceAll(r.LogTemplate, "%x", name)
	return strings.ReplaceAll(path, "%j", strconv.FormatInt(jobID, 10))
}

// RunRequest pairs a resolved configuration with its resource reservation.
// Immutable once submitted.
type RunRequest struct {
	Mode      string         `json:"mode"`
	Name      string         `json:"name"`
	Config    ResolvedConfig `json:"config"`
	Resources Resources      `json:"resources"`
}

// RunResult is the terminal outcome reported by an execution backend.
type RunResult struct {
	JobID    int64  `json:"job_id"`
	ExitCode int    `json:"exit_code"`
	LogPath  string `json:"log_path"`
}

// RunStatus tracks the lifecycle of a dispatched run.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusPreempted RunStatus = "preempted"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusCanceled  RunStatus = "canceled"
)

// Terminal reports whether no further transitions can follow.
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}
