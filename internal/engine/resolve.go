// SPDX-License-Identifier: AGPL-3.0-or-later
package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/runq-org/runq/internal/types"
)

// Resolve applies overrides to a schema and returns the fully resolved
// configuration: every schema default, replaced where overridden, plus any
// overrides explicitly flagged as new keys. Resolution is pure; on error no
// partial result is returned. Later overrides of the same key win.
func Resolve(schema *types.Schema, overrides types.OverrideSet) (types.ResolvedConfig, error) {
	none := types.ResolvedConfig{}
	if schema == nil {
		return none, fmt.Errorf("nil schema")
	}

	values := make(map[string]types.ResolvedValue, len(schema.Options)+len(overrides))
	for _, opt := range schema.Options {
		v, err := normalizeDefault(opt)
		if err != nil {
			return none, err
		}
		values[opt.Key] = types.ResolvedValue{Type: opt.Type, Value: v}
	}

	for _, ov := range overrides {
		opt, known := schema.Lookup(ov.Key)
		if !known {
			if !ov.New {
				return none, &UnknownKeyError{Key: ov.Key, Mode: schema.Mode}
			}
			t, v := inferValue(ov.Value)
			values[ov.Key] = types.ResolvedValue{Type: t, Value: v, New: true}
			continue
		}
		v, err := parseValue(ov.Key, opt.Type, ov.Value)
		if err != nil {
			return none, err
		}
		values[ov.Key] = types.ResolvedValue{Type: opt.Type, Value: v}
	}

	return types.ResolvedConfig{Mode: schema.Mode, Values: values}, nil
}

func parseValue(key string, t types.OptionType, raw string) (interface{}, error) {
	switch t {
	case types.TypeInt:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, &SchemaTypeError{Key: key, Expected: t, Actual: "string", Raw: raw}
		}
		return n, nil
	case types.TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, &SchemaTypeError{Key: key, Expected: t, Actual: "string", Raw: raw}
		}
		return f, nil
	case types.TypeBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, &SchemaTypeError{Key: key, Expected: t, Actual: "string", Raw: raw}
		}
		return b, nil
	case types.TypePath:
		if strings.TrimSpace(raw) == "" {
			return nil, &SchemaTypeError{Key: key, Expected: t, Actual: "empty string", Raw: raw}
		}
		return raw, nil
	case types.TypeString:
		return raw, nil
	default:
		return nil, fmt.Errorf("key %s: unsupported type %q", key, t)
	}
}

// normalizeDefault coerces a yaml-decoded default to the option's declared
// type. yaml hands back int for integral literals and float64 otherwise.
func normalizeDefault(opt types.Option) (interface{}, error) {
	d := opt.Default
	switch opt.Type {
	case types.TypeInt:
		switch v := d.(type) {
		case nil:
			return int64(0), nil
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v == float64(int64(v)) {
				return int64(v), nil
			}
		}
	case types.TypeFloat:
		switch v := d.(type) {
		case nil:
			return float64(0), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case float64:
			return v, nil
		}
	case types.TypeBool:
		switch v := d.(type) {
		case nil:
			return false, nil
		case bool:
			return v, nil
		}
	case types.TypeString, types.TypePath:
		switch v := d.(type) {
		case nil:
			return "", nil
		case string:
			return v, nil
		}
	}
	return nil, fmt.Errorf("key %s: default %v does not match declared type %s", opt.Key, d, opt.Type)
}

// inferValue types a schema-extending literal: bool, then int, then float,
// falling back to string.
func inferValue(raw string) (types.OptionType, interface{}) {
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "true", "false":
		return types.TypeBool, trimmed == "true"
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return types.TypeInt, n
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return types.TypeFloat, f
	}
	return types.TypeString, raw
}
