// SPDX-License-Identifier: AGPL-3.0-or-later
package types

// OptionType enumerates the value types a schema option may declare.
// Types: int | float | bool | string | path
type OptionType string

const (
	TypeInt    OptionType = "int"
	TypeFloat  OptionType = "float"
	TypeBool   OptionType = "bool"
	TypeString OptionType = "string"
	TypePath   OptionType = "path"
)

// Valid reports whether t is one of the recognized option types.
func (t OptionType) Valid() bool {
	switch t {
	case TypeInt, TypeFloat, TypeBool, TypeString, TypePath:
		return true
	}
	return false
}

// Option declares a single dotted configuration key for a mode.
type Option struct {
	Key         string      `yaml:"key" json:"key"`
	Type        OptionType  `yaml:"type" json:"type"`
	Default     interface{} `yaml:"default,omitempty" json:"default,omitempty"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
}

// Schema is the fixed set of recognized keys for one mode. It is built once
// at load time and treated as read-only afterwards.
type Schema struct {
	Mode    string   `yaml:"mode" json:"mode"`
	Options []Option `yaml:"options" json:"options"`

	byKey map[string]int
}

// Lookup returns the option declared for key, if any.
func (s *Schema) Lookup(key string) (Option, bool) {
	if s == nil {
		return Option{}, false
	}
	if s.byKey == nil {
		s.index()
	}
	idx, ok := s.byKey[key]
	if !ok {
		return Option{}, false
	}
	return s.Options[idx], true
}

// Keys returns the declared keys in declaration order.
func (s *Schema) Keys() []string {
	out := make([]string, len(s.Options))
	for i, opt := range s.Options {
		out[i] = opt.Key
	}
	return out
}

func (s *Schema) index() {
	s.byKey = make(map[string]int, len(s.Options))
	for i, opt := range s.Options {
		s.byKey[opt.Key] = i
	}
}
