package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind tags the active representation of a Value.
type Kind uint8

const (
	KindInteger Kind = iota
	KindFloat
	KindText
)

// String returns the wire literal used in var_config_list responses.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "INT"
	case KindFloat:
		return "FLOAT"
	case KindText:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// ParseKind maps a configuration type name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "int", "integer":
		return KindInteger, nil
	case "float":
		return KindFloat, nil
	case "string", "text":
		return KindText, nil
	default:
		return 0, fmt.Errorf("unknown variable type %q", s)
	}
}

// Value is a tagged union over integer, float, and text. Exactly one
// representation is active, selected by the kind.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

func IntValue(v int64) Value     { return Value{kind: KindInteger, i: v} }
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }
func TextValue(v string) Value   { return Value{kind: KindText, s: v} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) Int() int64     { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) Text() string   { return v.s }

// Interface returns the active representation as a plain Go value.
func (v Value) Interface() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	default:
		return v.s
	}
}

// MarshalJSON emits only the active representation.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Variable is one typed, externally controllable slot in the registry.
// Variables are created once at startup and never destroyed; only the
// value mutates, and only through validated set operations.
type Variable struct {
	Name      string
	Kind      Kind
	Value     Value
	HasLimits bool
	Min       float64
	Max       float64
}

// Info is the serializable snapshot returned by configuration enumeration.
type Info struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Value     Value    `json:"value"`
	HasLimits bool     `json:"hasLimits"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
}

// Info builds the enumeration snapshot for the variable.
func (v Variable) Info() Info {
	info := Info{
		Name:      v.Name,
		Type:      v.Kind.String(),
		Value:     v.Value,
		HasLimits: v.HasLimits,
	}
	if v.HasLimits {
		min, max := v.Min, v.Max
		info.Min = &min
		info.Max = &max
	}
	return info
}
