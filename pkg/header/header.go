// Package header models the metadata of a single frame: a partial mapping
// from header keyword to a typed scalar value. Two sets take part in every
// rule evaluation, the reference (the frame being reduced) and the candidate
// (one indexed calibration frame).
package header

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the scalar type a Value was built from.
type Kind uint8

const (
	String Kind = iota
	Int
	Float
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	default:
		return "string"
	}
}

// Value is one header scalar. The textual form is canonical; numeric
// operators coerce it on demand, so "10" and 10.0 compare equal.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
}

func StringValue(s string) Value { return Value{kind: String, s: s} }
func IntValue(i int64) Value     { return Value{kind: Int, i: i} }
func FloatValue(f float64) Value { return Value{kind: Float, f: f} }

func (v Value) Kind() Kind { return v.kind }

// Text returns the canonical textual form of the value.
func (v Value) Text() string {
	switch v.kind {
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return v.s
	}
}

// Float coerces the value to a float64. String values are parsed; a value
// that does not parse as a number returns an error.
func (v Value) Float() (float64, error) {
	switch v.kind {
	case Int:
		return float64(v.i), nil
	case Float:
		return v.f, nil
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, fmt.Errorf("value %q is not numeric", v.s)
		}
		return f, nil
	}
}

// IsNumeric reports whether Float would succeed.
func (v Value) IsNumeric() bool {
	_, err := v.Float()
	return err == nil
}

// Set is a partial mapping from keyword to value. Keys are case-sensitive
// and may be dotted hierarchical names; they are treated as opaque.
// A missing key is a distinct outcome from a key holding an empty string.
type Set map[string]Value

// Lookup returns the value for name and whether it exists.
func (s Set) Lookup(name string) (Value, bool) {
	v, ok := s[name]
	return v, ok
}

// Names returns all keywords in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
