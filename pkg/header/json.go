package header

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// FromJSON decodes a flat JSON object into a Set. Numbers without a
// fractional part become Int values, other numbers Float, strings String.
// Booleans are stored as 0/1 integers. Nested objects and arrays are not
// valid header values.
func FromJSON(data []byte) (Set, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid header JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("header JSON must be an object")
	}

	out := make(Set)
	var walkErr error
	root.ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.String:
			out[key.Str] = StringValue(value.Str)
		case gjson.Number:
			if isIntegerLiteral(value.Raw) {
				out[key.Str] = IntValue(value.Int())
			} else {
				out[key.Str] = FloatValue(value.Num)
			}
		case gjson.True:
			out[key.Str] = IntValue(1)
		case gjson.False:
			out[key.Str] = IntValue(0)
		case gjson.Null:
			out[key.Str] = StringValue("")
		default:
			walkErr = fmt.Errorf("header %q: value must be a scalar", key.Str)
			return false
		}
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return out, nil
}

// MarshalJSON encodes the set as a flat JSON object with sorted keys,
// preserving the string/number distinction so FromJSON round-trips types.
func (s Set) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		v := s[name]
		switch v.Kind() {
		case Int, Float:
			buf.WriteString(v.Text())
		default:
			val, err := json.Marshal(v.Text())
			if err != nil {
				return nil, err
			}
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func isIntegerLiteral(raw string) bool {
	return !strings.ContainsAny(raw, ".eE")
}
