// Package value holds the tagged-variant payload type used for user-submitted
// sheet data and template option sets.
package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindMap:
		return "object"
	default:
		return "invalid"
	}
}

// ErrUnsupported is returned when decoded input holds a node that is not a
// string, number, boolean, or object (null and arrays).
var ErrUnsupported = errors.New("value: unsupported value")

// Value is a payload node: exactly one of string, number, boolean, or a
// mapping from name to Value. The zero Value is invalid.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	m    map[string]Value
}

// String builds a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number builds a number Value. Integers and floats share one representation.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Bool builds a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Map builds a mapping Value. A nil map is treated as empty.
func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsValid() bool { return v.kind != KindInvalid }
func (v Value) IsMap() bool { return v.kind == KindMap }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsString() bool { return v.kind == KindString }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload and whether v is a number.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Boolean returns the boolean payload and whether v is a boolean.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Fields returns the mapping payload and whether v is a mapping. The returned
// map must not be mutated.
func (v Value) Fields() (map[string]Value, bool) { return v.m, v.kind == KindMap }

// Equal reports whether two values have the same kind and payload. Mappings
// are compared recursively.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num
	case KindBool:
		return v.b == other.b
	case KindMap:
		if len(v.m) != len(other.m) {
			return false
		}
		for key, left := range v.m {
			right, ok := other.m[key]
			if !ok || !left.Equal(right) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// In reports whether v equals any member of set.
func (v Value) In(set []Value) bool {
	for _, candidate := range set {
		if v.Equal(candidate) {
			return true
		}
	}
	return false
}

// Interface converts v to plain Go values: string, float64, bool, or
// map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindMap:
		out := make(map[string]any, len(v.m))
		for key, child := range v.m {
			out[key] = child.Interface()
		}
		return out
	default:
		return nil
	}
}

// Display renders scalars the way they are written in JSON. Numbers without a
// fractional part print as integers.
func (v Value) Display() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return formatNumber(v.num)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindMap:
		keys := SortedKeys(v.m)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, key+": "+v.m[key].Display())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// MarshalJSON encodes v as its natural JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return nil, fmt.Errorf("%w: non-finite number", ErrUnsupported)
		}
		return []byte(formatNumber(v.num)), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindMap:
		return json.Marshal(v.m)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON string, number, boolean, or object.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromAny converts decoded JSON/YAML/CBOR data into a Value, checking the kind
// of every node. Null and arrays are rejected with ErrUnsupported; the error
// names the dotted path of the offending node.
func FromAny(raw any) (Value, error) {
	return fromAny(raw, "")
}

func fromAny(raw any, path string) (Value, error) {
	switch typed := raw.(type) {
	case string:
		return String(typed), nil
	case bool:
		return Bool(typed), nil
	case float64:
		return Number(typed), nil
	case float32:
		return Number(float64(typed)), nil
	case int:
		return Number(float64(typed)), nil
	case int64:
		return Number(float64(typed)), nil
	case uint64:
		return Number(float64(typed)), nil
	case json.Number:
		n, err := typed.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %s: %v", ErrUnsupported, describe(path), err)
		}
		return Number(n), nil
	case map[string]any:
		out := make(map[string]Value, len(typed))
		for key, child := range typed {
			converted, err := fromAny(child, joinPath(path, key))
			if err != nil {
				return Value{}, err
			}
			out[key] = converted
		}
		return Map(out), nil
	case nil:
		return Value{}, fmt.Errorf("%w: %s is null", ErrUnsupported, describe(path))
	default:
		return Value{}, fmt.Errorf("%w: %s has type %T", ErrUnsupported, describe(path), raw)
	}
}

// ParseObject decodes a JSON document that must be an object and returns its
// members. Numbers keep full float64 precision.
func ParseObject(data []byte) (map[string]Value, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: payload is empty", ErrUnsupported)
	}
	var parsed Value
	if err := parsed.UnmarshalJSON(trimmed); err != nil {
		return nil, err
	}
	fields, ok := parsed.Fields()
	if !ok {
		return nil, fmt.Errorf("%w: payload is a %s, not an object", ErrUnsupported, parsed.Kind())
	}
	return fields, nil
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

func describe(path string) string {
	if path == "" {
		return "value"
	}
	return "field " + path
}
