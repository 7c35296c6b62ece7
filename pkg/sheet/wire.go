package sheet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/goliatone/go-sheets/pkg/value"
)

// ErrMalformed is returned when a wire document does not have the sheet field
// shape.
var ErrMalformed = errors.New("sheet: malformed data")

// Wire converts the tree into plain maps:
//
//	{"hp": {"value": 10, "required": true}, "stats": {"value": {"str": {...}}, "required": true}}
//
// The result is the shape used for JSON responses and CBOR storage.
func (d Data) Wire() map[string]any {
	out := make(map[string]any, len(d))
	for name, field := range d {
		out[name] = field.wire()
	}
	return out
}

func (f Field) wire() map[string]any {
	node := map[string]any{
		"required": f.Required,
	}
	if f.IsGroup() {
		node["value"] = f.Fields.Wire()
	} else {
		node["value"] = f.Value.Interface()
	}
	if len(f.Options) > 0 {
		options := make([]any, 0, len(f.Options))
		for _, option := range f.Options {
			options = append(options, option.Interface())
		}
		node["options"] = options
	}
	return node
}

// DataFromWire rebuilds a tree from its wire form. A mapping under "value"
// marks a group.
func DataFromWire(raw map[string]any) (Data, error) {
	return dataFromWire(raw, "")
}

func dataFromWire(raw map[string]any, parent string) (Data, error) {
	out := make(Data, len(raw))
	for name, node := range raw {
		path := name
		if parent != "" {
			path = parent + "." + name
		}
		fieldMap, ok := node.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a field object", ErrMalformed, path)
		}
		field, err := fieldFromWire(fieldMap, path)
		if err != nil {
			return nil, err
		}
		out[name] = field
	}
	return out, nil
}

func fieldFromWire(raw map[string]any, path string) (Field, error) {
	var field Field
	if required, ok := raw["required"].(bool); ok {
		field.Required = required
	} else if _, present := raw["required"]; !present {
		field.Required = true
	} else {
		return Field{}, fmt.Errorf("%w: %s.required is not a boolean", ErrMalformed, path)
	}

	if rawOptions, ok := raw["options"]; ok && rawOptions != nil {
		list, ok := rawOptions.([]any)
		if !ok {
			return Field{}, fmt.Errorf("%w: %s.options is not a list", ErrMalformed, path)
		}
		for _, item := range list {
			option, err := value.FromAny(item)
			if err != nil {
				return Field{}, fmt.Errorf("%w: %s.options: %v", ErrMalformed, path, err)
			}
			field.Options = append(field.Options, option)
		}
	}

	rawValue, ok := raw["value"]
	if !ok {
		return Field{}, fmt.Errorf("%w: %s has no value", ErrMalformed, path)
	}
	if nested, ok := rawValue.(map[string]any); ok {
		children, err := dataFromWire(nested, path)
		if err != nil {
			return Field{}, err
		}
		field.Fields = children
		return field, nil
	}
	leaf, err := value.FromAny(rawValue)
	if err != nil {
		return Field{}, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	field.Value = leaf
	return field, nil
}

// MarshalJSON encodes the wire form.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.wire())
}

// UnmarshalJSON decodes the wire form.
func (f *Field) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	field, err := fieldFromWire(raw, "field")
	if err != nil {
		return err
	}
	*f = field
	return nil
}

// MarshalJSON encodes the wire form; a nil tree encodes as an empty object.
func (d Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Wire())
}

// UnmarshalJSON decodes the wire form.
func (d *Data) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	parsed, err := DataFromWire(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return raw, nil
}
