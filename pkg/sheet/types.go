// Package sheet defines the materialized sheet document: a tree of sheet
// fields produced from a template and a user payload, plus the metadata that
// links it to its template and owner.
package sheet

import "github.com/goliatone/go-sheets/pkg/value"

// Field is a node of a materialized sheet. Leaf fields hold a scalar Value;
// group fields hold nested Fields. Required and Options are copied from the
// template field the node was built from.
type Field struct {
	Value    value.Value
	Fields   Data
	Required bool
	Options  []value.Value
}

// Leaf builds a leaf sheet field.
func Leaf(v value.Value, required bool, options []value.Value) Field {
	return Field{
		Value:    v,
		Required: required,
		Options:  cloneOptions(options),
	}
}

// Group builds a group sheet field. A nil children map is stored as empty so
// the field still reports as a group.
func Group(children Data, required bool, options []value.Value) Field {
	if children == nil {
		children = Data{}
	}
	return Field{
		Fields:   children,
		Required: required,
		Options:  cloneOptions(options),
	}
}

// IsGroup reports whether the field holds nested fields.
func (f Field) IsGroup() bool { return f.Fields != nil }

// Data maps field names to sheet fields.
type Data map[string]Field

// Lookup resolves a dotted path inside the tree.
func (d Data) Lookup(path ...string) (Field, bool) {
	current := d
	for i, name := range path {
		field, ok := current[name]
		if !ok {
			return Field{}, false
		}
		if i == len(path)-1 {
			return field, true
		}
		if !field.IsGroup() {
			return Field{}, false
		}
		current = field.Fields
	}
	return Field{}, false
}

// MapFreeText returns a copy of the tree with fn applied to every string leaf
// that declares no options. Option-constrained leaves keep their value so it
// stays a member of its option set.
func (d Data) MapFreeText(fn func(string) string) Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for name, field := range d {
		if field.IsGroup() {
			field.Fields = field.Fields.MapFreeText(fn)
		} else if s, ok := field.Value.Str(); ok && len(field.Options) == 0 {
			field.Value = value.String(fn(s))
		}
		out[name] = field
	}
	return out
}

// Clone returns a deep copy of the tree.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for name, field := range d {
		field.Fields = field.Fields.Clone()
		field.Options = cloneOptions(field.Options)
		out[name] = field
	}
	return out
}

// Sheet is the persisted entity.
type Sheet struct {
	ID                    string `json:"id"`
	TemplateID            string `json:"template_id"`
	TemplateSystemName    string `json:"template_system_name"`
	TemplateSystemVersion string `json:"template_system_version"`
	OwnerID               string `json:"owner_id"`
	Data                  Data   `json:"data"`
}

// Patch carries a partial update. Nil members are left untouched; linkage
// fields are immutable and cannot be patched.
type Patch struct {
	OwnerID *string
	Data    Data
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool { return p.OwnerID == nil && p.Data == nil }

// Apply returns s with the patch applied.
func (p Patch) Apply(s Sheet) Sheet {
	if p.OwnerID != nil {
		s.OwnerID = *p.OwnerID
	}
	if p.Data != nil {
		s.Data = p.Data
	}
	return s
}

func cloneOptions(options []value.Value) []value.Value {
	if len(options) == 0 {
		return nil
	}
	return append([]value.Value(nil), options...)
}
