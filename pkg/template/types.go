// Package template models externally owned sheet templates: a named,
// versioned tree of fields that every sheet built from it must conform to.
package template

import "github.com/goliatone/go-sheets/pkg/value"

// FieldType is the declared primitive type of a leaf field. The set is open:
// types other than the constants below are accepted and carried through
// without a type check.
type FieldType string

const (
	FieldTypeString FieldType = "string"
	FieldTypeNumber FieldType = "number"
)

// FieldKind discriminates the two shapes a template field can take.
type FieldKind uint8

const (
	// KindLeaf fields carry a primitive type and an optional option set.
	KindLeaf FieldKind = iota
	// KindGroup fields carry child fields and no primitive type.
	KindGroup
)

func (k FieldKind) String() string {
	if k == KindGroup {
		return "group"
	}
	return "leaf"
}

// Field is a node of the template schema. Leaf fields use Type and Options;
// group fields use Fields. Options are copied onto the produced sheet field
// for both kinds.
type Field struct {
	Name     string
	Kind     FieldKind
	Type     FieldType
	Required bool
	Options  []value.Value
	Fields   []Field
}

// Leaf constructs a leaf field.
func Leaf(name string, typ FieldType, required bool, options ...value.Value) Field {
	field := Field{
		Name:     name,
		Kind:     KindLeaf,
		Type:     typ,
		Required: required,
	}
	if len(options) > 0 {
		field.Options = append([]value.Value(nil), options...)
	}
	return field
}

// Group constructs a group field holding children in declared order.
func Group(name string, required bool, children ...Field) Field {
	return Field{
		Name:     name,
		Kind:     KindGroup,
		Required: required,
		Fields:   append([]Field(nil), children...),
	}
}

// IsGroup reports whether the field is a nested group.
func (f Field) IsGroup() bool { return f.Kind == KindGroup }

// Template is the schema a sheet is materialized against. ID, SystemName,
// and Version are copied verbatim into every sheet built from it.
type Template struct {
	ID          string
	SystemName  string
	Version     string
	Name        string
	Description string
	Fields      []Field
}

// Ref identifies a template by id or by system name. When both are set the
// id takes precedence.
type Ref struct {
	ID         string
	SystemName string
}

// IsZero reports whether neither identifier is set.
func (r Ref) IsZero() bool { return r.ID == "" && r.SystemName == "" }

func (r Ref) String() string {
	if r.ID != "" {
		return "id=" + r.ID
	}
	if r.SystemName != "" {
		return "system_name=" + r.SystemName
	}
	return "<empty>"
}
