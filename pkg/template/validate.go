package template

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTemplate marks structural problems in a template document.
var ErrInvalidTemplate = errors.New("template: invalid template")

// Validate checks the structural rules the materializer relies on: every
// field is named, names are unique among siblings, leaves declare a type, and
// groups have children.
func (t Template) Validate() error {
	if len(t.Fields) == 0 {
		return fmt.Errorf("%w: no fields declared", ErrInvalidTemplate)
	}
	return validateFields(t.Fields, "")
}

func validateFields(fields []Field, parent string) error {
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" {
			return fmt.Errorf("%w: unnamed field under %q", ErrInvalidTemplate, displayParent(parent))
		}
		path := JoinPath(parent, field.Name)
		if _, dup := seen[field.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidTemplate, path)
		}
		seen[field.Name] = struct{}{}

		if field.IsGroup() {
			if len(field.Fields) == 0 {
				return fmt.Errorf("%w: group %q has no fields", ErrInvalidTemplate, path)
			}
			if err := validateFields(field.Fields, path); err != nil {
				return err
			}
			continue
		}
		if strings.TrimSpace(string(field.Type)) == "" {
			return fmt.Errorf("%w: field %q has no type", ErrInvalidTemplate, path)
		}
	}
	return nil
}

// JoinPath appends a field name to a dotted parent path. The root path is
// empty, so top-level fields carry no leading separator.
func JoinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// Depth returns the nesting depth of the template: 1 for flat templates.
func (t Template) Depth() int {
	return depth(t.Fields)
}

func depth(fields []Field) int {
	deepest := 0
	for _, field := range fields {
		d := 1
		if field.IsGroup() {
			d += depth(field.Fields)
		}
		if d > deepest {
			deepest = d
		}
	}
	return deepest
}

func displayParent(parent string) string {
	if parent == "" {
		return "<root>"
	}
	return parent
}
