package materialize

import (
	"github.com/goliatone/go-sheets/pkg/sheet"
	"github.com/goliatone/go-sheets/pkg/template"
	"github.com/goliatone/go-sheets/pkg/value"
)

// DefaultMaxDepth bounds template nesting during a walk.
const DefaultMaxDepth = 32

// Build walks the template fields alongside the user data and produces the
// sheet data tree, using DefaultMaxDepth. See Materializer.Build.
func Build(userData map[string]value.Value, fields []template.Field, parentPath string) (sheet.Data, error) {
	return New().Build(userData, fields, parentPath)
}

// Build walks fields in declared order. Absent optional fields are omitted;
// the first absent required field, type mismatch, or option violation aborts
// the walk and is returned as a *FieldError carrying the dotted path.
func (m *Materializer) Build(userData map[string]value.Value, fields []template.Field, parentPath string) (sheet.Data, error) {
	return m.walk(userData, fields, parentPath, 1)
}

func (m *Materializer) walk(userData map[string]value.Value, fields []template.Field, parentPath string, depth int) (sheet.Data, error) {
	out := make(sheet.Data, len(fields))

	for _, field := range fields {
		path := template.JoinPath(parentPath, field.Name)

		raw, present := userData[field.Name]
		if !present {
			if field.Required {
				return nil, missingField(path)
			}
			continue
		}

		if field.IsGroup() {
			nested, ok := raw.Fields()
			if !ok {
				return nil, typeMismatch(path, value.KindMap.String())
			}
			if depth >= m.maxDepth {
				return nil, depthExceeded(path, m.maxDepth)
			}
			children, err := m.walk(nested, field.Fields, path, depth+1)
			if err != nil {
				return nil, err
			}
			out[field.Name] = sheet.Group(children, field.Required, field.Options)
			continue
		}

		if err := ValidateField(raw, field, path); err != nil {
			return nil, err
		}
		out[field.Name] = sheet.Leaf(raw, field.Required, field.Options)
	}

	return out, nil
}
