package materialize

import (
	"github.com/goliatone/go-sheets/pkg/template"
	"github.com/goliatone/go-sheets/pkg/value"
)

const expectedScalar = "scalar"

// ValidateField checks a single leaf value against its template field.
// Number and string types are type-checked; any other declared type passes
// through unchecked. A non-empty option set must contain the value. Leaves
// never accept mappings, whatever their declared type.
func ValidateField(v value.Value, field template.Field, path string) error {
	if !v.IsValid() || v.IsMap() {
		expected := string(field.Type)
		if expected != string(template.FieldTypeNumber) && expected != string(template.FieldTypeString) {
			expected = expectedScalar
		}
		return typeMismatch(path, expected)
	}

	switch field.Type {
	case template.FieldTypeNumber:
		if !v.IsNumber() {
			return typeMismatch(path, string(template.FieldTypeNumber))
		}
	case template.FieldTypeString:
		if !v.IsString() {
			return typeMismatch(path, string(template.FieldTypeString))
		}
	}

	if len(field.Options) > 0 && !v.In(field.Options) {
		return invalidOption(path, field.Options)
	}
	return nil
}
