package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-sheets/pkg/value"
)

type fieldJSON struct {
	Name     string        `json:"name"`
	Type     FieldType     `json:"type,omitempty"`
	Required *bool         `json:"required,omitempty"`
	Options  []value.Value `json:"options,omitempty"`
	Fields   []Field       `json:"fields,omitempty"`
}

// UnmarshalJSON decodes the template service field shape. A field with a
// non-empty "fields" list is a group; "fields" wins when "type" is also set.
// An absent "required" means required.
func (f *Field) UnmarshalJSON(data []byte) error {
	var raw fieldJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := Field{
		Name:     raw.Name,
		Type:     raw.Type,
		Required: true,
		Options:  raw.Options,
	}
	if raw.Required != nil {
		out.Required = *raw.Required
	}
	if len(raw.Fields) > 0 {
		out.Kind = KindGroup
		out.Fields = raw.Fields
		out.Type = ""
	}
	*f = out
	return nil
}

// MarshalJSON encodes the field in the template service shape.
func (f Field) MarshalJSON() ([]byte, error) {
	required := f.Required
	raw := fieldJSON{
		Name:     f.Name,
		Required: &required,
		Options:  f.Options,
	}
	if f.IsGroup() {
		raw.Fields = f.Fields
		if raw.Fields == nil {
			raw.Fields = []Field{}
		}
	} else {
		raw.Type = f.Type
	}
	return json.Marshal(raw)
}

type templateJSON struct {
	ID          string          `json:"id,omitempty"`
	MongoID     string          `json:"_id,omitempty"`
	SystemName  string          `json:"system_name"`
	Version     json.RawMessage `json:"version,omitempty"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Fields      []Field         `json:"fields"`
}

// UnmarshalJSON accepts "id" or "_id" for the identifier and a string or
// numeric "version".
func (t *Template) UnmarshalJSON(data []byte) error {
	var raw templateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	version, err := decodeVersion(raw.Version)
	if err != nil {
		return err
	}
	id := raw.ID
	if id == "" {
		id = raw.MongoID
	}
	*t = Template{
		ID:          id,
		SystemName:  raw.SystemName,
		Version:     version,
		Name:        raw.Name,
		Description: raw.Description,
		Fields:      raw.Fields,
	}
	return nil
}

// MarshalJSON encodes the template in the template service shape.
func (t Template) MarshalJSON() ([]byte, error) {
	version, err := json.Marshal(t.Version)
	if err != nil {
		return nil, err
	}
	fields := t.Fields
	if fields == nil {
		fields = []Field{}
	}
	return json.Marshal(templateJSON{
		ID:          t.ID,
		SystemName:  t.SystemName,
		Version:     version,
		Name:        t.Name,
		Description: t.Description,
		Fields:      fields,
	})
}

func decodeVersion(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("template: version: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", fmt.Errorf("template: version must be a string or number: %w", err)
	}
	return strings.TrimSpace(n.String()), nil
}

// Decode parses a template document from JSON and validates its structure.
func Decode(data []byte) (Template, error) {
	var tpl Template
	if err := json.Unmarshal(data, &tpl); err != nil {
		return Template{}, fmt.Errorf("template: decode: %w", err)
	}
	if err := tpl.Validate(); err != nil {
		return Template{}, err
	}
	return tpl, nil
}
