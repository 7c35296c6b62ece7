package template

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-sheets/pkg/value"
)

func TestDecode_TemplateServiceShape(t *testing.T) {
	raw := []byte(`{
  "_id": "665f1c",
  "system_name": "Tormenta20",
  "version": 2,
  "fields": [
    {"name": "hp", "type": "number", "required": true},
    {"name": "class", "type": "string", "options": ["warrior", "mage"]},
    {"name": "stats", "required": false, "fields": [
      {"name": "str", "type": "number", "required": true}
    ]}
  ]
}`)

	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := Template{
		ID:         "665f1c",
		SystemName: "Tormenta20",
		Version:    "2",
		Fields: []Field{
			Leaf("hp", FieldTypeNumber, true),
			Leaf("class", FieldTypeString, true, value.String("warrior"), value.String("mage")),
			Group("stats", false, Leaf("str", FieldTypeNumber, true)),
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("template mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_FieldsWinOverType(t *testing.T) {
	raw := []byte(`{"id": "t", "system_name": "s", "version": "1", "fields": [
    {"name": "g", "type": "string", "required": true, "fields": [{"name": "x", "type": "number"}]}
  ]}`)

	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	field := got.Fields[0]
	if !field.IsGroup() || field.Type != "" {
		t.Fatalf("expected group without type, got %+v", field)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		tpl  Template
	}{
		{"no fields", Template{ID: "t"}},
		{"unnamed", Template{Fields: []Field{Leaf("", FieldTypeString, true)}}},
		{"duplicate siblings", Template{Fields: []Field{
			Leaf("a", FieldTypeString, true),
			Leaf("a", FieldTypeNumber, true),
		}}},
		{"leaf without type", Template{Fields: []Field{Leaf("a", "", true)}}},
		{"empty group", Template{Fields: []Field{Group("g", true)}}},
		{"nested duplicate", Template{Fields: []Field{
			Group("g", true, Leaf("x", FieldTypeString, true), Leaf("x", FieldTypeString, true)),
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.tpl.Validate(); !errors.Is(err, ErrInvalidTemplate) {
				t.Fatalf("expected ErrInvalidTemplate, got %v", err)
			}
		})
	}
}

func TestValidate_SameNameInDifferentGroups(t *testing.T) {
	tpl := Template{Fields: []Field{
		Group("left", true, Leaf("value", FieldTypeNumber, true)),
		Group("right", true, Leaf("value", FieldTypeNumber, true)),
	}}
	if err := tpl.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl.Depth() != 2 {
		t.Fatalf("expected depth 2, got %d", tpl.Depth())
	}
}

func TestMarshalJSON_RoundTripsShape(t *testing.T) {
	tpl := Template{
		ID:         "t1",
		SystemName: "dnd5e",
		Version:    "5.1",
		Fields: []Field{
			Leaf("hp", FieldTypeNumber, false),
			Group("stats", true, Leaf("str", FieldTypeNumber, true)),
		},
	}
	data, err := json.Marshal(tpl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Template
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(tpl, decoded); diff != "" {
		t.Fatalf("template mismatch (-want +got):\n%s", diff)
	}
}

func TestRef(t *testing.T) {
	if !(Ref{}).IsZero() {
		t.Fatalf("empty ref should be zero")
	}
	if got := (Ref{ID: "a", SystemName: "b"}).String(); got != "id=a" {
		t.Fatalf("id should take precedence, got %q", got)
	}
}
