package materialize

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-sheets/pkg/testsupport"
	"github.com/goliatone/go-sheets/pkg/value"
)

func TestMaterialize_GoldenFixture(t *testing.T) {
	tpl := testsupport.MustLoadTemplate(t, filepath.Join("testdata", "dnd5e.template.json"))
	payload := testsupport.MustLoadPayload(t, filepath.Join("testdata", "dnd5e.payload.json"))

	m := New(WithIDGenerator(func() string { return "sheet-1" }))
	got, err := m.Materialize(tpl, payload, "owner-1")
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	if got.TemplateID != "64f1c0ffee" || got.TemplateSystemVersion != "5.1" {
		t.Fatalf("unexpected linkage %q %q", got.TemplateID, got.TemplateSystemVersion)
	}
	if _, ok := got.Data["pet"]; ok {
		t.Fatalf("payload keys outside the template must be dropped")
	}

	golden := filepath.Join("testdata", "dnd5e.sheet.golden.json")
	if diff := testsupport.CompareSheetGolden(t, golden, got.Data); diff != "" {
		t.Fatalf("sheet data mismatch (-want +got):\n%s", diff)
	}
}

func TestMaterialize_GoldenFixtureNestedFailure(t *testing.T) {
	tpl := testsupport.MustLoadTemplate(t, filepath.Join("testdata", "dnd5e.template.json"))
	payload := testsupport.MustLoadPayload(t, filepath.Join("testdata", "dnd5e.payload.json"))
	payload["inventory"] = value.Map(map[string]value.Value{"notes": value.String("rope")})

	_, err := New().Materialize(tpl, payload, "owner-1")
	if !errors.Is(err, ErrMissingRequiredField) {
		t.Fatalf("expected missing required field, got %v", err)
	}
	fieldErr, _ := AsFieldError(err)
	if fieldErr.Path != "inventory.gold" {
		t.Fatalf("unexpected path %q", fieldErr.Path)
	}
}
