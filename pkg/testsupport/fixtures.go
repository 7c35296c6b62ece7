// Package testsupport loads template, payload, and sheet fixtures for tests
// and maintains JSON golden files. Set UPDATE_GOLDENS=1 to rewrite goldens
// from the current output.
package testsupport

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-sheets/pkg/sheet"
	"github.com/goliatone/go-sheets/pkg/template"
	"github.com/goliatone/go-sheets/pkg/value"
)

// MustLoadTemplate reads and validates a JSON template fixture.
func MustLoadTemplate(t *testing.T, path string) template.Template {
	t.Helper()

	tpl, err := LoadTemplate(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	return tpl
}

// LoadTemplate returns a template without requiring testing.T so fixtures can
// be wired in setup functions.
func LoadTemplate(path string) (template.Template, error) {
	if path == "" {
		return template.Template{}, errors.New("testsupport: template path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return template.Template{}, fmt.Errorf("testsupport: read template: %w", err)
	}
	tpl, err := template.Decode(data)
	if err != nil {
		return template.Template{}, fmt.Errorf("testsupport: decode template %s: %w", path, err)
	}
	return tpl, nil
}

// MustLoadPayload reads a JSON object of user field values.
func MustLoadPayload(t *testing.T, path string) map[string]value.Value {
	t.Helper()

	data := MustReadGolden(t, path)
	fields, err := value.ParseObject(data)
	if err != nil {
		t.Fatalf("parse payload %s: %v", path, err)
	}
	return fields
}

// WriteGolden writes v as indented JSON when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, v any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	payload = append(payload, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// CompareSheetGolden compares the wire form of data against the golden file
// at path, ignoring key order and whitespace. It returns a cmp diff, empty
// when they match.
func CompareSheetGolden(t *testing.T, path string, data sheet.Data) string {
	t.Helper()

	WriteGolden(t, path, data)

	var want any
	if err := json.Unmarshal(MustReadGolden(t, path), &want); err != nil {
		t.Fatalf("decode golden %s: %v", path, err)
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal sheet data: %v", err)
	}
	var got any
	if err := json.Unmarshal(encoded, &got); err != nil {
		t.Fatalf("decode sheet data: %v", err)
	}
	return cmp.Diff(want, got)
}
