package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-sheets/pkg/prompt"
)

const templateYAML = `id: tpl-1
system_name: dnd5e
version: 5.1
name: Fifth Edition
fields:
  - name: name
    type: string
  - name: class
    type: string
    required: false
    options: [mage, warrior]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, driver prompt.Driver, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand(&stdout, &stderr, driver)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestValidate_PrintsSheet(t *testing.T) {
	dir := t.TempDir()
	tplPath := writeFile(t, dir, "dnd.yaml", templateYAML)
	dataPath := writeFile(t, dir, "data.json", `{"name":"Aria","class":"mage"}`)

	out, err := execute(t, nil, "validate", "--template", tplPath, "--data", dataPath, "--owner", "u1")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	delete(got, "id")
	want := map[string]any{
		"template_id":             "tpl-1",
		"template_system_name":    "dnd5e",
		"template_system_version": "5.1",
		"owner_id":                "u1",
		"data": map[string]any{
			"name":  map[string]any{"value": "Aria", "required": true},
			"class": map[string]any{"value": "mage", "required": false, "options": []any{"mage", "warrior"}},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sheet mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_ReportsFieldError(t *testing.T) {
	dir := t.TempDir()
	tplPath := writeFile(t, dir, "dnd.yaml", templateYAML)
	dataPath := writeFile(t, dir, "data.json", `{"name":"Aria","class":"bard"}`)

	out, err := execute(t, nil, "validate", "-t", tplPath, "-d", dataPath)
	var silent silentError
	if !errors.As(err, &silent) {
		t.Fatalf("expected silent error, got %v", err)
	}

	var got failure
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got.Error.Code != "invalid_option" || got.Error.Path != "class" {
		t.Fatalf("unexpected failure %#v", got.Error)
	}
}

type answers struct {
	inputs  []string
	selects []int
}

func (a *answers) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	answer := a.inputs[0]
	a.inputs = a.inputs[1:]
	return answer, nil
}

func (a *answers) Confirm(context.Context, prompt.ConfirmConfig) (bool, error) { return true, nil }

func (a *answers) Select(context.Context, prompt.SelectConfig) (int, error) {
	answer := a.selects[0]
	a.selects = a.selects[1:]
	return answer, nil
}

func (a *answers) Info(context.Context, string) error { return nil }

func TestFill_UsesDriverAnswers(t *testing.T) {
	tplPath := writeFile(t, t.TempDir(), "dnd.yaml", templateYAML)
	// Optional selects list "(skip)" first, so index 2 is "warrior".
	driver := &answers{inputs: []string{"Aria"}, selects: []int{2}}

	out, err := execute(t, driver, "fill", "--template", tplPath, "--owner", "u1")
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if !strings.Contains(out, `"warrior"`) || !strings.Contains(out, `"Aria"`) {
		t.Fatalf("unexpected output %s", out)
	}
}

func TestRender_WritesHTML(t *testing.T) {
	dir := t.TempDir()
	sheetPath := writeFile(t, dir, "sheet.json", `{
		"id": "sheet-1",
		"template_id": "tpl-1",
		"template_system_name": "dnd5e",
		"template_system_version": "5.1",
		"owner_id": "u1",
		"data": {"name": {"value": "Aria", "required": true}}
	}`)
	output := filepath.Join(dir, "sheet.html")

	if _, err := execute(t, nil, "render", "--sheet", sheetPath, "-o", output); err != nil {
		t.Fatalf("render: %v", err)
	}
	html, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(html), "Aria") {
		t.Fatalf("expected sheet name in HTML, got %s", html)
	}
}

func TestTemplates_ListsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dnd.yaml", templateYAML)
	writeFile(t, dir, "notes.txt", "ignored")

	out, err := execute(t, nil, "templates", "--dir", dir)
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	if want := "tpl-1\tdnd5e\t5.1\tFifth Edition\n"; out != want {
		t.Fatalf("unexpected listing %q, want %q", out, want)
	}
}
