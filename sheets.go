// Package sheets materializes character sheets from externally defined
// templates. The root package re-exports the types most callers need; the
// pieces live under pkg/:
//
//   - pkg/value and pkg/template describe payloads and template field trees
//   - pkg/materialize validates a payload against a template
//   - pkg/service orchestrates provider, materializer, and store
//   - pkg/render prints a sheet as HTML
//
// components/sheetsapi mounts the service on a net/http mux.
package sheets

import (
	"io/fs"

	"github.com/goliatone/go-sheets/pkg/materialize"
	"github.com/goliatone/go-sheets/pkg/render"
	"github.com/goliatone/go-sheets/pkg/service"
	"github.com/goliatone/go-sheets/pkg/sheet"
	"github.com/goliatone/go-sheets/pkg/template"
	"github.com/goliatone/go-sheets/pkg/value"
)

// Template is a template document from the template service.
type Template = template.Template

// TemplateField is one node of a template's field tree.
type TemplateField = template.Field

// Sheet is a materialized, persisted sheet.
type Sheet = sheet.Sheet

// SheetField is one node of a sheet's data tree.
type SheetField = sheet.Field

// Value is a dynamically typed payload value.
type Value = value.Value

// FieldError describes the field that stopped materialization.
type FieldError = materialize.FieldError

// NewService exposes the service constructor from the top-level module.
func NewService(options ...service.Option) *service.Service {
	return service.New(options...)
}

// Materialize validates userData against tpl and assembles a sheet owned by
// ownerID. Validation failures are *FieldError values.
func Materialize(tpl Template, userData map[string]Value, ownerID string, options ...materialize.Option) (Sheet, error) {
	return materialize.New(options...).Materialize(tpl, userData, ownerID)
}

// EmbeddedTemplates exposes the built-in HTML layouts.
func EmbeddedTemplates() fs.FS {
	return render.TemplatesFS()
}
