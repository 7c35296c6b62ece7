// Package materialize turns a template plus a user payload into a sheet.
//
// The pipeline has three stages. ValidateField checks a single leaf value.
// Materializer.Build walks the template's field tree alongside the payload,
// recursing into groups and producing the sheet data tree. Materializer.Assemble
// wraps the tree with identity and template linkage. All three are pure and
// safe for concurrent use; a walk stops at the first violation.
package materialize

import (
	"github.com/google/uuid"

	"github.com/goliatone/go-sheets/pkg/sheet"
	"github.com/goliatone/go-sheets/pkg/template"
	"github.com/goliatone/go-sheets/pkg/value"
)

// IDGenerator returns a fresh sheet identifier.
type IDGenerator func() string

// Option customises a Materializer.
type Option func(*Materializer)

// WithMaxDepth overrides the nesting limit. Non-positive values keep the default.
func WithMaxDepth(depth int) Option {
	return func(m *Materializer) {
		if depth > 0 {
			m.maxDepth = depth
		}
	}
}

// WithIDGenerator overrides the sheet identifier source.
func WithIDGenerator(fn IDGenerator) Option {
	return func(m *Materializer) {
		if fn != nil {
			m.ids = fn
		}
	}
}

// Materializer holds the walk configuration. The zero value is not usable;
// construct with New.
type Materializer struct {
	maxDepth int
	ids      IDGenerator
}

// New constructs a Materializer with random UUID identifiers and
// DefaultMaxDepth.
func New(options ...Option) *Materializer {
	m := &Materializer{
		maxDepth: DefaultMaxDepth,
		ids:      uuid.NewString,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(m)
	}
	return m
}

// MaxDepth reports the configured nesting limit.
func (m *Materializer) MaxDepth() int { return m.maxDepth }

// Assemble wraps data with a fresh identifier, the template linkage, and the
// owner. The owner is not inspected here.
func (m *Materializer) Assemble(tpl template.Template, data sheet.Data, ownerID string) sheet.Sheet {
	if data == nil {
		data = sheet.Data{}
	}
	return sheet.Sheet{
		ID:                    m.ids(),
		TemplateID:            tpl.ID,
		TemplateSystemName:    tpl.SystemName,
		TemplateSystemVersion: tpl.Version,
		OwnerID:               ownerID,
		Data:                  data,
	}
}

// Materialize runs Build from the template root and then Assemble.
func (m *Materializer) Materialize(tpl template.Template, userData map[string]value.Value, ownerID string) (sheet.Sheet, error) {
	data, err := m.Build(userData, tpl.Fields, "")
	if err != nil {
		return sheet.Sheet{}, err
	}
	return m.Assemble(tpl, data, ownerID), nil
}

// Assemble uses a default Materializer. See Materializer.Assemble.
func Assemble(tpl template.Template, data sheet.Data, ownerID string) sheet.Sheet {
	return New().Assemble(tpl, data, ownerID)
}
