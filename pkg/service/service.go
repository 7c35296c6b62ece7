// Package service is the sheet creation API: it validates the request shape,
// resolves the template, materializes the payload, and persists the result.
// It also exposes the read, update, and delete operations the HTTP component
// serves.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"

	"github.com/goliatone/go-sheets/internal/store/memory"
	"github.com/goliatone/go-sheets/pkg/materialize"
	"github.com/goliatone/go-sheets/pkg/provider"
	"github.com/goliatone/go-sheets/pkg/sheet"
	"github.com/goliatone/go-sheets/pkg/store"
	"github.com/goliatone/go-sheets/pkg/template"
	"github.com/goliatone/go-sheets/pkg/value"
)

const maxSanitizePasses = 4

// CreateRequest carries the inputs of a sheet creation. TemplateID wins over
// SystemName when both are set. RawFields, when non-empty, is decoded and
// takes the place of Fields.
type CreateRequest struct {
	TemplateID string
	SystemName string
	OwnerID    string
	Fields     map[string]value.Value
	RawFields  json.RawMessage
}

// UpdateRequest carries a partial update. Nil OwnerID and absent fields leave
// the stored values untouched.
type UpdateRequest struct {
	OwnerID   *string
	Fields    map[string]value.Value
	RawFields json.RawMessage
}

func (r UpdateRequest) hasFields() bool {
	return r.Fields != nil || len(r.RawFields) > 0
}

// Service coordinates provider, materializer, and store.
type Service struct {
	provider     provider.Provider
	store        store.Store
	materializer *materialize.Materializer
	sanitizer    Sanitizer
	revalidate   bool
	logger       *slog.Logger
	initErr      error
}

// New constructs a Service. Missing optional dependencies get defaults; a
// missing provider is reported by every operation that needs one.
func New(options ...Option) *Service {
	s := &Service{revalidate: true}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.store == nil {
		s.store = memory.New()
	}
	if s.materializer == nil {
		s.materializer = materialize.New()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.provider == nil {
		s.initErr = errors.New("service: template provider is required")
	}
	return s
}

// Store exposes the configured store so callers can close it.
func (s *Service) Store() store.Store { return s.store }

// Create runs the creation pipeline. Checks happen in a fixed order:
// identifier, owner, fields payload, template resolution, materialization,
// persistence. The returned sheet carries the stored id.
func (s *Service) Create(ctx context.Context, req CreateRequest) (sheet.Sheet, error) {
	if err := ctx.Err(); err != nil {
		return sheet.Sheet{}, err
	}
	ref := template.Ref{ID: req.TemplateID, SystemName: req.SystemName}
	if ref.IsZero() {
		return sheet.Sheet{}, ErrMissingIdentifier
	}
	if req.OwnerID == "" {
		return sheet.Sheet{}, ErrMissingOwner
	}
	fields, err := payload(req.Fields, req.RawFields)
	if err != nil {
		return sheet.Sheet{}, err
	}
	if err := s.initErr; err != nil {
		return sheet.Sheet{}, err
	}

	tpl, err := s.resolve(ctx, ref)
	if err != nil {
		return sheet.Sheet{}, err
	}

	doc, err := s.materializer.Materialize(tpl, fields, req.OwnerID)
	if err != nil {
		return sheet.Sheet{}, err
	}
	doc.Data = s.sanitize(doc.Data)

	id, err := s.store.Insert(ctx, doc)
	if err != nil {
		return sheet.Sheet{}, err
	}
	doc.ID = id

	s.logger.Info("sheet created",
		"sheet_id", doc.ID,
		"owner_id", doc.OwnerID,
		"template_id", doc.TemplateID,
	)
	return doc, nil
}

// Get returns the sheet with the given id.
func (s *Service) Get(ctx context.Context, id string) (sheet.Sheet, error) {
	return s.store.FindByID(ctx, id)
}

// ListByOwner returns the owner's sheets ordered by id.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]sheet.Sheet, error) {
	if ownerID == "" {
		return nil, ErrMissingOwner
	}
	return s.store.FindByOwner(ctx, ownerID)
}

// Update changes the owner and/or replaces the data tree. Replacement fields
// are materialized against the sheet's template when revalidation is on, and
// stored as plain required fields otherwise. Template linkage never changes.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (sheet.Sheet, error) {
	if req.OwnerID != nil && *req.OwnerID == "" {
		return sheet.Sheet{}, ErrMissingOwner
	}

	patch := sheet.Patch{OwnerID: req.OwnerID}
	if req.hasFields() {
		fields, err := payload(req.Fields, req.RawFields)
		if err != nil {
			return sheet.Sheet{}, err
		}
		data, err := s.replacementData(ctx, id, fields)
		if err != nil {
			return sheet.Sheet{}, err
		}
		patch.Data = s.sanitize(data)
	}

	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return sheet.Sheet{}, err
	}
	if !patch.IsEmpty() {
		s.logger.Info("sheet updated",
			"sheet_id", updated.ID,
			"owner_id", updated.OwnerID,
			"template_id", updated.TemplateID,
		)
	}
	return updated, nil
}

// Delete removes the sheet.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("sheet deleted", "sheet_id", id)
	return nil
}

// Templates lists the templates the provider offers.
func (s *Service) Templates(ctx context.Context) ([]template.Template, error) {
	if err := s.initErr; err != nil {
		return nil, err
	}
	list, err := s.provider.List(ctx)
	if err != nil {
		s.logger.Warn("template listing failed", "error", err)
		return nil, err
	}
	return list, nil
}

// Template resolves a single template.
func (s *Service) Template(ctx context.Context, ref template.Ref) (template.Template, error) {
	if ref.IsZero() {
		return template.Template{}, ErrMissingIdentifier
	}
	if err := s.initErr; err != nil {
		return template.Template{}, err
	}
	return s.resolve(ctx, ref)
}

func (s *Service) resolve(ctx context.Context, ref template.Ref) (template.Template, error) {
	tpl, err := s.provider.Resolve(ctx, ref)
	if err != nil {
		s.logger.Warn("template resolution failed",
			"template", ref.String(),
			"error", err,
		)
		return template.Template{}, err
	}
	return tpl, nil
}

func (s *Service) replacementData(ctx context.Context, id string, fields map[string]value.Value) (sheet.Data, error) {
	if !s.revalidate {
		return plainData(fields), nil
	}
	if err := s.initErr; err != nil {
		return nil, err
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tpl, err := s.resolve(ctx, template.Ref{
		ID:         current.TemplateID,
		SystemName: current.TemplateSystemName,
	})
	if err != nil {
		return nil, err
	}
	return s.materializer.Build(fields, tpl.Fields, "")
}

func (s *Service) sanitize(data sheet.Data) sheet.Data {
	if s.sanitizer == nil {
		return data
	}
	return data.MapFreeText(s.stripMarkup)
}

// stripMarkup returns plain text: markup is removed and the entities the
// policy emits are decoded, since sheets store text and renderers escape it.
// Decoding can surface new markup ("&lt;b&gt;"), so the pass repeats until
// the text is stable.
func (s *Service) stripMarkup(text string) string {
	for range maxSanitizePasses {
		next := html.UnescapeString(s.sanitizer.Sanitize(text))
		if next == text {
			break
		}
		text = next
	}
	return text
}

// payload resolves the fields of a request into a non-empty mapping.
func payload(fields map[string]value.Value, raw json.RawMessage) (map[string]value.Value, error) {
	if len(raw) > 0 {
		parsed, err := value.ParseObject(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFieldsPayload, err)
		}
		fields = parsed
	}
	if len(fields) == 0 {
		return nil, ErrInvalidFieldsPayload
	}
	return fields, nil
}

// plainData stores a payload without a template: every node is required and
// carries no options, mappings become groups.
func plainData(fields map[string]value.Value) sheet.Data {
	out := make(sheet.Data, len(fields))
	for name, v := range fields {
		if nested, ok := v.Fields(); ok {
			out[name] = sheet.Group(plainData(nested), true, nil)
			continue
		}
		out[name] = sheet.Leaf(v, true, nil)
	}
	return out
}
