// Package provider declares the Template Provider contract consumed by the
// sheet service, together with a static in-memory implementation.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-sheets/pkg/template"
)

var (
	// ErrTemplateNotFound is returned when the identifier does not resolve to
	// a template.
	ErrTemplateNotFound = errors.New("provider: template not found")
	// ErrProviderUnavailable is returned when the provider cannot be reached
	// or answers with an unexpected failure.
	ErrProviderUnavailable = errors.New("provider: template service unavailable")
	// ErrMissingIdentifier is returned when Resolve is called with an empty
	// reference.
	ErrMissingIdentifier = errors.New("provider: template id or system name is required")
)

// Provider resolves template references.
type Provider interface {
	// Resolve fetches the template for ref. Ref.ID takes precedence over
	// Ref.SystemName when both are set.
	Resolve(ctx context.Context, ref template.Ref) (template.Template, error)
	// List returns every template the provider knows about.
	List(ctx context.Context) ([]template.Template, error)
}

// Static serves templates from memory.
type Static struct {
	mu     sync.RWMutex
	byKey  map[string]template.Template
	byName map[string]template.Template
}

var _ Provider = (*Static)(nil)

// NewStatic indexes templates by id and system name. Later templates replace
// earlier ones with the same key.
func NewStatic(templates ...template.Template) *Static {
	s := &Static{
		byKey:  make(map[string]template.Template),
		byName: make(map[string]template.Template),
	}
	for _, tpl := range templates {
		s.Add(tpl)
	}
	return s
}

// Add registers tpl.
func (s *Static) Add(tpl template.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey[storageKey(tpl)] = tpl
	if tpl.SystemName != "" {
		s.byName[tpl.SystemName] = tpl
	}
}

func (s *Static) Resolve(ctx context.Context, ref template.Ref) (template.Template, error) {
	if err := ctx.Err(); err != nil {
		return template.Template{}, err
	}
	if ref.IsZero() {
		return template.Template{}, ErrMissingIdentifier
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		tpl template.Template
		ok  bool
	)
	if ref.ID != "" {
		tpl, ok = s.byKey[ref.ID]
	} else {
		tpl, ok = s.byName[ref.SystemName]
	}
	if !ok {
		return template.Template{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, ref)
	}
	return tpl, nil
}

func (s *Static) List(ctx context.Context) ([]template.Template, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.byKey))
	for key := range s.byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]template.Template, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.byKey[key])
	}
	return out, nil
}

// storageKey is the template id, or a prefixed system name for templates
// without one so they cannot collide with real ids.
func storageKey(tpl template.Template) string {
	if tpl.ID != "" {
		return tpl.ID
	}
	return "\x00name:" + tpl.SystemName
}
