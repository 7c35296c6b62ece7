// Package memory is an in-process sheet store for tests and throwaway
// deployments. Sheets are deep-copied on the way in and out.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-sheets/pkg/sheet"
	"github.com/goliatone/go-sheets/pkg/store"
)

// Store keeps sheets in a map guarded by a RWMutex.
type Store struct {
	mu     sync.RWMutex
	sheets map[string]sheet.Sheet
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{sheets: make(map[string]sheet.Sheet)}
}

func (s *Store) Insert(ctx context.Context, doc sheet.Sheet) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sheets[doc.ID]; exists {
		return "", fmt.Errorf("%w: %s", store.ErrConflict, doc.ID)
	}
	s.sheets[doc.ID] = clone(doc)
	return doc.ID, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (sheet.Sheet, error) {
	if err := ctx.Err(); err != nil {
		return sheet.Sheet{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.sheets[id]
	if !ok {
		return sheet.Sheet{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return clone(doc), nil
}

func (s *Store) FindByOwner(ctx context.Context, ownerID string) ([]sheet.Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []sheet.Sheet{}
	for _, doc := range s.sheets {
		if doc.OwnerID == ownerID {
			out = append(out, clone(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Update(ctx context.Context, id string, patch sheet.Patch) (sheet.Sheet, error) {
	if err := ctx.Err(); err != nil {
		return sheet.Sheet{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.sheets[id]
	if !ok {
		return sheet.Sheet{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	patch.Data = patch.Data.Clone()
	updated := patch.Apply(doc)
	s.sheets[id] = updated
	return clone(updated), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sheets[id]; !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	delete(s.sheets, id)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func clone(doc sheet.Sheet) sheet.Sheet {
	doc.Data = doc.Data.Clone()
	return doc
}
