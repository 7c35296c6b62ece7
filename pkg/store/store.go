// Package store declares the persistence contract for sheets. The service
// depends only on this interface; implementations live under internal/store.
package store

import (
	"context"
	"errors"

	"github.com/goliatone/go-sheets/pkg/sheet"
)

var (
	// ErrNotFound is returned when no sheet has the requested id.
	ErrNotFound = errors.New("store: sheet not found")
	// ErrConflict is returned when inserting a sheet whose id already exists.
	ErrConflict = errors.New("store: sheet already exists")
)

// Store persists sheets. Implementations must be safe for concurrent use.
type Store interface {
	// Insert saves s and returns its stored id. When s.ID is empty the store
	// assigns one.
	Insert(ctx context.Context, s sheet.Sheet) (string, error)
	FindByID(ctx context.Context, id string) (sheet.Sheet, error)
	// FindByOwner returns the owner's sheets ordered by id. No match yields
	// an empty slice, not an error.
	FindByOwner(ctx context.Context, ownerID string) ([]sheet.Sheet, error)
	// Update applies patch and returns the stored result.
	Update(ctx context.Context, id string, patch sheet.Patch) (sheet.Sheet, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
