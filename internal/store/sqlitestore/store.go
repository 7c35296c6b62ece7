// Package sqlitestore persists sheets in SQLite. Linkage and owner columns are
// plain text; the field tree is stored as a deterministic CBOR blob of the
// sheet wire form.
package sqlitestore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/goliatone/go-sheets/internal/codec"
	"github.com/goliatone/go-sheets/internal/sqlitepool"
	"github.com/goliatone/go-sheets/pkg/sheet"
	"github.com/goliatone/go-sheets/pkg/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS sheets (
	id                      TEXT PRIMARY KEY,
	template_id             TEXT NOT NULL,
	template_system_name    TEXT NOT NULL,
	template_system_version TEXT NOT NULL,
	owner_id                TEXT NOT NULL,
	data                    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS sheets_owner ON sheets (owner_id, id);
`

const selectColumns = `id, template_id, template_system_name, template_system_version, owner_id, data`

// Config holds the parameters for opening the store.
type Config struct {
	// Path is the database file; the parent directory must exist.
	Path string

	// PoolSize defaults to 4 when zero or negative.
	PoolSize int

	// Logger receives operational messages. Nil discards them.
	Logger *slog.Logger
}

// Store is a store.Store backed by a sqlitepool.Pool.
type Store struct {
	pool   *sqlitepool.Pool
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// Open creates the database (and schema) if needed.
func Open(cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: poolSize,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sheet store: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

func (s *Store) Insert(ctx context.Context, doc sheet.Sheet) (id string, err error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	blob, err := encodeData(doc.Data)
	if err != nil {
		return "", err
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("sheet store: insert: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `INSERT INTO sheets
		(id, template_id, template_system_name, template_system_version, owner_id, data)
		VALUES (?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			doc.ID,
			doc.TemplateID,
			doc.TemplateSystemName,
			doc.TemplateSystemVersion,
			doc.OwnerID,
			blob,
		},
	})
	if err != nil {
		if sqlite.ErrCode(err).ToPrimary() == sqlite.ResultConstraint {
			return "", fmt.Errorf("%w: %s", store.ErrConflict, doc.ID)
		}
		return "", fmt.Errorf("sheet store: insert %s: %w", doc.ID, err)
	}
	return doc.ID, nil
}

func (s *Store) FindByID(ctx context.Context, id string) (sheet.Sheet, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return sheet.Sheet{}, fmt.Errorf("sheet store: find: %w", err)
	}
	defer s.pool.Put(conn)

	doc, found, err := findByID(conn, id)
	if err != nil {
		return sheet.Sheet{}, err
	}
	if !found {
		return sheet.Sheet{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return doc, nil
}

func (s *Store) FindByOwner(ctx context.Context, ownerID string) ([]sheet.Sheet, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheet store: find by owner: %w", err)
	}
	defer s.pool.Put(conn)

	out := []sheet.Sheet{}
	err = sqlitex.Execute(conn,
		`SELECT `+selectColumns+` FROM sheets WHERE owner_id = ? ORDER BY id`,
		&sqlitex.ExecOptions{
			Args: []any{ownerID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				doc, err := scanSheet(stmt)
				if err != nil {
					return err
				}
				out = append(out, doc)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("sheet store: find by owner %s: %w", ownerID, err)
	}
	return out, nil
}

// Update rewrites the patched columns inside an IMMEDIATE transaction so the
// read-modify-write is atomic with respect to other writers.
func (s *Store) Update(ctx context.Context, id string, patch sheet.Patch) (updated sheet.Sheet, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return sheet.Sheet{}, fmt.Errorf("sheet store: update: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return sheet.Sheet{}, fmt.Errorf("sheet store: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	current, found, err := findByID(conn, id)
	if err != nil {
		return sheet.Sheet{}, err
	}
	if !found {
		return sheet.Sheet{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if patch.IsEmpty() {
		return current, nil
	}

	updated = patch.Apply(current)
	blob, err := encodeData(updated.Data)
	if err != nil {
		return sheet.Sheet{}, err
	}
	err = sqlitex.Execute(conn,
		`UPDATE sheets SET owner_id = ?, data = ? WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{updated.OwnerID, blob, id}})
	if err != nil {
		return sheet.Sheet{}, fmt.Errorf("sheet store: update %s: %w", id, err)
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sheet store: delete: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.Execute(conn, `DELETE FROM sheets WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{id}}); err != nil {
		return fmt.Errorf("sheet store: delete %s: %w", id, err)
	}
	if conn.Changes() == 0 {
		return fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	return nil
}

func findByID(conn *sqlite.Conn, id string) (sheet.Sheet, bool, error) {
	var (
		doc   sheet.Sheet
		found bool
	)
	err := sqlitex.Execute(conn,
		`SELECT `+selectColumns+` FROM sheets WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				scanned, err := scanSheet(stmt)
				if err != nil {
					return err
				}
				doc = scanned
				found = true
				return nil
			},
		})
	if err != nil {
		return sheet.Sheet{}, false, fmt.Errorf("sheet store: find %s: %w", id, err)
	}
	return doc, found, nil
}

func scanSheet(stmt *sqlite.Stmt) (sheet.Sheet, error) {
	doc := sheet.Sheet{
		ID:                    stmt.ColumnText(0),
		TemplateID:            stmt.ColumnText(1),
		TemplateSystemName:    stmt.ColumnText(2),
		TemplateSystemVersion: stmt.ColumnText(3),
		OwnerID:               stmt.ColumnText(4),
	}
	blob := make([]byte, stmt.ColumnLen(5))
	stmt.ColumnBytes(5, blob)

	data, err := decodeData(blob)
	if err != nil {
		return sheet.Sheet{}, fmt.Errorf("sheet store: %s: %w", doc.ID, err)
	}
	doc.Data = data
	return doc, nil
}

func encodeData(data sheet.Data) ([]byte, error) {
	blob, err := codec.Marshal(data.Wire())
	if err != nil {
		return nil, fmt.Errorf("sheet store: encode data: %w", err)
	}
	return blob, nil
}

func decodeData(blob []byte) (sheet.Data, error) {
	if len(blob) == 0 {
		return sheet.Data{}, nil
	}
	var raw map[string]any
	if err := codec.Unmarshal(blob, &raw); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return sheet.DataFromWire(raw)
}
