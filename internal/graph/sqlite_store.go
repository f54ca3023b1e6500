package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ohler55/ojg/oj"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the durable Store. One writer at a time (the manager
// serializes mutations per parent anyway), many concurrent readers via WAL.
//
// Entity data is stored as a JSON column. Uniqueness invariants live in the
// schema so a crashed process can never leave duplicate paths or a second
// Contains parent behind:
//   - associations.path UNIQUE
//   - (parent_id, ord) UNIQUE
//   - partial unique index on child_id WHERE kind = 'contains'
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entities (
	id            TEXT PRIMARY KEY,
	kind          TEXT NOT NULL,
	semantic_name TEXT UNIQUE,
	data          JSON,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS associations (
	id         TEXT PRIMARY KEY,
	parent_id  TEXT NOT NULL,
	child_id   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	weight     INTEGER NOT NULL DEFAULT 0,
	ord        INTEGER NOT NULL,
	path       TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL,
	UNIQUE (parent_id, ord)
);
CREATE INDEX IF NOT EXISTS idx_assoc_parent ON associations(parent_id);
CREATE INDEX IF NOT EXISTS idx_assoc_child ON associations(child_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_contains_child
	ON associations(child_id) WHERE kind = 'contains';

-- Per-parent ordinal high-water mark. Survives deletes so ordinals (and the
-- paths derived from them) are never reincarnated under a different child.
CREATE TABLE IF NOT EXISTS ordinals (
	parent_id TEXT PRIMARY KEY,
	next      INTEGER NOT NULL
);
`

// OpenSQLiteStore opens (creating if needed) the graph database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// WAL lets readers proceed while a mutation commits.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) PutEntity(ctx context.Context, e *Entity) error {
	var data any
	if e.Data != nil {
		data = oj.JSON(e.Data)
	}
	semantic := sql.NullString{String: e.SemanticName, Valid: e.SemanticName != ""}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entities (id, kind, semantic_name, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			semantic_name = excluded.semantic_name,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		e.ID, e.Kind, semantic, data, e.CreatedAt.UnixMilli(), e.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put entity %s: %w", e.ID, err)
	}
	return nil
}

func (s *SQLiteStore) scanEntity(row *sql.Row, id string) (*Entity, error) {
	var (
		e        Entity
		semantic sql.NullString
		data     sql.NullString
		created  int64
		updated  int64
	)
	err := row.Scan(&e.ID, &e.Kind, &semantic, &data, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &EntityNotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("scan entity %s: %w", id, err)
	}
	e.SemanticName = semantic.String
	if data.Valid && data.String != "" {
		parsed, err := oj.ParseString(data.String)
		if err != nil {
			return nil, fmt.Errorf("parse entity data for %s: %w", id, err)
		}
		if m, ok := parsed.(map[string]any); ok {
			e.Data = m
		}
	}
	e.CreatedAt = time.UnixMilli(created)
	e.UpdatedAt = time.UnixMilli(updated)
	return &e, nil
}

const entityCols = "id, kind, semantic_name, data, created_at, updated_at"

func (s *SQLiteStore) Entity(ctx context.Context, id string) (*Entity, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entityCols+" FROM entities WHERE id = ?", id)
	return s.scanEntity(row, id)
}

func (s *SQLiteStore) EntityBySemanticName(ctx context.Context, name string) (*Entity, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entityCols+" FROM entities WHERE semantic_name = ?", name)
	return s.scanEntity(row, name)
}

func (s *SQLiteStore) EntityExists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM entities WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("entity exists %s: %w", id, err)
	}
	return true, nil
}

func (s *SQLiteStore) DeleteEntity(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM entities WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete entity %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &EntityNotFoundError{ID: id}
	}
	return nil
}

func (s *SQLiteStore) PutAssociation(ctx context.Context, a *Association) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put association: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO associations (id, parent_id, child_id, kind, weight, ord, path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ParentID, a.ChildID, string(a.Kind), a.Weight, a.Ord, a.Path,
		a.CreatedAt.UnixMilli())
	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "associations.parent_id, associations.ord"):
			return ErrOrdinalConflict
		case strings.Contains(msg, "idx_contains_child") ||
			(strings.Contains(msg, "associations.child_id") && a.Kind == KindContains):
			return &IntegrityError{Reason: "child " + a.ChildID + " already has a contains parent"}
		}
		return fmt.Errorf("put association %s: %w", a.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO ordinals (parent_id, next) VALUES (?, ?)
		ON CONFLICT(parent_id) DO UPDATE SET next = MAX(next, excluded.next)`,
		a.ParentID, a.Ord+1)
	if err != nil {
		return fmt.Errorf("advance ordinal for %s: %w", a.ParentID, err)
	}
	return tx.Commit()
}

const assocCols = "id, parent_id, child_id, kind, weight, ord, path, created_at"

func scanAssociation(sc interface{ Scan(...any) error }) (*Association, error) {
	var (
		a       Association
		kind    string
		created int64
	)
	if err := sc.Scan(&a.ID, &a.ParentID, &a.ChildID, &kind, &a.Weight, &a.Ord,
		&a.Path, &created); err != nil {
		return nil, err
	}
	a.Kind = Kind(kind)
	a.CreatedAt = time.UnixMilli(created)
	return &a, nil
}

func (s *SQLiteStore) queryOneAssociation(ctx context.Context, query string, args ...any) (*Association, error) {
	a, err := scanAssociation(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssociationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan association: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) Association(ctx context.Context, id string) (*Association, error) {
	return s.queryOneAssociation(ctx,
		"SELECT "+assocCols+" FROM associations WHERE id = ?", id)
}

func (s *SQLiteStore) AssociationByPath(ctx context.Context, path string) (*Association, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	return s.queryOneAssociation(ctx,
		"SELECT "+assocCols+" FROM associations WHERE path = ?", path)
}

func (s *SQLiteStore) ContainsParent(ctx context.Context, childID string) (*Association, error) {
	return s.queryOneAssociation(ctx,
		"SELECT "+assocCols+" FROM associations WHERE child_id = ? AND kind = ?",
		childID, string(KindContains))
}

func (s *SQLiteStore) queryAssociations(ctx context.Context, query string, args ...any) ([]*Association, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query associations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Association
	for rows.Next() {
		a, err := scanAssociation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan association row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AssociationsByParent(ctx context.Context, parentID string) ([]*Association, error) {
	return s.queryAssociations(ctx,
		"SELECT "+assocCols+" FROM associations WHERE parent_id = ? ORDER BY weight, ord, path",
		parentID)
}

func (s *SQLiteStore) AssociationsByChild(ctx context.Context, childID string) ([]*Association, error) {
	return s.queryAssociations(ctx,
		"SELECT "+assocCols+" FROM associations WHERE child_id = ? ORDER BY weight, ord, path",
		childID)
}

func (s *SQLiteStore) NextOrdinal(ctx context.Context, parentID string) (int, error) {
	var next int
	err := s.db.QueryRowContext(ctx,
		"SELECT next FROM ordinals WHERE parent_id = ?", parentID).Scan(&next)
	if errors.Is(err, sql.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("next ordinal for %s: %w", parentID, err)
	}
	return next, nil
}

func (s *SQLiteStore) UpdateAssociationWeight(ctx context.Context, id string, weight int) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE associations SET weight = ? WHERE id = ?", weight, id)
	if err != nil {
		return fmt.Errorf("update weight %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAssociationNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteAssociation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM associations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete association %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAssociationNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
