package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/groupmeal/internal/domain"
)

// Query selects entities by id. Kind, when set, restricts the result to one
// collection. Ids that match nothing are skipped, not reported.
type Query struct {
	IDs  []string
	Kind domain.EntityKind
}

// Put inserts or replaces an entity document.
func (s *Store) Put(ctx context.Context, e domain.Entity) error {
	if e.Key() == "" {
		return fmt.Errorf("put entity: empty id")
	}
	if e.Type == "" {
		return fmt.Errorf("put entity %s: empty kind", e.Key())
	}
	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("put entity %s: %w", e.Key(), err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (id, kind, doc, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			doc = excluded.doc,
			version = entities.version + 1,
			updated_at = excluded.updated_at
	`, e.Key(), string(e.Type), string(doc), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put entity %s: %w", e.Key(), err)
	}
	return nil
}

// Show returns the entity with the given id, or ErrNotFound.
func (s *Store) Show(ctx context.Context, id string) (domain.Entity, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM entities WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entity{}, fmt.Errorf("show %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Entity{}, fmt.Errorf("show %s: %w", id, err)
	}
	return decodeEntity(doc)
}

// Query returns the entities matching q, ordered by id.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) Query(ctx context.Context, q Query) ([]domain.Entity, error) {
	if len(q.IDs) == 0 {
		return []domain.Entity{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.IDs)), ",")
	args := make([]any, 0, len(q.IDs)+1)
	for _, id := range q.IDs {
		args = append(args, id)
	}
	stmt := `SELECT doc FROM entities WHERE id IN (` + placeholders + `)`
	if q.Kind != "" {
		stmt += ` AND kind = ?`
		args = append(args, string(q.Kind))
	}
	stmt += ` ORDER BY id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	entities := []domain.Entity{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		e, err := decodeEntity(doc)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return entities, nil
}

// Update replaces the named top-level metadata keys of an entity and returns
// the updated document. The read-modify-write happens in one transaction.
func (s *Store) Update(ctx context.Context, id string, metadata map[string]any) (domain.Entity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("update %s: begin tx: %w", id, err)
	}
	defer tx.Rollback() // No-op if committed

	var doc string
	err = tx.QueryRowContext(ctx, `SELECT doc FROM entities WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entity{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return domain.Entity{}, fmt.Errorf("update %s: select: %w", id, err)
	}

	e, err := decodeEntity(doc)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("update %s: %w", id, err)
	}
	merged, err := domain.MergeMetadata(e.Attributes.Metadata, metadata)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("update %s: %w", id, err)
	}
	e.Attributes.Metadata = merged

	updated, err := json.Marshal(e)
	if err != nil {
		return domain.Entity{}, fmt.Errorf("update %s: marshal: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE entities SET doc = ?, version = version + 1, updated_at = ?
		WHERE id = ?
	`, string(updated), time.Now().UnixMilli(), id); err != nil {
		return domain.Entity{}, fmt.Errorf("update %s: write: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return domain.Entity{}, fmt.Errorf("update %s: commit: %w", id, err)
	}
	return e, nil
}

// Version returns how many times an entity has been written.
func (s *Store) Version(ctx context.Context, id string) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT version FROM entities WHERE id = ?`, id).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("version %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("version %s: %w", id, err)
	}
	return v, nil
}

func decodeEntity(doc string) (domain.Entity, error) {
	var e domain.Entity
	if err := json.Unmarshal([]byte(doc), &e); err != nil {
		return domain.Entity{}, fmt.Errorf("decode entity: %w", err)
	}
	return e, nil
}
