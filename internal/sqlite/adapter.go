package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mesh-intelligence/cruds/pkg/types"
)

// adapter implements types.Adapter for one model. All rows live in the
// shared documents table keyed by (model slug, pk).
type adapter struct {
	model   *types.Model
	backend *Backend
}

// Model returns the model this adapter serves.
func (a *adapter) Model() *types.Model {
	return a.model
}

// List returns the model's records matching filter, oldest first.
func (a *adapter) List(ctx context.Context, filter map[string]any) ([]*types.Record, error) {
	a.backend.mu.RLock()
	defer a.backend.mu.RUnlock()

	if !a.backend.attached {
		return nil, types.ErrStoreDetached
	}

	rows, err := a.backend.db.QueryContext(ctx,
		`SELECT pk, data, created_at, updated_at FROM documents WHERE model = ? ORDER BY created_at, pk`,
		a.model.Slug())
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", a.model.Slug(), err)
	}
	defer rows.Close()

	records := []*types.Record{}
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		r, err := a.decode(row)
		if err != nil {
			return nil, err
		}
		ok, err := a.model.Match(r, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, r)
		}
	}
	return records, rows.Err()
}

// Get retrieves a record by primary key.
func (a *adapter) Get(ctx context.Context, pk string) (*types.Record, error) {
	if pk == "" {
		return nil, types.ErrInvalidPK
	}
	a.backend.mu.RLock()
	defer a.backend.mu.RUnlock()

	if !a.backend.attached {
		return nil, types.ErrStoreDetached
	}
	return a.getLocked(ctx, pk)
}

func (a *adapter) getLocked(ctx context.Context, pk string) (*types.Record, error) {
	row, err := scanRow(a.backend.db.QueryRowContext(ctx,
		`SELECT pk, data, created_at, updated_at FROM documents WHERE model = ? AND pk = ?`,
		a.model.Slug(), pk))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a.decode(row)
}

// Save upserts the record and persists the model's JSONL file. CreatedAt is
// kept for existing records.
func (a *adapter) Save(ctx context.Context, r *types.Record) (*types.Record, error) {
	rec, err := a.model.Prepare(r, types.NewPK)
	if err != nil {
		return nil, err
	}

	a.backend.mu.Lock()
	defer a.backend.mu.Unlock()

	if !a.backend.attached {
		return nil, types.ErrStoreDetached
	}

	body, err := json.Marshal(a.model.Dump(rec))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrInvalidData, err)
	}

	now := time.Now().UTC()
	stamp := now.Format(timeLayout)
	_, err = a.backend.db.ExecContext(ctx, `
		INSERT INTO documents (model, pk, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(model, pk) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`,
		a.model.Slug(), rec.PK, string(body), stamp, stamp)
	if err != nil {
		return nil, fmt.Errorf("upserting %s/%s: %w", a.model.Slug(), rec.PK, err)
	}

	if err := a.backend.persistLocked(a.model.Slug()); err != nil {
		return nil, err
	}
	return a.getLocked(ctx, rec.PK)
}

// Delete removes the record and persists the model's JSONL file.
func (a *adapter) Delete(ctx context.Context, r *types.Record) error {
	if r == nil || r.PK == "" {
		return types.ErrInvalidPK
	}
	a.backend.mu.Lock()
	defer a.backend.mu.Unlock()

	if !a.backend.attached {
		return types.ErrStoreDetached
	}

	res, err := a.backend.db.ExecContext(ctx,
		`DELETE FROM documents WHERE model = ? AND pk = ?`, a.model.Slug(), r.PK)
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", a.model.Slug(), r.PK, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return types.ErrNotFound
	}
	return a.backend.persistLocked(a.model.Slug())
}

// Erase removes every record of the model.
func (a *adapter) Erase(ctx context.Context) error {
	a.backend.mu.Lock()
	defer a.backend.mu.Unlock()

	if !a.backend.attached {
		return types.ErrStoreDetached
	}
	if _, err := a.backend.db.ExecContext(ctx,
		`DELETE FROM documents WHERE model = ?`, a.model.Slug()); err != nil {
		return fmt.Errorf("erasing %s: %w", a.model.Slug(), err)
	}
	return a.backend.persistLocked(a.model.Slug())
}

// Dump renders a record as a plain mapping.
func (a *adapter) Dump(r *types.Record) map[string]any {
	return a.model.Dump(r)
}

// FromData builds an unsaved record from a decoded mapping.
func (a *adapter) FromData(data map[string]any) (*types.Record, error) {
	return a.model.FromData(data)
}

// documentRow is one scanned documents row.
type documentRow struct {
	pk        string
	data      map[string]any
	createdAt string
	updatedAt string
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(s rowScanner) (documentRow, error) {
	var (
		row  documentRow
		body string
	)
	if err := s.Scan(&row.pk, &body, &row.createdAt, &row.updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return row, err
		}
		return row, fmt.Errorf("scanning document: %w", err)
	}
	if err := decodeJSON([]byte(body), &row.data); err != nil {
		return row, fmt.Errorf("parsing document %s: %w", row.pk, err)
	}
	return row, nil
}

func (a *adapter) decode(row documentRow) (*types.Record, error) {
	r, err := a.model.FromData(row.data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s/%s: %w", a.model.Slug(), row.pk, err)
	}
	r.PK = row.pk
	r.CreatedAt, _ = time.Parse(timeLayout, row.createdAt)
	r.UpdatedAt, _ = time.Parse(timeLayout, row.updatedAt)
	return r, nil
}
