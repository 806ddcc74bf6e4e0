package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/cruds/pkg/types"
)

// dbFileName is the SQLite file inside DataDir. It is rebuilt from the JSONL
// files on every Attach.
const dbFileName = "cruds.db"

// Backend implements types.Store using SQLite as the query engine and one
// JSONL file per model as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	adapters map[string]*adapter

	syncStrategy string
	dirty        map[string]bool // model slugs with unflushed writes (on_close)
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{
		adapters: make(map[string]*adapter),
		dirty:    make(map[string]bool),
	}
}

// Attach creates DataDir if needed, opens a fresh SQLite database and
// executes the schema. Model data is loaded lazily by Adapter.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// The JSONL files are authoritative; start from an empty database.
	dbPath := filepath.Join(dataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	for _, ddl := range schemaDDL {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	config.DataDir = dataDir
	b.db = db
	b.config = config
	b.syncStrategy = config.GetSyncStrategy()
	b.adapters = make(map[string]*adapter)
	b.dirty = make(map[string]bool)
	b.attached = true
	return nil
}

// Detach flushes pending JSONL writes, closes the SQLite connection and
// drops all adapters. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	if err := b.flushLocked(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	b.adapters = make(map[string]*adapter)
	return nil
}

// Adapter returns the adapter for m. The first call for a model validates it,
// loads its JSONL file and creates the file when missing.
func (b *Backend) Adapter(m *types.Model) (types.Adapter, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	if a, ok := b.adapters[m.Slug()]; ok {
		return a, nil
	}

	if _, err := loadModel(b.db, b.config.DataDir, m.Slug()); err != nil {
		return nil, fmt.Errorf("load %s: %w", m.Slug(), err)
	}
	path := jsonlPath(b.config.DataDir, m.Slug())
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeJSONL(path, nil); err != nil {
			return nil, fmt.Errorf("create %s: %w", path, err)
		}
	}

	a := &adapter{model: m, backend: b}
	b.adapters[m.Slug()] = a
	return a, nil
}

// persistLocked rewrites the model's JSONL file, or marks it dirty under the
// on_close strategy. The caller must hold b.mu.
func (b *Backend) persistLocked(slug string) error {
	if b.syncStrategy == types.SyncOnClose {
		b.dirty[slug] = true
		return nil
	}
	return b.writeModelLocked(slug)
}

// flushLocked writes every dirty model. The caller must hold b.mu.
func (b *Backend) flushLocked() error {
	for slug := range b.dirty {
		if err := b.writeModelLocked(slug); err != nil {
			return fmt.Errorf("flush %s: %w", slug, err)
		}
		delete(b.dirty, slug)
	}
	return nil
}

func (b *Backend) writeModelLocked(slug string) error {
	rows, err := b.db.Query(
		`SELECT pk, data, created_at, updated_at FROM documents WHERE model = ? ORDER BY created_at, pk`, slug)
	if err != nil {
		return fmt.Errorf("reading %s for persist: %w", slug, err)
	}
	defer rows.Close()

	var lines []jsonlLine
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return err
		}
		lines = append(lines, jsonlLine{
			PK:        row.pk,
			CreatedAt: row.createdAt,
			UpdatedAt: row.updatedAt,
			Data:      row.data,
		})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return writeJSONL(jsonlPath(b.config.DataDir, slug), lines)
}
