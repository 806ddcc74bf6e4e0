// Package memory implements an in-process cruds store on go-memdb. Data lives
// only as long as the Backend is attached.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/mesh-intelligence/cruds/pkg/types"
)

const (
	tableDocuments = "documents"
	indexID        = "id"
	indexModel     = "model"
)

// document is the object stored in memdb. Stored documents are never mutated;
// writes insert a replacement.
type document struct {
	Model  string
	PK     string
	Seq    uint64
	Record *types.Record
}

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableDocuments: {
				Name: tableDocuments,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:   indexID,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "Model"},
								&memdb.StringFieldIndex{Field: "PK"},
							},
						},
					},
					indexModel: {
						Name:    indexModel,
						Indexer: &memdb.StringFieldIndex{Field: "Model"},
					},
				},
			},
		},
	}
}

// Backend implements types.Store in memory.
type Backend struct {
	mu       sync.Mutex
	attached bool
	db       *memdb.MemDB
	seq      uint64
	adapters map[string]*adapter
}

// NewBackend creates a detached in-memory backend.
func NewBackend() *Backend {
	return &Backend{adapters: make(map[string]*adapter)}
}

// Attach creates an empty database. DataDir is ignored.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return fmt.Errorf("creating memdb: %w", err)
	}
	b.db = db
	b.seq = 0
	b.adapters = make(map[string]*adapter)
	b.attached = true
	return nil
}

// Detach discards all data. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.attached = false
	b.db = nil
	b.adapters = make(map[string]*adapter)
	return nil
}

// Adapter returns the adapter for m.
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
	a := &adapter{model: m, backend: b}
	b.adapters[m.Slug()] = a
	return a, nil
}

// txn opens a transaction, failing when the backend is detached.
func (b *Backend) txn(write bool) (*memdb.Txn, error) {
	b.mu.Lock()
	db, attached := b.db, b.attached
	b.mu.Unlock()
	if !attached {
		return nil, types.ErrStoreDetached
	}
	// Txn(true) blocks on the memdb writer lock, so b.mu must not be held.
	return db.Txn(write), nil
}

func (b *Backend) nextSeq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	return b.seq
}

// adapter implements types.Adapter over the shared documents table.
type adapter struct {
	model   *types.Model
	backend *Backend
}

func (a *adapter) Model() *types.Model {
	return a.model
}

func (a *adapter) List(_ context.Context, filter map[string]any) ([]*types.Record, error) {
	txn, err := a.backend.txn(false)
	if err != nil {
		return nil, err
	}
	defer txn.Abort()

	it, err := txn.Get(tableDocuments, indexModel, a.model.Slug())
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", a.model.Slug(), err)
	}
	var docs []*document
	for obj := it.Next(); obj != nil; obj = it.Next() {
		docs = append(docs, obj.(*document))
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Seq < docs[j].Seq })

	records := []*types.Record{}
	for _, d := range docs {
		ok, err := a.model.Match(d.Record, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, d.Record.Clone())
		}
	}
	return records, nil
}

func (a *adapter) Get(_ context.Context, pk string) (*types.Record, error) {
	if pk == "" {
		return nil, types.ErrInvalidPK
	}
	txn, err := a.backend.txn(false)
	if err != nil {
		return nil, err
	}
	defer txn.Abort()

	d, err := a.first(txn, pk)
	if err != nil {
		return nil, err
	}
	return d.Record.Clone(), nil
}

func (a *adapter) first(txn *memdb.Txn, pk string) (*document, error) {
	obj, err := txn.First(tableDocuments, indexID, a.model.Slug(), pk)
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s: %w", a.model.Slug(), pk, err)
	}
	if obj == nil {
		return nil, types.ErrNotFound
	}
	return obj.(*document), nil
}

func (a *adapter) Save(_ context.Context, r *types.Record) (*types.Record, error) {
	rec, err := a.model.Prepare(r, types.NewPK)
	if err != nil {
		return nil, err
	}
	txn, err := a.backend.txn(true)
	if err != nil {
		return nil, err
	}
	defer txn.Abort()

	now := time.Now().UTC()
	rec.UpdatedAt = now
	var seq uint64
	existing, err := a.first(txn, rec.PK)
	switch {
	case err == nil:
		rec.CreatedAt = existing.Record.CreatedAt
		seq = existing.Seq
	case errors.Is(err, types.ErrNotFound):
		rec.CreatedAt = now
		seq = a.backend.nextSeq()
	default:
		return nil, err
	}

	if err := txn.Insert(tableDocuments, &document{Model: a.model.Slug(), PK: rec.PK, Seq: seq, Record: rec}); err != nil {
		return nil, fmt.Errorf("inserting %s/%s: %w", a.model.Slug(), rec.PK, err)
	}
	txn.Commit()
	return rec.Clone(), nil
}

func (a *adapter) Delete(_ context.Context, r *types.Record) error {
	if r == nil || r.PK == "" {
		return types.ErrInvalidPK
	}
	txn, err := a.backend.txn(true)
	if err != nil {
		return err
	}
	defer txn.Abort()

	d, err := a.first(txn, r.PK)
	if err != nil {
		return err
	}
	if err := txn.Delete(tableDocuments, d); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", a.model.Slug(), r.PK, err)
	}
	txn.Commit()
	return nil
}

func (a *adapter) Erase(_ context.Context) error {
	txn, err := a.backend.txn(true)
	if err != nil {
		return err
	}
	defer txn.Abort()

	if _, err := txn.DeleteAll(tableDocuments, indexModel, a.model.Slug()); err != nil {
		return fmt.Errorf("erasing %s: %w", a.model.Slug(), err)
	}
	txn.Commit()
	return nil
}

func (a *adapter) Dump(r *types.Record) map[string]any {
	return a.model.Dump(r)
}

func (a *adapter) FromData(data map[string]any) (*types.Record, error) {
	return a.model.FromData(data)
}
