package types

import (
	"context"
	"errors"
)

// Adapter provides uniform CRUD operations for the records of one Model,
// independent of the storage backend.
type Adapter interface {
	// Model returns the model this adapter serves.
	Model() *Model

	// List returns all records whose fields equal every filter entry, ordered
	// by creation time then primary key. A nil or empty filter returns every
	// record.
	List(ctx context.Context, filter map[string]any) ([]*Record, error)

	// Get retrieves the record with the given primary key.
	// Returns ErrInvalidPK if pk is empty, ErrNotFound if absent.
	Get(ctx context.Context, pk string) (*Record, error)

	// Save creates or replaces a record. An empty PK on a model that does not
	// declare its primary key generates a UUID v7. Returns ValidationErrors
	// when required fields are missing.
	Save(ctx context.Context, r *Record) (*Record, error)

	// Delete removes the record. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, r *Record) error

	// Erase removes every record of the model.
	Erase(ctx context.Context) error

	// Dump renders a record as a plain mapping suitable for JSON or YAML.
	Dump(r *Record) map[string]any

	// FromData builds an unsaved record from a decoded mapping.
	FromData(data map[string]any) (*Record, error)
}

// Adapter operation errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidPK     = errors.New("invalid primary key")
	ErrInvalidData   = errors.New("invalid record data")
	ErrInvalidFilter = errors.New("invalid filter")
)

// Model definition errors.
var (
	ErrInvalidName      = errors.New("invalid name")
	ErrNoFields         = errors.New("model has no fields")
	ErrDuplicateField   = errors.New("duplicate field")
	ErrInvalidFieldType = errors.New("invalid field type")
	ErrTypeMismatch     = errors.New("type mismatch")
)
