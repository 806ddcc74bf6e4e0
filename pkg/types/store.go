package types

import "errors"

// Store defines backend-agnostic storage access. Callers attach to a
// backend, obtain one Adapter per Model, and detach when done.
type Store interface {
	// Attach connects the Store to the backend described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, adapter operations return ErrStoreDetached.
	Detach() error

	// Adapter returns the Adapter for m, preparing backend storage for the
	// model on first use. Returns ErrStoreDetached when not attached.
	Adapter(m *Model) (Adapter, error)
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)
