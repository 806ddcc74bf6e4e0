// Package backend exposes the factory for cruds stores while keeping the
// implementations internal.
package backend

import (
	"fmt"

	"github.com/mesh-intelligence/cruds/internal/memory"
	"github.com/mesh-intelligence/cruds/internal/sqlite"
	"github.com/mesh-intelligence/cruds/pkg/types"
)

// New creates a detached Store for the named backend.
//
// Example:
//
//	store, err := backend.New(types.BackendSQLite)
//	err = store.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".cruds-db",
//	})
//	defer store.Detach()
func New(name string) (types.Store, error) {
	switch name {
	case types.BackendSQLite:
		return sqlite.NewBackend(), nil
	case types.BackendMemory:
		return memory.NewBackend(), nil
	case "":
		return nil, types.ErrBackendEmpty
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, name)
	}
}

// Open creates the Store named by config.Backend and attaches it.
func Open(config types.Config) (types.Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	store, err := New(config.Backend)
	if err != nil {
		return nil, err
	}
	if err := store.Attach(config); err != nil {
		return nil, fmt.Errorf("attaching %s backend: %w", config.Backend, err)
	}
	return store, nil
}
