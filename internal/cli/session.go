package cli

import (
	"errors"
	"fmt"

	"github.com/mesh-intelligence/cruds/internal/paths"
	"github.com/mesh-intelligence/cruds/pkg/backend"
	"github.com/mesh-intelligence/cruds/pkg/registry"
	"github.com/mesh-intelligence/cruds/pkg/types"
)

// errUnknownModel is returned for a model name missing from config.yaml.
var errUnknownModel = errors.New("unknown model")

// session is an attached store plus the registered models.
type session struct {
	settings *Settings
	registry *registry.Registry
	store    types.Store
	dataDir  string
}

// open resolves the directories, loads config.yaml and attaches the store.
// The caller must call close.
func (a *app) open() (*session, error) {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return nil, sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	settings, err := loadSettings(configDir)
	if err != nil {
		return nil, sysError(err)
	}
	reg, err := settings.registry()
	if err != nil {
		return nil, err
	}
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, settings.DataDir)
	if err != nil {
		return nil, sysError(fmt.Errorf("resolve data dir: %w", err))
	}
	store, err := backend.Open(settings.storeConfig(dataDir))
	if err != nil {
		return nil, sysError(err)
	}
	return &session{settings: settings, registry: reg, store: store, dataDir: dataDir}, nil
}

func (s *session) close() error {
	return sysError(s.store.Detach())
}

// release closes the session and stores the close error in *err unless the
// command already failed. Commands defer it with a named error result.
func (s *session) release(err *error) {
	if cerr := s.close(); *err == nil {
		*err = cerr
	}
}

// adapter returns the adapter of the named model.
func (s *session) adapter(name string) (types.Adapter, error) {
	m, ok := s.registry.Lookup(name)
	if !ok {
		var known []string
		for _, m := range s.registry.Models() {
			known = append(known, m.Slug())
		}
		return nil, fmt.Errorf("%w %q (known: %v)", errUnknownModel, name, known)
	}
	a, err := s.store.Adapter(m)
	if err != nil {
		return nil, sysError(err)
	}
	return a, nil
}
