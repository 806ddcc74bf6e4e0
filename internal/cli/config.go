package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/cruds/internal/paths"
	"github.com/mesh-intelligence/cruds/pkg/dump"
	"github.com/mesh-intelligence/cruds/pkg/registry"
	"github.com/mesh-intelligence/cruds/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "CRUDS"

	cfgKeyBackend       = "backend"
	cfgKeyDataDir       = "data_dir"
	cfgKeySyncStrategy  = "sync_strategy"
	cfgKeyAddr          = "addr"
	cfgKeyDefaultFormat = "default_format"

	defaultAddr = "127.0.0.1:8080"
)

// Settings is the decoded config.yaml.
type Settings struct {
	Backend       string        `mapstructure:"backend" yaml:"backend"`
	DataDir       string        `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	SyncStrategy  string        `mapstructure:"sync_strategy" yaml:"sync_strategy"`
	Addr          string        `mapstructure:"addr" yaml:"addr"`
	DefaultFormat string        `mapstructure:"default_format" yaml:"default_format"`
	Models        []types.Model `mapstructure:"models" yaml:"models"`
}

// sampleModels are written to a new config.yaml.
var sampleModels = []types.Model{{
	Name: "Note",
	Fields: []types.Field{
		{Name: "title", Type: types.FieldTypeText, Required: true},
		{Name: "body", Type: types.FieldTypeText},
		{Name: "pinned", Type: types.FieldTypeBoolean},
		{Name: "tags", Type: types.FieldTypeList},
	},
}}

func defaultSettings(dataDir string) Settings {
	return Settings{
		Backend:       types.BackendSQLite,
		DataDir:       dataDir,
		SyncStrategy:  types.SyncImmediate,
		Addr:          defaultAddr,
		DefaultFormat: dump.DefaultFormat,
		Models:        sampleModels,
	}
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. It reports whether a file was written.
func writeConfigIfMissing(path, dataDir string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	s := defaultSettings(dataDir)
	data, err := yaml.Marshal(&s)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := "# cruds configuration. Each model gets list, create, update, delete,\n# dump and load pages under /<model>/.\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// loadSettings reads config.yaml from configDir with viper, creating the
// directory and a default file on first run. CRUDS_* environment variables
// override file values.
func loadSettings(configDir string) (*Settings, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if _, err := writeConfigIfMissing(paths.ConfigFile(configDir), ""); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeySyncStrategy, types.SyncImmediate)
	v.SetDefault(cfgKeyAddr, defaultAddr)
	v.SetDefault(cfgKeyDefaultFormat, dump.DefaultFormat)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if !dump.Supported(s.DefaultFormat) {
		return nil, fmt.Errorf("default_format %q: %w", s.DefaultFormat, dump.ErrFormatNotImplemented)
	}
	return &s, nil
}

// registry builds the model registry from the settings.
func (s *Settings) registry() (*registry.Registry, error) {
	reg := registry.New()
	for i := range s.Models {
		if err := reg.Register(&s.Models[i]); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// storeConfig returns the backend configuration for dataDir.
func (s *Settings) storeConfig(dataDir string) types.Config {
	return types.Config{
		Backend:      s.Backend,
		DataDir:      dataDir,
		SyncStrategy: s.SyncStrategy,
	}
}
