package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cruds/internal/paths"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize cruds configuration and storage",
		Long:  "Create the configuration directory with a default config.yaml, then\ncreate the data directory and the storage files of every model.",
		Args:  cobra.NoArgs,
		RunE:  a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, args []string) (err error) {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(err)
	}
	written, err := writeConfigIfMissing(paths.ConfigFile(configDir), a.flags.dataDir)
	if err != nil {
		return sysError(fmt.Errorf("write config: %w", err))
	}

	s, err := a.open()
	if err != nil {
		return err
	}
	defer s.release(&err)

	for _, m := range s.registry.Models() {
		if _, err := s.adapter(m.Name); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if written {
		fmt.Fprintf(out, "Wrote %s\n", paths.ConfigFile(configDir))
	}
	fmt.Fprintf(out, "cruds initialized: %d models in %s\n", s.registry.Len(), s.dataDir)
	return nil
}
