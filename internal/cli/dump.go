package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cruds/pkg/dump"
)

func (a *app) newDumpCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "dump <model>",
		Short: "Export all records of a model",
		Long:  "Dump writes every record of the model as YAML or JSON to stdout or --out.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.release(&err)

			if format == "" {
				format = formatFromPath(out, s.settings.DefaultFormat)
			}
			ad, err := s.adapter(args[0])
			if err != nil {
				return err
			}
			data, err := dump.Export(cmd.Context(), ad, format)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return sysError(err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Dumped %s to %s\n", args[0], out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "yaml or json (default: from --out extension, then default_format)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}

func (a *app) newLoadCmd() *cobra.Command {
	var format string
	var keep bool
	cmd := &cobra.Command{
		Use:   "load <model> <file>",
		Short: "Import records of a model from a dump",
		Long:  "Load replaces the model's records with the records in file.\nWith --keep existing records are kept and matching primary keys updated.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[1], err)
			}
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.release(&err)

			if format == "" {
				format = formatFromPath(args[1], s.settings.DefaultFormat)
			}
			ad, err := s.adapter(args[0])
			if err != nil {
				return err
			}
			n, err := dump.Import(cmd.Context(), ad, format, data, !keep)
			if err != nil {
				return fmt.Errorf("load %s: %w", args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d %s records\n", n, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "yaml or json (default: from file extension, then default_format)")
	cmd.Flags().BoolVar(&keep, "keep", false, "keep existing records instead of erasing them first")
	return cmd
}

// formatFromPath picks the dump format from a file extension.
func formatFromPath(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return dump.FormatJSON
	case ".yaml", ".yml":
		return dump.FormatYAML
	default:
		return fallback
	}
}
