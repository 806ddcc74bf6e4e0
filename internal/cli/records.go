package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models declared in config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.release(&err)

			models := s.registry.Models()
			if a.flags.jsonMode {
				return writeJSON(cmd.OutOrStdout(), models)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODEL\tPRIMARY KEY\tFIELDS")
			for _, m := range models {
				fields := make([]string, 0, len(m.Fields))
				for _, f := range m.Fields {
					desc := f.Name + ":" + f.Type
					if f.Required {
						desc += "*"
					}
					fields = append(fields, desc)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Slug(), m.PK(), strings.Join(fields, " "))
			}
			return tw.Flush()
		},
	}
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <model> [filter...]",
		Short: "List records with optional filter",
		Long: `List prints the records of a model as JSON.

Filters are key=value pairs. Multiple filters are ANDed together.
Values are parsed as JSON when possible, otherwise used as strings.

Example:
  cruds list note
  cruds list note pinned=true
  cruds list note title=Groceries pinned=false`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			filter, err := parseFilter(args[1:])
			if err != nil {
				return err
			}
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.release(&err)

			ad, err := s.adapter(args[0])
			if err != nil {
				return err
			}
			records, err := ad.List(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("list %s: %w", args[0], err)
			}
			dumps := make([]map[string]any, 0, len(records))
			for _, r := range records {
				dumps = append(dumps, ad.Dump(r))
			}
			return writeJSON(cmd.OutOrStdout(), dumps)
		},
	}
}

// parseFilter turns key=value arguments into a filter map.
func parseFilter(args []string) (map[string]any, error) {
	filter := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q (expected key=value)", arg)
		}
		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			parsed = value
		}
		filter[key] = parsed
	}
	return filter, nil
}

func (a *app) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <model> <pk>",
		Short: "Print one record as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.release(&err)

			ad, err := s.adapter(args[0])
			if err != nil {
				return err
			}
			r, err := ad.Get(cmd.Context(), args[1])
			if err != nil {
				return fmt.Errorf("get %s %s: %w", args[0], args[1], err)
			}
			return writeJSON(cmd.OutOrStdout(), ad.Dump(r))
		},
	}
}

func (a *app) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model> <pk>",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.release(&err)

			ad, err := s.adapter(args[0])
			if err != nil {
				return err
			}
			r, err := ad.Get(cmd.Context(), args[1])
			if err != nil {
				return fmt.Errorf("delete %s %s: %w", args[0], args[1], err)
			}
			if err := ad.Delete(cmd.Context(), r); err != nil {
				return sysError(fmt.Errorf("delete %s %s: %w", args[0], args[1], err))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", args[0], args[1])
			return nil
		},
	}
}
