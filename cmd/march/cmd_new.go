package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marchdb/march/internal/engine"
	"github.com/marchdb/march/internal/ui"
)

func newNewCmd() *cobra.Command {
	var renameFields, renameModels []string

	cmd := &cobra.Command{
		Use:   "new <label>",
		Short: "Generate the next migration from the schema file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hints, err := parseRenameHints(renameModels, renameFields)
			if err != nil {
				return err
			}

			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			gen, err := client.MakeMigration(args[0], hints)
			if err != nil {
				return err
			}
			if gen == nil {
				fmt.Println(ui.Dim("no changes detected"))
				return nil
			}
			fmt.Println(ui.Done("wrote " + gen.Path))
			if len(gen.Warnings) > 0 {
				msgs := make([]string, len(gen.Warnings))
				for i, w := range gen.Warnings {
					msgs[i] = w.String()
				}
				fmt.Println(ui.RenderWarnings(msgs))
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&renameFields, "rename", nil,
		"treat a field as renamed, as model.old=new (repeatable)")
	cmd.Flags().StringArrayVar(&renameModels, "rename-model", nil,
		"treat a model as renamed, as old=new (repeatable)")
	return cmd
}

// parseRenameHints turns the --rename-model old=new and --rename
// model.old=new flag values into diff hints. Returns nil when no hints
// were given so detection stays purely heuristic.
func parseRenameHints(models, fields []string) (*engine.RenameHints, error) {
	if len(models) == 0 && len(fields) == 0 {
		return nil, nil
	}
	hints := &engine.RenameHints{
		Models: map[string]string{},
		Fields: map[string]string{},
	}
	for _, spec := range models {
		old, new, ok := strings.Cut(spec, "=")
		if !ok || old == "" || new == "" {
			return nil, fmt.Errorf("invalid --rename-model %q, expected old=new", spec)
		}
		hints.Models[old] = new
	}
	for _, spec := range fields {
		key, new, ok := strings.Cut(spec, "=")
		if !ok || new == "" || !strings.Contains(key, ".") {
			return nil, fmt.Errorf("invalid --rename %q, expected model.old=new", spec)
		}
		hints.Fields[key] = new
	}
	return hints, nil
}
