package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marchdb/march/internal/ast"
	"github.com/marchdb/march/internal/ui"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Fail if the schema file has changes with no migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			ops, err := client.Pending(nil)
			if err != nil {
				return err
			}
			if len(ops) == 0 {
				fmt.Println(ui.Done("migrations are up to date with the schema"))
				return nil
			}
			for _, op := range ops {
				fmt.Println(ui.Warning("  " + ast.Describe(op)))
			}
			return fmt.Errorf("%d schema change(s) have no migration; run `march new <label>`", len(ops))
		},
	}
}
