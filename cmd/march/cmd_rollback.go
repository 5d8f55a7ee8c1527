package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marchdb/march/internal/ui"
)

func newRollbackCmd() *cobra.Command {
	var showSQL bool

	cmd := &cobra.Command{
		Use:   "rollback <target>",
		Short: "Revert migrations down to the target (\"zero\" reverts everything)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			ctx := cmd.Context()

			if showSQL {
				stmts, err := client.SQL(ctx, args[0])
				if err != nil {
					return err
				}
				for _, s := range stmts {
					fmt.Println(s + ";")
				}
				return nil
			}

			res, err := client.Rollback(ctx, args[0])
			if err != nil {
				return err
			}
			if len(res.Applied) > 0 {
				// The target was ahead of the database, not behind it.
				fmt.Println(ui.RenderRunSummary("applied", res.Applied))
				return nil
			}
			fmt.Println(ui.RenderRunSummary("reverted", res.Reverted))
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSQL, "sql", false, "print the SQL without executing it")
	return cmd
}
