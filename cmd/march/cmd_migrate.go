package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marchdb/march/internal/ui"
)

func newMigrateCmd() *cobra.Command {
	var showSQL, fake bool

	cmd := &cobra.Command{
		Use:   "migrate [target]",
		Short: "Apply migrations up to the target (default: latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if showSQL && fake {
				return fmt.Errorf("--sql and --fake are mutually exclusive")
			}
			target := "latest"
			if len(args) == 1 {
				target = args[0]
			}

			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()
			ctx := cmd.Context()

			if showSQL {
				stmts, err := client.SQL(ctx, target)
				if err != nil {
					return err
				}
				if len(stmts) == 0 {
					fmt.Println(ui.Dim("-- nothing to do"))
					return nil
				}
				for _, s := range stmts {
					fmt.Println(s + ";")
				}
				return nil
			}

			if fake {
				res, err := client.Fake(ctx, target)
				if err != nil {
					return err
				}
				fmt.Println(ui.RenderRunSummary("faked", append(res.Applied, res.Reverted...)))
				return nil
			}

			res, err := client.Migrate(ctx, target)
			if err != nil {
				return err
			}
			names := res.Applied
			verb := "applied"
			if len(res.Reverted) > 0 {
				names = res.Reverted
				verb = "reverted"
			}
			fmt.Println(ui.RenderRunSummary(verb, names))
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSQL, "sql", false, "print the SQL without executing it")
	cmd.Flags().BoolVar(&fake, "fake", false, "record migrations as applied without executing them")
	return cmd
}
