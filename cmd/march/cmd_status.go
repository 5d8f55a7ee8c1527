package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marchdb/march/internal/ui"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether each is applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([]ui.StatusRow, len(status))
			applied := 0
			for i, s := range status {
				rows[i] = ui.StatusRow{Name: s.Name, Applied: s.Applied, AppliedAt: s.AppliedAt}
				if s.Applied {
					applied++
				}
			}
			fmt.Println(ui.RenderStatus(rows))
			fmt.Println(ui.Dim(fmt.Sprintf("%d/%d applied", applied, len(status))))
			return nil
		},
	}
}
