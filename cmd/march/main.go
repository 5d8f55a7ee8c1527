// Command march manages database schema migrations: it generates
// migration files from a declarative schema and applies them forward and
// backward against PostgreSQL and SQLite databases.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Database drivers register themselves with database/sql.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/marchdb/march/internal/ui"
)

var version = "0.2.0"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Failed(err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "march",
		Short:         "Schema migrations for PostgreSQL and SQLite",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (default march.yaml)")
	root.PersistentFlags().StringP("database-url", "d", "", "database connection URL")

	root.AddCommand(
		newMigrateCmd(),
		newRollbackCmd(),
		newStatusCmd(),
		newNewCmd(),
		newCheckCmd(),
	)
	root.SetHelpFunc(customHelp)
	return root
}
