package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marchdb/march/internal/ui"
)

type commandCategory struct {
	Title    string
	Commands []string
}

var helpCategories = []commandCategory{
	{Title: "Running migrations", Commands: []string{"migrate", "rollback", "status"}},
	{Title: "Authoring migrations", Commands: []string{"new", "check"}},
}

// customHelp groups the commands by workflow instead of cobra's flat
// alphabetical listing.
func customHelp(cmd *cobra.Command, args []string) {
	if cmd.Name() != "march" {
		// Subcommands keep the default layout.
		fmt.Println(cmd.Short)
		fmt.Println()
		fmt.Println("Usage:")
		fmt.Println("  " + cmd.UseLine())
		if cmd.HasAvailableLocalFlags() {
			fmt.Println()
			fmt.Println("Flags:")
			fmt.Print(cmd.LocalFlags().FlagUsages())
		}
		return
	}

	byName := map[string]*cobra.Command{}
	for _, sub := range cmd.Commands() {
		byName[sub.Name()] = sub
	}

	fmt.Println(ui.Header("march") + " " + ui.Dim("v"+cmd.Version) + " — " + cmd.Short)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  march <command> [flags]")
	for _, cat := range helpCategories {
		fmt.Println()
		fmt.Println(ui.Header(cat.Title + ":"))
		for _, name := range cat.Commands {
			sub, ok := byName[name]
			if !ok {
				continue
			}
			fmt.Printf("  %s %s\n", ui.Primary(pad(name, 10)), sub.Short)
		}
	}
	fmt.Println()
	fmt.Println(ui.Header("Global flags:"))
	fmt.Print(cmd.PersistentFlags().FlagUsages())
	fmt.Println()
	fmt.Println(ui.Dim(`Configuration comes from march.yaml, MARCH_* environment variables,
and flags, in rising precedence.`))
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
