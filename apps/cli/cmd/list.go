package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/flagrun/packages/core/config"
)

var listCmd = &cobra.Command{
	Use:   "list [config]",
	Short: "List the test units of a challenge tree",
	Long: `List every test unit a run would execute, with its challenge label,
runtime and resolved program path.

Examples:
  flagrun list
  flagrun list challenges.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	path := config.DefaultConfigFile
	if len(args) > 0 {
		path = args[0]
	}

	tree, err := config.Load(path)
	if err != nil {
		return &exitError{code: ExitConfigError, err: err}
	}

	units := tree.Collect()
	sort.Slice(units, func(i, j int) bool {
		if units[i].Label != units[j].Label {
			return units[i].Label < units[j].Label
		}
		return units[i].Program < units[j].Program
	})

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Challenge", "Runtime", "Program", "Exists"})
	for _, u := range units {
		exists := "yes"
		if _, err := os.Stat(u.Program); err != nil {
			exists = "no"
		}
		t.AppendRow(table.Row{u.Label, u.Runtime, u.Program, exists})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d tests", len(units)), ""})
	t.Render()

	return nil
}
