package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/flagrun/packages/core/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate [config...]",
	Short: "Validate challenge tree files without running them",
	Long: `Validate challenge tree files against the schema and check that every
node is unambiguously a group or a challenge, without executing anything.

Examples:
  flagrun validate
  flagrun validate test-config.json challenges.yaml`,
	RunE: validateCommand,
}

func validateCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		args = []string{config.DefaultConfigFile}
	}

	hasErrors := false
	for _, file := range args {
		if err := config.ValidateFile(file); err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
			continue
		}

		tree, err := config.Load(file)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "Error in %s: %v\n", file, err)
			hasErrors = true
			continue
		}

		units := 0
		for range tree.Units() {
			units++
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Valid: %s (%d challenges, %d tests)\n", file, tree.Leaves(), units)
	}

	if hasErrors {
		return &exitError{code: ExitConfigError, err: fmt.Errorf("validation failed")}
	}

	return nil
}
