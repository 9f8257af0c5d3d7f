package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/flagrun/packages/core/config"
)

var (
	forceInit    bool
	yamlInit     bool
	settingsInit bool
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a new challenge tree",
	Long: `Initialize a new challenge tree in the current directory.

This creates:
  - test-config.json       - Challenge tree with one example challenge
  - example/ok.sh          - Test program that prints its flag
  - .flagrun.config.json   - Runner settings (with --settings)

Examples:
  flagrun init
  flagrun init --yaml
  flagrun init ./challenges --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().BoolVar(&yamlInit, "yaml", false, "Write the challenge tree as test-config.yaml")
	initCmd.Flags().BoolVar(&settingsInit, "settings", false, "Also write a default .flagrun.config.json")
}

const exampleProgram = `#!/bin/sh
# Prints the flag injected by flagrun. A test passes when it exits 0;
# the flag is detected when its exact value shows up in the output.
echo "level=info msg=\"starting example\""
echo "$FLAG"
`

func initCommand(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	configName := config.DefaultConfigFile
	if yamlInit {
		configName = "test-config.yaml"
	}
	configFile := filepath.Join(dir, configName)
	exampleFile := filepath.Join(dir, "example", "ok.sh")
	settingsFile := filepath.Join(dir, config.SettingsFilenames[0])

	targets := []string{configFile, exampleFile}
	if settingsInit {
		targets = append(targets, settingsFile)
	}
	if !forceInit {
		for _, f := range targets {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	tree := map[string]any{
		"example": map[string]any{
			"name":    "Example challenge",
			"runtime": "/bin/sh",
			"tests":   []string{"example/ok.sh"},
		},
	}

	var data []byte
	if yamlInit {
		data, err = yaml.Marshal(tree)
	} else {
		data, err = json.MarshalIndent(tree, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("failed to encode challenge tree: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(exampleFile), 0755); err != nil {
		return fmt.Errorf("failed to create example directory: %w", err)
	}
	if err := os.WriteFile(configFile, data, 0644); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(exampleFile, []byte(exampleProgram), 0755); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	if settingsInit {
		if err := config.DefaultSettings().SaveSettings(settingsFile); err != nil {
			return fmt.Errorf("failed to create settings file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", settingsFile)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nflagrun challenge tree initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'flagrun run %s' to execute the example test.\n", configFile)

	return nil
}
