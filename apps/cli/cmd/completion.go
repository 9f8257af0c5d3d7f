package cmd

import (
	"github.com/spf13/cobra"
)

var completionNoDesc bool

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for flagrun.

To load completions:

Bash:
  $ source <(flagrun completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ flagrun completion bash > /etc/bash_completion.d/flagrun
  # macOS:
  $ flagrun completion bash > $(brew --prefix)/etc/bash_completion.d/flagrun

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ flagrun completion zsh > "${fpath[1]}/_flagrun"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ flagrun completion fish | source

  # To load completions for each session, execute once:
  $ flagrun completion fish > ~/.config/fish/completions/flagrun.fish

PowerShell:
  PS> flagrun completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> flagrun completion powershell > flagrun.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(cmd.OutOrStdout(), !completionNoDesc)
		case "zsh":
			if completionNoDesc {
				return cmd.Root().GenZshCompletionNoDesc(cmd.OutOrStdout())
			}
			return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), !completionNoDesc)
		case "powershell":
			if completionNoDesc {
				return cmd.Root().GenPowerShellCompletion(cmd.OutOrStdout())
			}
			return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
	completionCmd.Flags().BoolVar(&completionNoDesc, "no-descriptions", false, "Disable completion descriptions")
}
