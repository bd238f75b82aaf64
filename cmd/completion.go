package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for depmap.

To load completions:

Bash:
  $ source <(depmap completion bash)
  # To load completions for each session, execute once:
  # Linux:
  $ depmap completion bash > /etc/bash_completion.d/depmap
  # macOS:
  $ depmap completion bash > $(brew --prefix)/etc/bash_completion.d/depmap

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ depmap completion zsh > "${fpath[1]}/_depmap"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ depmap completion fish | source
  # To load completions for each session, execute once:
  $ depmap completion fish > ~/.config/fish/completions/depmap.fish

PowerShell:
  PS> depmap completion powershell | Out-String | Invoke-Expression
  # To load completions for every new session, run:
  PS> depmap completion powershell > depmap.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
