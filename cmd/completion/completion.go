// Package completion provides shell completion generation commands.
package completion

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCommand returns the completion command.
func NewCommand(rootCmd *cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completions",
		Long: `Generate shell completion scripts for cq.

Install instructions:
  Bash:       cq completion bash > /etc/bash_completion.d/cq
              echo 'source <(cq completion bash)' >> ~/.bashrc
  Zsh:        cq completion zsh > ~/.zsh/completions/_cq
  Fish:       cq completion fish > ~/.config/fish/completions/cq.fish
  PowerShell: cq completion powershell >> $PROFILE`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				fmt.Fprintln(out, "# cq bash completion")
				fmt.Fprintln(out, "# Install: cq completion bash > /etc/bash_completion.d/cq")
				fmt.Fprintln(out, "# Or:      echo 'source <(cq completion bash)' >> ~/.bashrc")
				fmt.Fprintln(out)
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				fmt.Fprintln(out, "# cq zsh completion")
				fmt.Fprintln(out, "# Install: cq completion zsh > ~/.zsh/completions/_cq")
				fmt.Fprintln(out)
				return rootCmd.GenZshCompletion(out)
			case "fish":
				fmt.Fprintln(out, "# cq fish completion")
				fmt.Fprintln(out, "# Install: cq completion fish > ~/.config/fish/completions/cq.fish")
				fmt.Fprintln(out)
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				fmt.Fprintln(out, "# cq PowerShell completion")
				fmt.Fprintln(out, "# Install: cq completion powershell >> $PROFILE")
				fmt.Fprintln(out)
				return rootCmd.GenPowerShellCompletionWithDesc(out)
			default:
				return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish, powershell)", args[0])
			}
		},
	}
	return cmd
}
