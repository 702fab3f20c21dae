package cmd

import (
	"strings"

	"github.com/abdul-hamid-achik/postcheck/packages/suite"
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for postcheck.

To load completions:

Bash:
  $ source <(postcheck completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ postcheck completion bash > /etc/bash_completion.d/postcheck
  # macOS:
  $ postcheck completion bash > $(brew --prefix)/etc/bash_completion.d/postcheck

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ postcheck completion zsh > "${fpath[1]}/_postcheck"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ postcheck completion fish | source

  # To load completions for each session, execute once:
  $ postcheck completion fish > ~/.config/fish/completions/postcheck.fish

PowerShell:
  PS> postcheck completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> postcheck completion powershell > postcheck.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(cmd.OutOrStdout(), true)
		case "zsh":
			return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		}
		return nil
	},
}

var outputFormats = []string{"console", "json", "junit", "tap"}

// scenarioNames completes --name with the names of the scenarios.
func scenarioNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, sc := range suite.Scenarios(suite.DefaultConfig()) {
		if strings.HasPrefix(sc.Name, toComplete) {
			names = append(names, sc.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// scenarioTags completes --tags with the tags the scenarios carry.
func scenarioTags(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	seen := make(map[string]bool)
	var tags []string
	for _, sc := range suite.Scenarios(suite.DefaultConfig()) {
		for _, tag := range sc.Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags, cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// registerCompletions runs after every command's init has declared its flags.
func registerCompletions() {
	_ = runCmd.RegisterFlagCompletionFunc("name", scenarioNames)
	_ = runCmd.RegisterFlagCompletionFunc("tags", scenarioTags)
	_ = listCmd.RegisterFlagCompletionFunc("tags", scenarioTags)
	_ = runCmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(outputFormats, cobra.ShellCompDirectiveNoFileComp))
	_ = mockCmd.RegisterFlagCompletionFunc("db", cobra.FixedCompletions([]string{"sqlite://:memory:", "sqlite://", "postgres://"}, cobra.ShellCompDirectiveNoSpace))
}
