package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdul-hamid-achik/postcheck/packages/core/config"
	"github.com/abdul-hamid-achik/postcheck/packages/suite"
	"github.com/spf13/cobra"
)

var (
	forceInit   bool
	initBaseURL string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new postcheck project",
	Long: `Initialize a new postcheck project in the current directory.

This creates:
  - postcheck.yaml  - Configuration file with the scenario endpoints and test data
  - .env.example    - Environment variables postcheck reads

Examples:
  postcheck init
  postcheck init --base-url http://localhost:3000
  postcheck init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().StringVarP(&initBaseURL, "base-url", "u", config.DefaultBaseURL, "Base URL written to the config file")
}

const envExample = `# Copy to .env and adjust. Values here override postcheck.yaml;
# command-line flags override both.
POSTCHECK_BASE_URL=http://localhost:3000
# POSTCHECK_TIMEOUT=30000
# POSTCHECK_TOKEN_FILE=fixtures/token.json
# POSTCHECK_NO_FIXTURE=false
# POSTCHECK_BAIL=false
# POSTCHECK_STRICT_FILTER=false
# POSTCHECK_OUTPUT=console
`

// starterConfig is the config init writes: the defaults with every suite
// setting spelled out.
func starterConfig(baseURL string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Headers = map[string]string{"User-Agent": "postcheck/" + version}

	d := suite.DefaultConfig()
	cfg.Suite = config.Suite{
		RegisterPath:    d.RegisterPath,
		TokenField:      d.TokenField,
		PostsPath:       d.PostsPath,
		ProtectedPrefix: d.ProtectedPrefix,
		Page:            d.Page,
		Limit:           d.Limit,
		FilterIDs:       d.FilterIDs,
		MissingUpdateID: d.MissingUpdateID,
		MissingDeleteID: d.MissingDeleteID,
		StrictFilter:    config.BoolPtr(false),
	}
	return cfg
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, "postcheck.yaml")
	envFile := filepath.Join(cwd, ".env.example")

	if !forceInit {
		for _, f := range []string{configFile, envFile} {
			if _, err := os.Stat(f); err == nil {
				return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", f))
			}
		}
	}

	if err := starterConfig(initBaseURL).SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(envFile, []byte(envExample), 0644); err != nil {
		return fmt.Errorf("failed to create env example: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", envFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\npostcheck project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'postcheck mock' in one terminal and 'postcheck run -u http://localhost:3000' in another.\n")

	return nil
}
