package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/core/config"
	"github.com/abdul-hamid-achik/postcheck/packages/core/env"
	"github.com/abdul-hamid-achik/postcheck/packages/core/workflow"
	"github.com/abdul-hamid-achik/postcheck/packages/output"
	"github.com/abdul-hamid-achik/postcheck/packages/suite"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the API scenarios",
	Long: `Run the blog API scenarios in order against a base URL.

The register scenario saves the bearer token to a fixture file
(fixtures/token.json by default); the create, update and delete
scenarios read it back from there.

Examples:
  postcheck run
  postcheck run --base-url http://localhost:3000
  postcheck run --tags read
  postcheck run --name "Create*" -v
  postcheck run -o junit --output-file report.xml`,
	Args: cobra.NoArgs,
	RunE: runCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	runConn          connFlags
	nameFlag         string
	tagsFlag         string
	verboseFlag      int // 0=off, 1=-v, 2=-vv
	outputFlag       string
	outputFileFlag   string
	bailFlag         bool
	strictFilterFlag bool
	waitForFlag      string
	waitTimeoutFlag  string
	watchFlag        bool
	showSecretsFlag  bool
	dryRunFlag       bool
)

func init() {
	runConn.register(runCmd)

	runCmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run only scenarios matching name pattern (supports * prefix/suffix)")
	runCmd.Flags().StringVarP(&tagsFlag, "tags", "t", "", "Run only scenarios with any of these tags (comma-separated)")

	// Output flags
	runCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v for requests, -vv for curl and captures)")
	runCmd.Flags().StringVarP(&outputFlag, "output", "o", "console", "Output format: console, json, junit, tap (env: POSTCHECK_OUTPUT)")
	runCmd.Flags().StringVar(&outputFileFlag, "output-file", "", "Write output to file (default: stdout)")
	runCmd.Flags().BoolVar(&showSecretsFlag, "show-secrets", false, "Print bearer tokens in curl reproductions")

	// Execution flags
	runCmd.Flags().BoolVar(&bailFlag, "bail", false, "Stop on first failure (env: POSTCHECK_BAIL)")
	runCmd.Flags().BoolVar(&strictFilterFlag, "strict-filter", false, "Fail the filtered list scenario when no post matches")
	runCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Show which scenarios would run without sending requests")
	runCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch config and .env files and re-run on change")
	runCmd.Flags().StringVar(&waitForFlag, "wait-for", "", "Poll this URL until it answers 200 before running")
	runCmd.Flags().StringVar(&waitTimeoutFlag, "wait-timeout", "30s", "How long --wait-for keeps polling")
}

// runFlags copies the run-only flags over cfg.
func runFlags(cmd *cobra.Command) func(*config.Config) error {
	return func(cfg *config.Config) error {
		fs := cmd.Flags()
		if fs.Changed("output") {
			cfg.Output = outputFlag
		}
		if fs.Changed("output-file") {
			cfg.OutputFile = outputFileFlag
		}
		if fs.Changed("bail") {
			cfg.Bail = config.BoolPtr(bailFlag)
		}
		if fs.Changed("verbose") {
			cfg.Verbose = config.BoolPtr(verboseFlag > 0)
		}
		if fs.Changed("strict-filter") {
			cfg.Suite.StrictFilter = config.BoolPtr(strictFilterFlag)
		}
		if fs.Changed("wait-for") {
			timeout, err := time.ParseDuration(waitTimeoutFlag)
			if err != nil {
				return fmt.Errorf("invalid wait-timeout value %q: %w", waitTimeoutFlag, err)
			}
			cfg.WaitFor = &config.WaitFor{URL: waitForFlag, Timeout: int(timeout.Milliseconds())}
		}
		return nil
	}
}

func runCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := interruptContext()
	defer stop()

	code, err := runOnce(ctx, cmd)
	if !watchFlag {
		if code != ExitSuccess {
			return withExitCode(code, err)
		}
		return nil
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	return watchAndRerun(ctx, cmd)
}

// runOnce loads settings and runs the scenarios once. A returned error has
// not been shown to the user yet.
func runOnce(ctx context.Context, cmd *cobra.Command) (int, error) {
	cfg, err := loadSettings(cmd, &runConn, runFlags(cmd))
	if err != nil {
		return ExitConfigError, err
	}

	var out io.Writer = cmd.OutOrStdout()
	if cfg.OutputFile != "" {
		f, err := os.Create(cfg.OutputFile)
		if err != nil {
			return ExitConfigError, fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	verbose := verboseFlag
	if verbose == 0 && cfg.GetVerbose() {
		verbose = 1
	}
	formatter, err := output.New(cfg.Output, output.Options{
		Writer:      out,
		Verbose:     verbose,
		NoColor:     cfg.GetNoColor(),
		ShowSecrets: showSecretsFlag,
	})
	if err != nil {
		return ExitConfigError, err
	}

	wc := workflowConfig(cfg)
	wc.NameFilter = nameFlag
	wc.TagsFilter = splitList(tagsFlag)

	runner := workflow.NewRunner(wc, workflow.WithTokenStore(tokenStore(cfg)))
	scenarios := suite.Scenarios(suiteConfig(cfg.Suite))

	if dryRunFlag {
		for _, sc := range runner.Selected(scenarios) {
			fmt.Fprintf(cmd.OutOrStdout(), "Would run: %s\n", sc.Name)
		}
		return ExitSuccess, nil
	}

	formatter.FormatHeader(version)

	result, err := runner.Run(ctx, scenarios)
	if err != nil {
		formatter.FormatError(err)
		return exitCodeFor(nil, err), nil
	}
	formatter.FormatResult(result)

	if flushable, ok := formatter.(output.Flushable); ok {
		if err := flushable.Flush(result.Duration); err != nil {
			return ExitConfigError, fmt.Errorf("error writing output: %w", err)
		}
	}

	return exitCodeFor(result, nil), nil
}

// watchedFile reports whether a change to path should trigger a re-run.
func watchedFile(path string) bool {
	name := filepath.Base(path)
	if slices.Contains(config.ConfigFilenames, name) || slices.Contains(env.DotEnvFiles, name) {
		return true
	}
	for _, p := range []string{runConn.config, runConn.envFile} {
		if p != "" && filepath.Clean(p) == filepath.Clean(path) {
			return true
		}
	}
	return false
}

func watchAndRerun(ctx context.Context, cmd *cobra.Command) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	dirs := map[string]bool{".": true}
	for _, p := range []string{runConn.config, runConn.envFile} {
		if p != "" {
			dirs[filepath.Dir(p)] = true
		}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to watch %s: %v\n", dir, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	// Re-runs happen here, one at a time.
	rerun := make(chan string, 1)
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !watchedFile(event.Name) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case rerun <- name:
				default:
				}
			})

		case name := <-rerun:
			fmt.Fprintf(cmd.OutOrStdout(), "\n\nFile changed: %s\nRe-running scenarios...\n\n", name)
			if _, err := runOnce(ctx, cmd); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "warning: watcher error: %v\n", err)
		}
	}
}
