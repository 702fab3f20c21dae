package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/abdul-hamid-achik/postcheck/packages/core/workflow"
	"github.com/abdul-hamid-achik/postcheck/packages/stress"
	"github.com/abdul-hamid-achik/postcheck/packages/suite"
	"github.com/spf13/cobra"
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Repeat the read-only scenarios under load",
	Long: `Run the read-only scenarios (tagged "read") round-robin at a target
rate and report latency percentiles, throughput and errors.

Write scenarios are never repeated, so stress runs are safe against a
shared API.

Examples:
  postcheck stress --duration 1m --rate 50
  postcheck stress -d 30s -r 20 --concurrency 5 --base-url http://localhost:3000
  postcheck stress -d 1m -r 100 --threshold "p95<200ms,errors<1%"`,
	Args: cobra.NoArgs,
	RunE: stressCommand,
}

var (
	stressConn            connFlags
	stressDurationFlag    string
	stressRateFlag        float64
	stressConcurrencyFlag int
	stressThresholdFlag   string
	stressNoProgressFlag  bool
	stressVerboseFlag     bool
	stressJSONFlag        bool
)

func init() {
	stressConn.register(stressCmd)

	stressCmd.Flags().StringVarP(&stressDurationFlag, "duration", "d", "30s", "Test duration (e.g., 30s, 5m, 1h)")
	stressCmd.Flags().Float64VarP(&stressRateFlag, "rate", "r", 10, "Target scenario runs per second")
	stressCmd.Flags().IntVarP(&stressConcurrencyFlag, "concurrency", "c", 10, "Maximum scenario runs in flight")
	stressCmd.Flags().StringVar(&stressThresholdFlag, "threshold", "", "Pass/fail thresholds (e.g., \"p95<200ms,errors<1%\")")
	stressCmd.Flags().BoolVar(&stressNoProgressFlag, "no-progress", false, "Disable real-time progress display")
	stressCmd.Flags().BoolVarP(&stressVerboseFlag, "verbose", "v", false, "Verbose output with per-scenario breakdown")
	stressCmd.Flags().BoolVar(&stressJSONFlag, "json", false, "Output results as JSON")
}

// buildStressConfig builds the stress configuration from flags.
func buildStressConfig() (*stress.Config, error) {
	cfg := stress.DefaultConfig()

	duration, err := time.ParseDuration(stressDurationFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", stressDurationFlag, err)
	}
	cfg.Duration = duration
	cfg.Rate = stressRateFlag
	cfg.Concurrency = stressConcurrencyFlag

	if stressThresholdFlag != "" {
		thresholds, err := stress.ParseThresholds(stressThresholdFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid threshold: %w", err)
		}
		cfg.Thresholds = thresholds
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func stressCommand(cmd *cobra.Command, args []string) error {
	stressCfg, err := buildStressConfig()
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	cfg, err := loadSettings(cmd, &stressConn, nil)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	executor := workflow.NewRunner(workflowConfig(cfg), workflow.WithTokenStore(tokenStore(cfg)))

	// The JSON summary owns stdout, so the live display goes to stderr.
	reporterOpts := []stress.ReporterOption{
		stress.WithNoColor(cfg.GetNoColor()),
		stress.WithNoProgress(stressNoProgressFlag),
		stress.WithVerbose(stressVerboseFlag),
	}
	if stressJSONFlag {
		reporterOpts = append(reporterOpts, stress.WithWriter(os.Stderr))
	}
	reporter := stress.NewReporter(reporterOpts...)

	runner := stress.NewRunner(stressCfg, executor,
		stress.WithReporter(reporter),
		stress.WithTarget(cfg.BaseURL, version),
	)

	ctx, stop := interruptContext()
	defer stop()

	result, err := runner.Run(ctx, suite.Scenarios(suiteConfig(cfg.Suite)))
	if err != nil {
		return withExitCode(ExitTestFailure, err)
	}

	if stressJSONFlag {
		jsonReporter := stress.NewReporter(stress.WithWriter(cmd.OutOrStdout()))
		if err := jsonReporter.JSONSummary(result.Summary, result.Thresholds); err != nil {
			return err
		}
	}

	if result.HasThresholdFailures() {
		return withExitCode(ExitTestFailure, nil)
	}
	return nil
}
