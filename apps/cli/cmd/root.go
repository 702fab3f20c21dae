package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "postcheck",
	Short: "End-to-end checks for a blog posts API.",
	Long: `postcheck runs an ordered set of API scenarios against a blog posts
service: it registers a user, saves the bearer token to a fixture file,
and exercises listing, filtering, creating, updating and deleting posts.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	os.Exit(execute())
}

func execute() int {
	registerCompletions()

	err := rootCmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}

	// Anything cobra rejects before a command runs is a usage problem.
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return ExitUsageError
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(mockCmd)
	rootCmd.AddCommand(stressCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}
