package cmd

// Exit codes for the postcheck CLI
const (
	// ExitSuccess indicates all scenarios passed
	ExitSuccess = 0

	// ExitTestFailure indicates one or more scenarios failed
	ExitTestFailure = 1

	// ExitConfigError indicates an invalid config file, flag value or base URL
	ExitConfigError = 3

	// ExitNetworkError indicates the API could not be reached
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
