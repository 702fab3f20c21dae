package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := cmd.OutOrStdout()
		if versionShort {
			fmt.Fprintln(w, version)
			return
		}
		fmt.Fprintf(w, "postcheck version %s\n", version)
		fmt.Fprintf(w, "  built:    %s\n", buildTime)
		fmt.Fprintf(w, "  go:       %s\n", runtime.Version())
		fmt.Fprintf(w, "  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")
}
