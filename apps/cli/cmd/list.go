package cmd

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/postcheck/packages/core/workflow"
	"github.com/abdul-hamid-achik/postcheck/packages/suite"
	"github.com/spf13/cobra"
)

var listTagsFlag string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scenarios in run order",
	Long: `List the API scenarios in the order run executes them, with their
tags and the scenarios they depend on.

Examples:
  postcheck list
  postcheck list --tags read`,
	Args: cobra.NoArgs,
	RunE: listCommand,
}

func init() {
	listCmd.Flags().StringVarP(&listTagsFlag, "tags", "t", "", "Only list scenarios with any of these tags (comma-separated)")
}

func listCommand(cmd *cobra.Command, args []string) error {
	runner := workflow.NewRunner(&workflow.Config{TagsFilter: splitList(listTagsFlag)})
	scenarios := runner.Selected(suite.Scenarios(suite.DefaultConfig()))

	out := cmd.OutOrStdout()
	for i, sc := range scenarios {
		fmt.Fprintf(out, "%2d. %s\n", i+1, sc.Name)
		if sc.Description != "" {
			fmt.Fprintf(out, "    %s\n", sc.Description)
		}
		if len(sc.Tags) > 0 {
			fmt.Fprintf(out, "    tags: %s\n", strings.Join(sc.Tags, ", "))
		}
		if len(sc.Depends) > 0 {
			fmt.Fprintf(out, "    depends: %s\n", strings.Join(sc.Depends, ", "))
		}
	}
	return nil
}
