package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/corelib/pkg/regex"
)

func newMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match <pattern> <input>",
		Short: "Test a regex pattern against an input string",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern, input := args[0], args[1]

			re, err := regex.Parse(pattern)
			if err != nil {
				return fmt.Errorf("parse error: %w", err)
			}

			matched := regex.Matches(re, []byte(input))
			fmt.Fprintln(cmd.OutOrStdout(), matched)
			return nil
		},
	}
}
