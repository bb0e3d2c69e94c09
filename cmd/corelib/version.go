package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is a static string; this module deliberately carries no
// build-info/UUID machinery.
const version = "corelib 0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
