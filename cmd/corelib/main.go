// Command corelib is the CLI frontend over the regex engine and the
// reactor-backed TCP server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use: "corelib",
		Short: "Regex engine and TCP reactor toolkit",
		SilenceUsage: true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMatchCmd())
	root.AddCommand(newVersionCmd())
	return root
}
