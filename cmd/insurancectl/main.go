// Command insurancectl is the operator CLI for the insurance platform.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "insurancectl",
		Short:         "Operator tooling for quote workflows, premiums and migrations",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(workflowCmd())
	rootCmd.AddCommand(proRataCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}
