package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the assembled launch environment",
	Long: `Env prints the environment that would be handed to the launched server
process, one KEY=VALUE per line in assembly order. Nothing is probed,
installed, or launched.`,
	RunE: runEnv,
}

func runEnv(cmd *cobra.Command, args []string) error {
	for _, line := range app.environment.Environ() {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
