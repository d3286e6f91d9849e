package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "entgrid",
		Short: "Entgrid - subscription entitlement and compliance engine",
		Long:  `Entgrid decides what a consumer may consume, issues certificate payloads proving it, and continuously recomputes compliance coverage.`,
	}

	rootCmd.AddCommand(
		newRunCommand(),
		newMigrateCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
