package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped by the build.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "safesite",
	Short: "SafeSite manages construction-site safety forms",
	Long: `SafeSite is a safety form service for construction sites: a web API for
form submission and review, plus an offline-capable field client that queues
submissions locally and replays them when connectivity returns.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
