package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mnemo",
	Short: "Memory graph engine with retrieval-augmented chat",
	Long:  "Mnemo stores notes and events as a typed graph and serves a chat API that retrieves from it. Single Go binary with an embedded database.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}
