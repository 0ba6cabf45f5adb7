package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "monitord",
	Short: "Agentless infrastructure monitoring server",
	Long:  `monitord collects, detects anomalies in, and alerts on the health of a fleet of SSH-reachable hosts without installing any agent on them.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
