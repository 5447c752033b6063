package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configDefault is the embedded default config, written out when no config file exists.
var configDefault string

var rootCmd = &cobra.Command{
	Use:   "backup-scheduler",
	Short: "NFS to S3 backup upload scheduler",
	Long: `backup-scheduler uploads backup files from an NFS mount to S3 on
interval or cron schedules, and keeps a bounded history of every run.

Start the API and scheduler with "backup-scheduler run"; the other commands
inspect the same database without starting the service.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func Execute(c string) {
	configDefault = c
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
