package cmd

import (
	"fmt"
	"runtime"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/app"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version info and exit // 打印版本信息并退出",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "backup-scheduler v%s (git %s, built %s, %s %s/%s)\n",
			app.Version, app.GitTag, app.BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
