package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	internalApp "github.com/Q-mercy-Q/backups-S3-replication/internal/app"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/util"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/spf13/cobra"
)


func init() {
	var checkCmd = &cobra.Command{
		Use:   "check [-c config_file]",
		Short: "Check NFS mount, database and storage connectivity",
	}
	configPath := addConfigFlag(checkCmd)
	checkCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, *configPath, func(ctx context.Context, a *internalApp.App) error {
			table := newTableWriter(os.Stdout, []string{"CHECK", "STATUS", "DETAIL"})
			failed := 0
			add := func(name string, err error, detail string) {
				status := "ok"
				if err != nil {
					status = "FAIL"
					detail = err.Error()
					failed++
				}
				_ = table.Append([]string{name, status, detail})
			}

			nfs := a.Config().Backup.NFSPath
			usage, err := disk.UsageWithContext(ctx, nfs)
			detail := na
			if err == nil {
				detail = fmt.Sprintf("%s free of %s (%.1f%% used)",
					util.FormatBytes(int64(usage.Free)), util.FormatBytes(int64(usage.Total)), usage.UsedPercent)
			}
			add("nfs "+nfs, err, detail)

			sqlDB, err := a.DB.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			add("database "+a.Config().Database.Type, err, na)

			pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			add("storage "+a.Uploader.Name(), a.Uploader.Ping(pctx), na)

			if err := table.Render(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		})
	}
	rootCmd.AddCommand(checkCmd)
}
