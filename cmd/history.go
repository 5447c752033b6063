package cmd

import (
	"context"
	"os"

	internalApp "github.com/Q-mercy-Q/backups-S3-replication/internal/app"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"

	"github.com/spf13/cobra"
)

func renderRuns(records []*domain.RunRecord) error {
	table := newTableWriter(os.Stdout, []string{"ID", "SCHEDULE", "STARTED", "DURATION", "STATUS", "UPLOADED", "FAILED", "SIZE", "SUMMARY"})
	for _, r := range records {
		start := r.StartTime
		if err := table.Append([]string{
			r.ID,
			r.ScheduleName,
			formatTime(&start),
			r.DurationDisplay(),
			string(r.Outcome()),
			itoa(r.FilesUploaded),
			itoa(r.FilesFailed),
			r.SizeDisplay(),
			r.Summary(),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func init() {
	var (
		schedule string
		period   string
		limit    int
	)
	var historyCmd = &cobra.Command{
		Use:   "history [-c config_file] [--schedule id|all|adhoc] [--period all|today|week|month]",
		Short: "Show run history, newest first",
	}
	configPath := addConfigFlag(historyCmd)
	historyCmd.Flags().StringVar(&schedule, "schedule", "all", "schedule id, all or adhoc")
	historyCmd.Flags().StringVar(&period, "period", "all", "all, today, week or month")
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of records")
	historyCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, *configPath, func(ctx context.Context, a *internalApp.App) error {
			records, err := a.HistoryService.Query(ctx, domain.HistoryQuery{
				ScheduleID: schedule,
				Period:     domain.Period(period),
				Limit:      limit,
			})
			if err != nil {
				return err
			}
			return renderRuns(records)
		})
	}
	rootCmd.AddCommand(historyCmd)
}
