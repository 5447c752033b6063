package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	internalApp "github.com/Q-mercy-Q/backups-S3-replication/internal/app"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/service"

	"github.com/spf13/cobra"
)

func formatTime(t *time.Time) string {
	if t == nil {
		return na
	}
	return t.Local().Format(time.DateTime)
}

func filterDisplay(f domain.Filter) string {
	switch f.Mode {
	case domain.FilterCategories:
		return "categories: " + strings.Join(f.Categories, ",")
	case domain.FilterExtensions:
		return "extensions: " + strings.Join(f.Extensions, ",")
	}
	return "all"
}

func init() {
	var schedulesCmd = &cobra.Command{
		Use:   "schedules",
		Short: "Inspect and run backup schedules",
	}

	listCmd := &cobra.Command{
		Use:   "list [-c config_file]",
		Short: "List schedules",
	}
	listConfig := addConfigFlag(listCmd)
	listCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, *listConfig, func(ctx context.Context, a *internalApp.App) error {
			items, err := a.ScheduleService.List(ctx)
			if err != nil {
				return err
			}
			table := newTableWriter(os.Stdout, []string{"ID", "NAME", "TRIGGER", "FILTER", "ENABLED", "LAST-RUN", "NEXT-RUN"})
			for _, s := range items {
				if err := table.Append([]string{
					s.ID,
					s.Name,
					s.Trigger.Display(),
					filterDisplay(s.Filter),
					fmt.Sprint(s.Enabled),
					formatTime(s.LastRunAt),
					formatTime(s.NextRunAt),
				}); err != nil {
					return err
				}
			}
			return table.Render()
		})
	}

	runCmd := &cobra.Command{
		Use:   "run <schedule-id> [-c config_file]",
		Short: "Run a schedule now and wait for it to finish",
		Args:  cobra.ExactArgs(1),
	}
	runConfig := addConfigFlag(runCmd)
	runCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, *runConfig, func(ctx context.Context, a *internalApp.App) error {
			s, err := a.ScheduleService.Get(ctx, args[0])
			if err != nil {
				return err
			}
			outcome, err := a.Executor.Run(ctx, service.ScheduleTarget(s))
			if err != nil {
				return err
			}
			if outcome.Skipped {
				fmt.Println("skipped: a run of this schedule is already in progress")
				return nil
			}
			return renderRuns([]*domain.RunRecord{outcome.Record})
		})
	}

	schedulesCmd.AddCommand(listCmd, runCmd)
	rootCmd.AddCommand(schedulesCmd)
}
