package task

import (
	"context"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/app"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/service"

	"go.uber.org/zap"
)

// reconcileInterval is how often missing next run times are repaired.
const reconcileInterval = 10 * time.Minute

// ScheduleReconcileTask repairs enabled schedules whose next run time is
// missing, e.g. after a failed write at the end of a run. A next run time in
// the past is left alone: the schedule is due and the loop starts it.
// Startup recovery also moves past times forward; see Recover.
// ScheduleReconcileTask 定期修正缺失的下次执行时间
type ScheduleReconcileTask struct {
	schedules service.ScheduleService
	logger    *zap.Logger
}

func (t *ScheduleReconcileTask) Name() string {
	return "ScheduleReconcile"
}

func (t *ScheduleReconcileTask) LoopInterval() time.Duration {
	return reconcileInterval
}

func (t *ScheduleReconcileTask) IsStartupRun() bool {
	return false
}

func (t *ScheduleReconcileTask) Run(ctx context.Context) error {
	n, err := t.schedules.Reconcile(ctx, true)
	if err != nil {
		return err
	}
	if n > 0 {
		t.logger.Warn("schedules without next run time rescheduled", zap.Int("count", n))
	}
	return nil
}

// Recover finalizes runs left running by a previous process and recomputes
// stale next run times. It must complete before the schedule loop starts,
// otherwise a fresh run could be mistaken for an interrupted one.
// Recover 启动时恢复：结束中断的执行记录并修正计划时间
func Recover(ctx context.Context, executor *service.RunExecutor, schedules service.ScheduleService, logger *zap.Logger) error {
	failed, err := executor.RecoverInterrupted(ctx)
	if err != nil {
		return err
	}
	rescheduled, err := schedules.Reconcile(ctx, false)
	if err != nil {
		return err
	}
	logger.Info("startup recovery completed",
		zap.Int64("interruptedRuns", failed),
		zap.Int("rescheduled", rescheduled))
	return nil
}

func init() {
	RegisterWithApp(func(appContainer *app.App) (Task, error) {
		return &ScheduleReconcileTask{
			schedules: appContainer.ScheduleService,
			logger:    appContainer.Logger(),
		}, nil
	})
}
