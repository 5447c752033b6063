package task

import (
	"context"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/app"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/service"
	pkglogger "github.com/Q-mercy-Q/backups-S3-replication/pkg/logger"

	"go.uber.org/zap"
)

// runStarter starts a run without waiting for it; *app.App implements it.
type runStarter interface {
	StartRun(ctx context.Context, target service.RunTarget) (service.RunOutcome, error)
}

// ScheduleLoopTask starts every due schedule on each tick. It never waits
// for a run to finish.
// ScheduleLoopTask 每个周期启动所有到期计划
type ScheduleLoopTask struct {
	schedules service.ScheduleService
	starter   runStarter
	interval  time.Duration
	logger    *zap.Logger
	now       service.Clock
}

// NewScheduleLoopTask 创建调度循环任务
func NewScheduleLoopTask(schedules service.ScheduleService, starter runStarter, interval time.Duration, logger *zap.Logger) *ScheduleLoopTask {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleLoopTask{
		schedules: schedules,
		starter:   starter,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

func (t *ScheduleLoopTask) Name() string {
	return "ScheduleLoop"
}

func (t *ScheduleLoopTask) LoopInterval() time.Duration {
	return t.interval
}

func (t *ScheduleLoopTask) IsStartupRun() bool {
	return true
}

// Run starts each due schedule. A failure to start one schedule is logged and
// does not stop the others.
func (t *ScheduleLoopTask) Run(ctx context.Context) error {
	due, err := t.schedules.Due(ctx, t.now())
	if err != nil {
		return err
	}
	for _, sch := range due {
		if ctx.Err() != nil {
			return nil
		}
		t.start(ctx, sch)
	}
	return nil
}

func (t *ScheduleLoopTask) start(ctx context.Context, sch *domain.Schedule) {
	lg := t.logger.With(
		zap.String(pkglogger.FieldScheduleID, sch.ID),
		zap.String(pkglogger.FieldScheduleName, sch.Name))
	defer func() {
		if r := recover(); r != nil {
			lg.Error("schedule start panic", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	out, err := t.starter.StartRun(ctx, service.ScheduleTarget(sch))
	switch {
	case err != nil:
		lg.Error("scheduled run not started", zap.Error(err))
	case out.Skipped:
		lg.Info("scheduled run skipped, previous run still active")
	default:
		lg.Info("scheduled run started", zap.String(pkglogger.FieldRunID, out.Record.ID))
	}
}

func init() {
	RegisterWithApp(func(appContainer *app.App) (Task, error) {
		return NewScheduleLoopTask(
			appContainer.ScheduleService,
			appContainer,
			appContainer.Config().GetTickInterval(),
			appContainer.Logger(),
		), nil
	})
}
