package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"

	"go.uber.org/zap"
)

// ScheduleService defines schedule management
// 定义备份计划业务服务接口
type ScheduleService interface {
	Create(ctx context.Context, spec domain.ScheduleSpec) (*domain.Schedule, error)
	Get(ctx context.Context, id string) (*domain.Schedule, error)
	List(ctx context.Context) ([]*domain.Schedule, error)
	Update(ctx context.Context, id string, patch domain.SchedulePatch) (*domain.Schedule, error)
	Delete(ctx context.Context, id string) error
	// Due lists enabled schedules whose next run time has passed.
	Due(ctx context.Context, now time.Time) ([]*domain.Schedule, error)
	// MarkRun records a finished run and advances the next run time from at.
	MarkRun(ctx context.Context, id string, at time.Time) error
	// Reconcile recomputes missing next run times from now; unless
	// missingOnly is set, past ones too.
	Reconcile(ctx context.Context, missingOnly bool) (int, error)
}

type scheduleService struct {
	repo   domain.ScheduleRepository
	logger *zap.Logger
	now    Clock
}

// NewScheduleService creates ScheduleService instance
// 创建 ScheduleService 实例
func NewScheduleService(repo domain.ScheduleRepository, logger *zap.Logger, clock Clock) ScheduleService {
	if clock == nil {
		clock = systemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &scheduleService{repo: repo, logger: logger, now: clock}
}

// Create 创建计划
func (s *scheduleService) Create(ctx context.Context, spec domain.ScheduleSpec) (*domain.Schedule, error) {
	spec.Name = strings.TrimSpace(spec.Name)
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	sch := &domain.Schedule{
		ID:              NewScheduleID(),
		Name:            spec.Name,
		Trigger:         spec.Trigger,
		Filter:          spec.Filter,
		SourceDirectory: strings.TrimSpace(spec.SourceDirectory),
		Enabled:         spec.Enabled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	reschedule(sch, now)

	if err := s.repo.Create(ctx, sch); err != nil {
		return nil, err
	}
	if sch.TriggerError != "" {
		s.logger.Warn("schedule created disabled",
			zap.String("scheduleId", sch.ID), zap.String("error", sch.TriggerError))
	} else {
		s.logger.Info("schedule created", zap.String("scheduleId", sch.ID), zap.String("scheduleName", sch.Name))
	}
	return sch, nil
}

// Get 获取计划
func (s *scheduleService) Get(ctx context.Context, id string) (*domain.Schedule, error) {
	sch, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sch == nil {
		return nil, domain.ErrScheduleNotFound
	}
	return sch, nil
}

// List 获取全部计划
func (s *scheduleService) List(ctx context.Context) ([]*domain.Schedule, error) {
	return s.repo.List(ctx)
}

// Update applies patch to the stored schedule. The next run time is kept
// unless the trigger or enabled flag changed, so an edit never undoes the
// bookkeeping of a run that finished meanwhile.
// Update 部分更新计划，trigger 或 enabled 变化时重新计算下次执行时间
func (s *scheduleService) Update(ctx context.Context, id string, patch domain.SchedulePatch) (*domain.Schedule, error) {
	var rescheduled bool
	sch, err := s.repo.Mutate(ctx, id, func(cur *domain.Schedule) (bool, error) {
		next, changed, err := patch.Apply(*cur)
		if err != nil {
			return false, err
		}
		now := s.now()
		rescheduled = changed || (next.Enabled && next.NextRunAt == nil)
		if rescheduled {
			reschedule(&next, now)
		}
		next.UpdatedAt = now
		*cur = next
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("schedule updated", zap.String("scheduleId", id), zap.Bool("rescheduled", rescheduled))
	return sch, nil
}

// Delete 删除计划，历史记录保留
func (s *scheduleService) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrScheduleNotFound
	}
	s.logger.Info("schedule deleted", zap.String("scheduleId", id))
	return nil
}

// Due 获取到期计划
func (s *scheduleService) Due(ctx context.Context, now time.Time) ([]*domain.Schedule, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var due []*domain.Schedule
	for _, sch := range all {
		if IsDue(sch, now) {
			due = append(due, sch)
		}
	}
	return due, nil
}

// MarkRun 记录执行完成时间。计划在运行期间被删除时忽略
func (s *scheduleService) MarkRun(ctx context.Context, id string, at time.Time) error {
	_, err := s.repo.Mutate(ctx, id, func(sch *domain.Schedule) (bool, error) {
		last := at
		sch.LastRunAt = &last
		reschedule(sch, at)
		return true, nil
	})
	if errors.Is(err, domain.ErrScheduleNotFound) {
		return nil
	}
	return err
}

// Reconcile recomputes next run times from now. With missingOnly, only
// enabled schedules without a next run time are touched: a past next run time
// means the schedule is due and the loop will start it. Without missingOnly,
// past times are moved forward too, which is what a restart needs so missed
// occurrences are not replayed.
// Reconcile 修正缺失（及启动时过期）的下次执行时间
func (s *scheduleService) Reconcile(ctx context.Context, missingOnly bool) (int, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, sch := range all {
		if !needsReconcile(sch, s.now(), missingOnly) {
			continue
		}
		var touched bool
		_, err := s.repo.Mutate(ctx, sch.ID, func(cur *domain.Schedule) (bool, error) {
			// re-check on the fresh row; a run may have advanced it meanwhile
			now := s.now()
			if !needsReconcile(cur, now, missingOnly) {
				return false, nil
			}
			reschedule(cur, now)
			touched = true
			return true, nil
		})
		if errors.Is(err, domain.ErrScheduleNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		if touched {
			n++
		}
	}
	return n, nil
}

func needsReconcile(sch *domain.Schedule, now time.Time, missingOnly bool) bool {
	if !sch.Enabled {
		return false
	}
	if sch.NextRunAt == nil {
		return true
	}
	return !missingOnly && sch.NextRunAt.Before(now)
}
