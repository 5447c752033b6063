package service

import (
	"context"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
)

// StatsService aggregates statistics from the history ledger on every call.
// 统计业务服务接口
type StatsService interface {
	Global(ctx context.Context) (*domain.GlobalStats, error)
	Schedule(ctx context.Context, scheduleID string) (*domain.ScheduleStats, error)
}

type statsService struct {
	schedules domain.ScheduleRepository
	history   domain.HistoryRepository
}

// NewStatsService 创建 StatsService 实例
func NewStatsService(schedules domain.ScheduleRepository, history domain.HistoryRepository) StatsService {
	return &statsService{schedules: schedules, history: history}
}

type tally struct {
	total, successful, failed, running int
	files                              int
	bytes                              int64
	durationSum                        time.Duration
	durationN                          int
}

func (t *tally) add(r *domain.RunRecord) {
	t.total++
	switch r.Status {
	case domain.RunCompleted:
		t.successful++
		t.files += r.FilesUploaded
		t.bytes += r.UploadedSize
	case domain.RunFailed:
		t.failed++
	case domain.RunRunning:
		t.running++
	}
	if r.HasDuration() {
		t.durationSum += r.Duration
		t.durationN++
	}
}

func (t *tally) successRate() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.successful) / float64(t.total) * 100
}

// Global 全局统计
func (s *statsService) Global(ctx context.Context) (*domain.GlobalStats, error) {
	schedules, err := s.schedules.List(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.history.Query(ctx, domain.HistoryFilter{})
	if err != nil {
		return nil, err
	}

	var t tally
	for _, r := range records {
		t.add(r)
	}
	g := &domain.GlobalStats{
		TotalSchedules:     len(schedules),
		TotalRuns:          t.total,
		SuccessfulRuns:     t.successful,
		FailedRuns:         t.failed,
		RunningRuns:        t.running,
		SuccessRate:        t.successRate(),
		TotalFilesUploaded: t.files,
		TotalDataUploaded:  t.bytes,
	}
	for _, sch := range schedules {
		if sch.Enabled {
			g.EnabledSchedules++
		}
	}
	return g, nil
}

// Schedule 单个计划统计。计划已删除时仍按保留的历史统计
func (s *statsService) Schedule(ctx context.Context, scheduleID string) (*domain.ScheduleStats, error) {
	records, err := s.history.Query(ctx, domain.HistoryFilter{ScheduleID: scheduleID})
	if err != nil {
		return nil, err
	}

	var t tally
	for _, r := range records {
		t.add(r)
	}
	st := &domain.ScheduleStats{
		ScheduleID:         scheduleID,
		TotalRuns:          t.total,
		SuccessfulRuns:     t.successful,
		FailedRuns:         t.failed,
		RunningRuns:        t.running,
		SuccessRate:        t.successRate(),
		TotalFilesUploaded: t.files,
		TotalDataUploaded:  t.bytes,
	}
	if t.durationN > 0 {
		st.AverageDuration = t.durationSum / time.Duration(t.durationN)
	}
	if len(records) > 0 {
		st.LastRun = records[0]
	}
	return st, nil
}
