package service

import (
	"context"
	"strings"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"

	"go.uber.org/zap"
)

// DefaultHistoryLimit is used when a query gives no limit.
const DefaultHistoryLimit = 50

// ScheduleAll and ScheduleAdHoc are the reserved schedule filters of a history query.
const (
	ScheduleAll   = "all"
	ScheduleAdHoc = "adhoc"
)

// HistoryService defines run history queries
// 执行历史业务服务接口
type HistoryService interface {
	Query(ctx context.Context, q domain.HistoryQuery) ([]*domain.RunRecord, error)
	// Clear removes every finished record and returns how many were removed.
	Clear(ctx context.Context) (int64, error)
}

type historyService struct {
	repo   domain.HistoryRepository
	logger *zap.Logger
	now    Clock
}

// NewHistoryService 创建 HistoryService 实例
func NewHistoryService(repo domain.HistoryRepository, logger *zap.Logger, clock Clock) HistoryService {
	if clock == nil {
		clock = systemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &historyService{repo: repo, logger: logger, now: clock}
}

// Query 查询历史，最新的在前
func (s *historyService) Query(ctx context.Context, q domain.HistoryQuery) ([]*domain.RunRecord, error) {
	period, err := domain.ParsePeriod(string(q.Period))
	if err != nil {
		return nil, err
	}
	f := domain.HistoryFilter{
		Since: period.Since(s.now()),
		Limit: q.Limit,
	}
	if f.Limit <= 0 {
		f.Limit = DefaultHistoryLimit
	}
	switch id := strings.TrimSpace(q.ScheduleID); id {
	case "", ScheduleAll:
	case ScheduleAdHoc:
		f.AdHocOnly = true
	default:
		f.ScheduleID = id
	}
	return s.repo.Query(ctx, f)
}

// Clear 清空已完成的历史
func (s *historyService) Clear(ctx context.Context) (int64, error) {
	n, err := s.repo.ClearFinished(ctx)
	if err != nil {
		return 0, err
	}
	s.logger.Info("history cleared", zap.Int64("removed", n))
	return n, nil
}
