// Package domain 定义领域模型和接口
package domain

import (
	"context"
	"time"
)

// ScheduleRepository 计划仓储接口
type ScheduleRepository interface {
	// Create 创建计划
	Create(ctx context.Context, s *Schedule) error

	// Get returns nil, nil when the id does not exist.
	Get(ctx context.Context, id string) (*Schedule, error)

	// List 获取全部计划，按创建时间排序
	List(ctx context.Context) ([]*Schedule, error)

	// Mutate reads the schedule, applies fn and writes the result as one
	// serialized step, so concurrent edits and run bookkeeping never overwrite
	// each other with stale values. fn returning false skips the write.
	// A missing id yields ErrScheduleNotFound.
	// Mutate 原子地读取-修改-写回计划
	Mutate(ctx context.Context, id string, fn func(s *Schedule) (bool, error)) (*Schedule, error)

	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id string) (bool, error)
}

// HistoryRepository is the bounded run ledger.
type HistoryRepository interface {
	// Append inserts a record and then evicts the oldest finished records
	// beyond the capacity. Running records are never evicted.
	Append(ctx context.Context, r *RunRecord) error

	// Update rewrites a record in place; its position does not change.
	Update(ctx context.Context, r *RunRecord) error

	// Query returns records most-recent-first.
	Query(ctx context.Context, f HistoryFilter) ([]*RunRecord, error)

	// ClearFinished removes every record that is not running.
	ClearFinished(ctx context.Context) (int64, error)

	// FailRunning finalizes records left running by a previous process.
	FailRunning(ctx context.Context, message string, at time.Time) (int64, error)
}
