package dao

import (
	"context"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// DefaultHistoryCapacity 历史记录默认容量
const DefaultHistoryCapacity = 100

// historyRepository implements domain.HistoryRepository
type historyRepository struct {
	dao      *Dao
	capacity int
}

// NewHistoryRepository creates the ledger; capacity <= 0 uses DefaultHistoryCapacity.
func NewHistoryRepository(dao *Dao, capacity int) domain.HistoryRepository {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &historyRepository{dao: dao, capacity: capacity}
}

func (r *historyRepository) toDomain(m *model.RunRecord) *domain.RunRecord {
	d := &domain.RunRecord{
		ID:              m.RunID,
		ScheduleName:    m.ScheduleName,
		StartTime:       m.StartTime,
		EndTime:         m.EndTime,
		Duration:        time.Duration(m.DurationMs) * time.Millisecond,
		Status:          domain.RunStatus(m.Status),
		TotalFiles:      int(m.TotalFiles),
		FilesProcessed:  int(m.FilesProcessed),
		FilesUploaded:   int(m.FilesUploaded),
		FilesFailed:     int(m.FilesFailed),
		SkippedExisting: int(m.SkippedExisting),
		SkippedTime:     int(m.SkippedTime),
		NotAttempted:    int(m.NotAttempted),
		UploadedSize:    m.UploadedSize,
		Error:           m.Error,
	}
	if m.ScheduleID != nil {
		d.ScheduleID = *m.ScheduleID
	}
	return d
}

func (r *historyRepository) toModel(d *domain.RunRecord) *model.RunRecord {
	m := &model.RunRecord{
		RunID:           d.ID,
		ScheduleName:    d.ScheduleName,
		StartTime:       d.StartTime,
		EndTime:         d.EndTime,
		DurationMs:      d.Duration.Milliseconds(),
		Status:          string(d.Status),
		TotalFiles:      int64(d.TotalFiles),
		FilesProcessed:  int64(d.FilesProcessed),
		FilesUploaded:   int64(d.FilesUploaded),
		FilesFailed:     int64(d.FilesFailed),
		SkippedExisting: int64(d.SkippedExisting),
		SkippedTime:     int64(d.SkippedTime),
		NotAttempted:    int64(d.NotAttempted),
		UploadedSize:    d.UploadedSize,
		Error:           d.Error,
	}
	if d.ScheduleID != "" {
		id := d.ScheduleID
		m.ScheduleID = &id
	}
	return m
}

// Append 追加记录并淘汰超出容量的已完成记录
func (r *historyRepository) Append(ctx context.Context, rec *domain.RunRecord) error {
	m := r.toModel(rec)
	err := r.dao.ExecuteWrite(ctx, writeKeyHistory, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(m).Error; err != nil {
				return err
			}
			return r.evict(tx)
		})
	})
	return errors.Wrap(err, "append run record")
}

// evict drops the oldest finished records while the ledger is over capacity.
func (r *historyRepository) evict(tx *gorm.DB) error {
	var total int64
	if err := tx.Model(&model.RunRecord{}).Count(&total).Error; err != nil {
		return err
	}
	excess := int(total) - r.capacity
	if excess <= 0 {
		return nil
	}
	var seqs []int64
	err := tx.Model(&model.RunRecord{}).
		Where("status <> ?", string(domain.RunRunning)).
		Order("seq ASC").
		Limit(excess).
		Pluck("seq", &seqs).Error
	if err != nil || len(seqs) == 0 {
		return err
	}
	return tx.Where("seq IN ?", seqs).Delete(&model.RunRecord{}).Error
}

// Update 原位更新记录
func (r *historyRepository) Update(ctx context.Context, rec *domain.RunRecord) error {
	m := r.toModel(rec)
	var affected int64
	err := r.dao.ExecuteWrite(ctx, writeKeyHistory, func(db *gorm.DB) error {
		res := db.Model(&model.RunRecord{}).Where("run_id = ?", rec.ID).
			Select("*").Omit("seq", "run_id").Updates(m)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return errors.Wrap(err, "update run record")
	}
	if affected == 0 {
		var n int64
		r.dao.Read(ctx).Model(&model.RunRecord{}).Where("run_id = ?", rec.ID).Count(&n)
		if n == 0 {
			return domain.ErrRunNotFound
		}
	}
	return nil
}

// Query 按条件查询，最新的在前
func (r *historyRepository) Query(ctx context.Context, f domain.HistoryFilter) ([]*domain.RunRecord, error) {
	q := r.dao.Read(ctx).Model(&model.RunRecord{})
	switch {
	case f.AdHocOnly:
		q = q.Where("schedule_id IS NULL")
	case f.ScheduleID != "":
		q = q.Where("schedule_id = ?", f.ScheduleID)
	}
	if f.Since != nil {
		q = q.Where("start_time >= ?", *f.Since)
	}
	q = q.Order("start_time DESC").Order("seq DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var ms []*model.RunRecord
	if err := q.Find(&ms).Error; err != nil {
		return nil, errors.Wrap(err, "query run records")
	}
	out := make([]*domain.RunRecord, 0, len(ms))
	for _, m := range ms {
		out = append(out, r.toDomain(m))
	}
	return out, nil
}

// ClearFinished 清空非运行中的记录
func (r *historyRepository) ClearFinished(ctx context.Context) (int64, error) {
	var affected int64
	err := r.dao.ExecuteWrite(ctx, writeKeyHistory, func(db *gorm.DB) error {
		res := db.Where("status <> ?", string(domain.RunRunning)).Delete(&model.RunRecord{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, errors.Wrap(err, "clear run records")
	}
	return affected, nil
}

// FailRunning marks leftover running records failed, stamping the end time.
func (r *historyRepository) FailRunning(ctx context.Context, message string, at time.Time) (int64, error) {
	var running []*model.RunRecord
	if err := r.dao.Read(ctx).Where("status = ?", string(domain.RunRunning)).Find(&running).Error; err != nil {
		return 0, errors.Wrap(err, "find running records")
	}
	var n int64
	for _, m := range running {
		d := r.toDomain(m)
		d.Error = message
		d.Finish(domain.RunFailed, at)
		if err := r.Update(ctx, d); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
