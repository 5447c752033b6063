package dao

import (
	"context"
	"strings"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/model"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/convert"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// scheduleRepository implements domain.ScheduleRepository
type scheduleRepository struct {
	dao *Dao
}

// NewScheduleRepository 创建计划仓储
func NewScheduleRepository(dao *Dao) domain.ScheduleRepository {
	return &scheduleRepository{dao: dao}
}

func (r *scheduleRepository) toDomain(m *model.Schedule) *domain.Schedule {
	if m == nil {
		return nil
	}
	s := &domain.Schedule{
		ID:              m.ID,
		Name:            m.Name,
		SourceDirectory: m.SourceDirectory,
		Enabled:         convert.Int2Bool(m.IsEnabled),
		LastRunAt:       m.LastRunAt,
		NextRunAt:       m.NextRunAt,
		TriggerError:    m.TriggerError,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	switch domain.TriggerKind(m.TriggerKind) {
	case domain.TriggerCron:
		s.Trigger = domain.CronTrigger(m.CronExpression)
	default:
		s.Trigger = domain.IntervalTrigger(int(m.IntervalMinutes))
	}
	switch domain.FilterMode(m.FilterMode) {
	case domain.FilterCategories:
		s.Filter = domain.CategoriesFilter(splitList(m.Categories)...)
	case domain.FilterExtensions:
		s.Filter = domain.ExtensionsFilter(splitList(m.Extensions)...)
	}
	return s
}

func (r *scheduleRepository) toModel(s *domain.Schedule) *model.Schedule {
	m := &model.Schedule{
		ID:              s.ID,
		Name:            s.Name,
		TriggerKind:     string(s.Trigger.Kind),
		FilterMode:      string(s.Filter.Mode),
		SourceDirectory: s.SourceDirectory,
		LastRunAt:       s.LastRunAt,
		NextRunAt:       s.NextRunAt,
		TriggerError:    s.TriggerError,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
	if s.Trigger.Kind == domain.TriggerCron {
		m.CronExpression = s.Trigger.Expression
	} else {
		m.IntervalMinutes = int64(s.Trigger.Minutes)
	}
	switch s.Filter.Mode {
	case domain.FilterCategories:
		m.Categories = strings.Join(s.Filter.Categories, ",")
	case domain.FilterExtensions:
		m.Extensions = strings.Join(s.Filter.Extensions, ",")
	}
	m.IsEnabled = convert.Bool2Int(s.Enabled)
	return m
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Create 创建计划
func (r *scheduleRepository) Create(ctx context.Context, s *domain.Schedule) error {
	m := r.toModel(s)
	err := r.dao.ExecuteWrite(ctx, writeKeySchedules, func(db *gorm.DB) error {
		return db.Create(m).Error
	})
	if err != nil {
		return errors.Wrap(err, "create schedule")
	}
	s.CreatedAt, s.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

// Get 按 ID 获取计划
func (r *scheduleRepository) Get(ctx context.Context, id string) (*domain.Schedule, error) {
	var m model.Schedule
	err := r.dao.Read(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get schedule")
	}
	return r.toDomain(&m), nil
}

// List 获取全部计划
func (r *scheduleRepository) List(ctx context.Context) ([]*domain.Schedule, error) {
	var ms []*model.Schedule
	if err := r.dao.Read(ctx).Order("created_at ASC").Order("id ASC").Find(&ms).Error; err != nil {
		return nil, errors.Wrap(err, "list schedules")
	}
	out := make([]*domain.Schedule, 0, len(ms))
	for _, m := range ms {
		out = append(out, r.toDomain(m))
	}
	return out, nil
}

// Mutate runs the read and the write in one transaction on the schedules
// write key.
func (r *scheduleRepository) Mutate(ctx context.Context, id string, fn func(s *domain.Schedule) (bool, error)) (*domain.Schedule, error) {
	var out *domain.Schedule
	err := r.dao.ExecuteWrite(ctx, writeKeySchedules, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var m model.Schedule
			if err := tx.Where("id = ?", id).First(&m).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return domain.ErrScheduleNotFound
				}
				return err
			}
			s := r.toDomain(&m)
			write, err := fn(s)
			if err != nil || !write {
				out = s
				return err
			}
			next := r.toModel(s)
			if err := tx.Model(&model.Schedule{}).Where("id = ?", id).
				Select("*").Omit("id", "created_at").Updates(next).Error; err != nil {
				return err
			}
			s.UpdatedAt = next.UpdatedAt
			out = s
			return nil
		})
	})
	if errors.Is(err, domain.ErrScheduleNotFound) || domain.IsValidationError(err) || domain.IsTriggerError(err) {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "mutate schedule")
	}
	return out, nil
}

// Delete 删除计划
func (r *scheduleRepository) Delete(ctx context.Context, id string) (bool, error) {
	var affected int64
	err := r.dao.ExecuteWrite(ctx, writeKeySchedules, func(db *gorm.DB) error {
		res := db.Where("id = ?", id).Delete(&model.Schedule{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, errors.Wrap(err, "delete schedule")
	}
	return affected > 0, nil
}
