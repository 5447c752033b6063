package dto

import (
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
)

// ScheduleCreateRequest 创建计划请求
type ScheduleCreateRequest struct {
	Name            string   `json:"name" form:"name" binding:"required,max=255" example:"Nightly full"`
	Type            string   `json:"type" form:"type" binding:"required,oneof=interval cron" example:"cron"`
	IntervalMinutes int      `json:"intervalMinutes" form:"intervalMinutes" binding:"required_if=Type interval,omitempty,min=1" example:"60"`
	CronExpression  string   `json:"cronExpression" form:"cronExpression" binding:"required_if=Type cron,omitempty,cron" example:"0 2 * * *"`
	Categories      []string `json:"categories" form:"categories" binding:"omitempty,dive,required,max=64"`
	Extensions      []string `json:"extensions" form:"extensions" binding:"omitempty,dive,ext"`
	SourceDirectory string   `json:"sourceDirectory" form:"sourceDirectory" binding:"omitempty,relpath" example:"veeam/jobs"`
	Enabled         *bool    `json:"enabled" form:"enabled" example:"true"`
}

// ToSpec converts the request; a missing enabled flag means enabled.
func (r *ScheduleCreateRequest) ToSpec() (domain.ScheduleSpec, error) {
	filter, err := domain.NewFilter(r.Categories, r.Extensions)
	if err != nil {
		return domain.ScheduleSpec{}, err
	}
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return domain.ScheduleSpec{
		Name:            r.Name,
		Trigger:         buildTrigger(r.Type, r.IntervalMinutes, r.CronExpression),
		Filter:          filter,
		SourceDirectory: r.SourceDirectory,
		Enabled:         enabled,
	}, nil
}

// ScheduleUpdateRequest 部分更新计划请求，未传字段保持不变
type ScheduleUpdateRequest struct {
	Name            *string   `json:"name" binding:"omitempty,max=255"`
	Type            *string   `json:"type" binding:"omitempty,oneof=interval cron"`
	IntervalMinutes *int      `json:"intervalMinutes" binding:"omitempty,min=1"`
	CronExpression  *string   `json:"cronExpression" binding:"omitempty,cron"`
	Categories      *[]string `json:"categories"`
	Extensions      *[]string `json:"extensions"`
	SourceDirectory *string   `json:"sourceDirectory" binding:"omitempty,relpath"`
	Enabled         *bool     `json:"enabled"`
}

// ToPatch converts the request against the current schedule. Sending only
// intervalMinutes or cronExpression switches the trigger kind accordingly.
func (r *ScheduleUpdateRequest) ToPatch(cur *domain.Schedule) (domain.SchedulePatch, error) {
	var p domain.SchedulePatch
	p.Name = r.Name
	p.SourceDirectory = r.SourceDirectory
	p.Enabled = r.Enabled

	if r.Type != nil || r.IntervalMinutes != nil || r.CronExpression != nil {
		kind := string(cur.Trigger.Kind)
		minutes, expr := cur.Trigger.Minutes, cur.Trigger.Expression
		switch {
		case r.Type != nil:
			kind = *r.Type
		case r.CronExpression != nil:
			kind = string(domain.TriggerCron)
		case r.IntervalMinutes != nil:
			kind = string(domain.TriggerInterval)
		}
		if r.IntervalMinutes != nil {
			minutes = *r.IntervalMinutes
		}
		if r.CronExpression != nil {
			expr = *r.CronExpression
		}
		t := buildTrigger(kind, minutes, expr)
		p.Trigger = &t
	}

	if r.Categories != nil || r.Extensions != nil {
		var cats, exts []string
		if r.Categories != nil {
			cats = *r.Categories
		}
		if r.Extensions != nil {
			exts = *r.Extensions
		}
		f, err := domain.NewFilter(cats, exts)
		if err != nil {
			return p, err
		}
		p.Filter = &f
	}
	return p, nil
}

func buildTrigger(kind string, minutes int, expr string) domain.Trigger {
	if domain.TriggerKind(kind) == domain.TriggerCron {
		return domain.CronTrigger(expr)
	}
	return domain.IntervalTrigger(minutes)
}

// ScheduleDTO 计划响应
type ScheduleDTO struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	IntervalMinutes int        `json:"intervalMinutes,omitempty"`
	CronExpression  string     `json:"cronExpression,omitempty"`
	TriggerDisplay  string     `json:"triggerDisplay"`
	Categories      []string   `json:"categories"`
	Extensions      []string   `json:"extensions"`
	SourceDirectory string     `json:"sourceDirectory"`
	Enabled         bool       `json:"enabled"`
	IsRunning       bool       `json:"isRunning"`
	LastRunAt       *time.Time `json:"lastRunAt"`
	NextRunAt       *time.Time `json:"nextRunAt"`
	TriggerError    string     `json:"triggerError,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// NewScheduleDTO 将领域对象转换为响应
func NewScheduleDTO(s *domain.Schedule, running bool) *ScheduleDTO {
	return &ScheduleDTO{
		ID:              s.ID,
		Name:            s.Name,
		Type:            string(s.Trigger.Kind),
		IntervalMinutes: s.Trigger.Minutes,
		CronExpression:  s.Trigger.Expression,
		TriggerDisplay:  s.Trigger.Display(),
		Categories:      nonNil(s.Filter.Categories),
		Extensions:      nonNil(s.Filter.Extensions),
		SourceDirectory: s.SourceDirectory,
		Enabled:         s.Enabled,
		IsRunning:       running,
		LastRunAt:       s.LastRunAt,
		NextRunAt:       s.NextRunAt,
		TriggerError:    s.TriggerError,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
