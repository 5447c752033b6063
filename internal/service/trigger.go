package service

import (
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
)

// NextRunAfter returns the first run time strictly after from.
// Interval triggers add whole minutes; cron triggers return the next
// matching minute. A cron expression that never matches (for example
// "0 0 30 2 *") yields a *domain.TriggerError.
// NextRunAfter 计算下一次执行时间
func NextRunAfter(t domain.Trigger, from time.Time) (time.Time, error) {
	if err := t.Validate(); err != nil {
		return time.Time{}, err
	}
	switch t.Kind {
	case domain.TriggerCron:
		sched, err := domain.CronParser.Parse(t.Expression)
		if err != nil {
			return time.Time{}, domain.NewValidationError("trigger.expression", err.Error())
		}
		next := sched.Next(from)
		if next.IsZero() {
			return time.Time{}, &domain.TriggerError{Expression: t.Expression, Message: "no future run time matches this expression"}
		}
		return next, nil
	default:
		return from.Add(time.Duration(t.Minutes) * time.Minute), nil
	}
}

// IsDue reports whether s is enabled and its next run time has passed.
func IsDue(s *domain.Schedule, now time.Time) bool {
	return s != nil && s.Enabled && s.NextRunAt != nil && !s.NextRunAt.After(now)
}

// reschedule recomputes NextRunAt from the given time. Disabled schedules
// have no next run; a trigger error disables the schedule.
func reschedule(s *domain.Schedule, from time.Time) {
	s.NextRunAt = nil
	if !s.Enabled {
		return
	}
	next, err := NextRunAfter(s.Trigger, from)
	if err != nil {
		s.Enabled = false
		s.TriggerError = err.Error()
		return
	}
	s.TriggerError = ""
	s.NextRunAt = &next
}
