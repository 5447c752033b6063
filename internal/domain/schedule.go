package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// CronParser parses standard 5-field cron expressions
// (minute, hour, day-of-month, month, day-of-week). Descriptors such as
// "@daily" are rejected.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// TriggerKind 触发器类型
type TriggerKind string

const (
	TriggerInterval TriggerKind = "interval"
	TriggerCron     TriggerKind = "cron"
)

// Trigger 触发器，Interval 或 Cron 二选一
type Trigger struct {
	Kind       TriggerKind
	Minutes    int    // Interval only
	Expression string // Cron only
}

func IntervalTrigger(minutes int) Trigger {
	return Trigger{Kind: TriggerInterval, Minutes: minutes}
}

func CronTrigger(expr string) Trigger {
	return Trigger{Kind: TriggerCron, Expression: strings.TrimSpace(expr)}
}

// Validate checks the trigger shape and cron syntax.
func (t Trigger) Validate() error {
	switch t.Kind {
	case TriggerInterval:
		if t.Minutes < 1 {
			return NewValidationError("trigger.minutes", "interval must be at least 1 minute")
		}
		return nil
	case TriggerCron:
		expr := strings.TrimSpace(t.Expression)
		if expr == "" {
			return NewValidationError("trigger.expression", "cron expression is required")
		}
		if len(strings.Fields(expr)) != 5 {
			return NewValidationError("trigger.expression", "cron expression must have 5 fields")
		}
		if _, err := CronParser.Parse(expr); err != nil {
			return NewValidationError("trigger.expression", fmt.Sprintf("invalid cron expression: %v", err))
		}
		return nil
	default:
		return NewValidationError("trigger.kind", fmt.Sprintf("unknown trigger kind %q", t.Kind))
	}
}

// Display renders "Every 2 days", "Every 1 hour" or "Cron: 0 2 * * *".
func (t Trigger) Display() string {
	if t.Kind == TriggerCron {
		return "Cron: " + t.Expression
	}
	m := t.Minutes
	unit, n := "minute", m
	switch {
	case m >= 10080 && m%10080 == 0:
		unit, n = "week", m/10080
	case m >= 1440 && m%1440 == 0:
		unit, n = "day", m/1440
	case m >= 60 && m%60 == 0:
		unit, n = "hour", m/60
	}
	if n != 1 {
		unit += "s"
	}
	return fmt.Sprintf("Every %d %s", n, unit)
}

// FilterMode 过滤模式
type FilterMode string

const (
	FilterAll        FilterMode = ""
	FilterCategories FilterMode = "categories"
	FilterExtensions FilterMode = "extensions"
)

// Filter selects candidate files. Only the slice matching Mode is used.
type Filter struct {
	Mode       FilterMode
	Categories []string
	Extensions []string
}

func CategoriesFilter(categories ...string) Filter {
	return Filter{Mode: FilterCategories, Categories: normalizeList(categories, false)}
}

func ExtensionsFilter(exts ...string) Filter {
	return Filter{Mode: FilterExtensions, Extensions: normalizeList(exts, true)}
}

// NewFilter builds a filter from the two optional lists, rejecting both at once.
func NewFilter(categories, extensions []string) (Filter, error) {
	categories = normalizeList(categories, false)
	extensions = normalizeList(extensions, true)
	switch {
	case len(categories) > 0 && len(extensions) > 0:
		return Filter{}, NewValidationError("filter", "specify either categories or extensions, not both")
	case len(categories) > 0:
		return Filter{Mode: FilterCategories, Categories: categories}, nil
	case len(extensions) > 0:
		return Filter{Mode: FilterExtensions, Extensions: extensions}, nil
	}
	return Filter{}, nil
}

func normalizeList(in []string, ext bool) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if ext && !strings.HasPrefix(s, ".") {
			s = "." + s
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Schedule 备份计划
type Schedule struct {
	ID              string
	Name            string
	Trigger         Trigger
	Filter          Filter
	SourceDirectory string
	Enabled         bool
	LastRunAt       *time.Time
	NextRunAt       *time.Time
	// TriggerError is set when the trigger has no future run; such a
	// schedule is kept disabled until the trigger is corrected.
	TriggerError string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ScheduleSpec is the input of create.
type ScheduleSpec struct {
	Name            string
	Trigger         Trigger
	Filter          Filter
	SourceDirectory string
	Enabled         bool
}

// Validate checks the spec without touching storage.
func (s ScheduleSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return NewValidationError("name", "name is required")
	}
	if err := s.Trigger.Validate(); err != nil {
		return err
	}
	if len(s.Filter.Categories) > 0 && len(s.Filter.Extensions) > 0 {
		return NewValidationError("filter", "specify either categories or extensions, not both")
	}
	return nil
}

// SchedulePatch is a partial update; nil fields are left unchanged.
type SchedulePatch struct {
	Name            *string
	Trigger         *Trigger
	Filter          *Filter
	SourceDirectory *string
	Enabled         *bool
}

// Apply returns the updated copy and whether trigger or enabled changed.
func (p SchedulePatch) Apply(s Schedule) (Schedule, bool, error) {
	reschedule := false
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return s, false, NewValidationError("name", "name is required")
		}
		s.Name = strings.TrimSpace(*p.Name)
	}
	if p.Trigger != nil {
		if err := p.Trigger.Validate(); err != nil {
			return s, false, err
		}
		s.Trigger = *p.Trigger
		reschedule = true
	}
	if p.Filter != nil {
		if len(p.Filter.Categories) > 0 && len(p.Filter.Extensions) > 0 {
			return s, false, NewValidationError("filter", "specify either categories or extensions, not both")
		}
		s.Filter = *p.Filter
	}
	if p.SourceDirectory != nil {
		s.SourceDirectory = strings.TrimSpace(*p.SourceDirectory)
	}
	if p.Enabled != nil && *p.Enabled != s.Enabled {
		s.Enabled = *p.Enabled
		reschedule = true
	}
	return s, reschedule, nil
}
