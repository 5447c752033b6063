package domain

import (
	"fmt"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/pkg/util"
)

// RunStatus 执行状态
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunOutcome is the UI-facing state derived from status and counts.
type RunOutcome string

const (
	OutcomeNeverRun  RunOutcome = "never_run"
	OutcomeRunning   RunOutcome = "running"
	OutcomeSucceeded RunOutcome = "succeeded"
	OutcomePartial   RunOutcome = "partial"
	OutcomeFailed    RunOutcome = "failed"
)

// RunRecord 一次执行的记录
type RunRecord struct {
	ID string
	// ScheduleID is empty for ad hoc runs.
	ScheduleID   string
	ScheduleName string
	StartTime    time.Time
	EndTime      *time.Time
	Duration     time.Duration
	Status       RunStatus

	TotalFiles      int
	FilesProcessed  int
	FilesUploaded   int
	FilesFailed     int
	SkippedExisting int
	SkippedTime     int
	NotAttempted    int
	UploadedSize    int64

	Error string
}

func (r *RunRecord) IsAdHoc() bool {
	return r.ScheduleID == ""
}

// HasDuration reports whether the run finished and recorded a duration.
func (r *RunRecord) HasDuration() bool {
	return r.EndTime != nil
}

// Finish stamps end time and duration and sets the final status.
func (r *RunRecord) Finish(status RunStatus, at time.Time) {
	r.Status = status
	end := at
	r.EndTime = &end
	r.Duration = at.Sub(r.StartTime)
	if r.Duration < 0 {
		r.Duration = 0
	}
}

// SuccessRate is uploaded / processed * 100, 0 when nothing was processed.
func (r *RunRecord) SuccessRate() float64 {
	if r.FilesProcessed == 0 {
		return 0
	}
	return float64(r.FilesUploaded) / float64(r.FilesProcessed) * 100
}

func (r *RunRecord) Outcome() RunOutcome {
	switch {
	case r.Status == RunRunning:
		return OutcomeRunning
	case r.Status == RunFailed:
		return OutcomeFailed
	case r.FilesFailed > 0:
		return OutcomePartial
	default:
		return OutcomeSucceeded
	}
}

func (r *RunRecord) DurationDisplay() string {
	if !r.HasDuration() {
		return ""
	}
	return util.FormatDuration(r.Duration)
}

func (r *RunRecord) SizeDisplay() string {
	return util.FormatBytes(r.UploadedSize)
}

func (r *RunRecord) Summary() string {
	switch r.Status {
	case RunRunning:
		return fmt.Sprintf("Running - %d files processed", r.FilesProcessed)
	case RunCompleted:
		return fmt.Sprintf("Completed - %d/%d files uploaded", r.FilesUploaded, r.FilesProcessed)
	default:
		return "Failed - " + r.Error
	}
}

// Period 历史查询时间窗口
type Period string

const (
	PeriodAll   Period = "all"
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod maps "" to PeriodAll and rejects unknown values.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "", PeriodAll:
		return PeriodAll, nil
	case PeriodToday, PeriodWeek, PeriodMonth:
		return p, nil
	}
	return "", NewValidationError("period", fmt.Sprintf("unknown period %q", s))
}

// Since returns the window start for now, or nil for PeriodAll.
// today = local midnight, week = now - 7 days, month = first day of the month.
func (p Period) Since(now time.Time) *time.Time {
	var t time.Time
	switch p {
	case PeriodToday:
		t = util.GetZeroTime(now)
	case PeriodWeek:
		t = now.AddDate(0, 0, -7)
	case PeriodMonth:
		t = util.GetFirstDateOfMonth(now)
	default:
		return nil
	}
	return &t
}

// HistoryQuery 历史查询条件
type HistoryQuery struct {
	// ScheduleID filters by schedule; empty or "all" means every record.
	ScheduleID string
	Period     Period
	Limit      int
}

// HistoryFilter is what the repository understands.
type HistoryFilter struct {
	ScheduleID string
	AdHocOnly  bool
	Since      *time.Time
	Limit      int // <= 0 means no limit
}
