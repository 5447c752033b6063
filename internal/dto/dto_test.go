package dto

import (
	"testing"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleCreateRequest_ToSpec(t *testing.T) {
	req := ScheduleCreateRequest{
		Name:           "Nightly",
		Type:           "cron",
		CronExpression: " 0 2 * * * ",
		Categories:     []string{"Full", "full", "logs"},
	}
	spec, err := req.ToSpec()
	require.NoError(t, err)
	assert.True(t, spec.Enabled, "missing enabled defaults to true")
	assert.Equal(t, domain.TriggerCron, spec.Trigger.Kind)
	assert.Equal(t, "0 2 * * *", spec.Trigger.Expression)
	assert.Equal(t, domain.FilterCategories, spec.Filter.Mode)
	assert.Equal(t, []string{"full", "logs"}, spec.Filter.Categories)

	off := false
	req = ScheduleCreateRequest{Name: "x", Type: "interval", IntervalMinutes: 30, Extensions: []string{"vbk"}, Enabled: &off}
	spec, err = req.ToSpec()
	require.NoError(t, err)
	assert.False(t, spec.Enabled)
	assert.Equal(t, domain.IntervalTrigger(30), spec.Trigger)
	assert.Equal(t, []string{".vbk"}, spec.Filter.Extensions)

	req = ScheduleCreateRequest{Name: "x", Type: "interval", IntervalMinutes: 5, Categories: []string{"full"}, Extensions: []string{".vbk"}}
	_, err = req.ToSpec()
	assert.True(t, domain.IsValidationError(err))
}

func TestScheduleUpdateRequest_ToPatch(t *testing.T) {
	cur := &domain.Schedule{ID: "s1", Name: "a", Trigger: domain.IntervalTrigger(60)}

	expr := "*/5 * * * *"
	p, err := (&ScheduleUpdateRequest{CronExpression: &expr}).ToPatch(cur)
	require.NoError(t, err)
	require.NotNil(t, p.Trigger)
	assert.Equal(t, domain.CronTrigger(expr), *p.Trigger)
	assert.Nil(t, p.Filter)
	assert.Nil(t, p.Name)

	mins := 15
	p, err = (&ScheduleUpdateRequest{IntervalMinutes: &mins}).ToPatch(cur)
	require.NoError(t, err)
	assert.Equal(t, domain.IntervalTrigger(15), *p.Trigger)

	name := "b"
	cats := []string{}
	p, err = (&ScheduleUpdateRequest{Name: &name, Categories: &cats}).ToPatch(cur)
	require.NoError(t, err)
	assert.Nil(t, p.Trigger)
	require.NotNil(t, p.Filter)
	assert.Equal(t, domain.FilterAll, p.Filter.Mode, "empty list clears the filter")
	assert.Equal(t, "b", *p.Name)
}

func TestRunRecordDTO(t *testing.T) {
	start := time.Date(2024, 5, 10, 2, 0, 0, 0, time.UTC)
	r := &domain.RunRecord{ID: "r1", ScheduleName: "Manual upload", StartTime: start, Status: domain.RunCompleted,
		FilesProcessed: 4, FilesUploaded: 3, FilesFailed: 1, UploadedSize: 2048}
	r.Finish(domain.RunCompleted, start.Add(90*time.Second))

	d := NewRunRecordDTO(r)
	assert.Nil(t, d.ScheduleID)
	assert.True(t, d.IsAdHoc)
	assert.Equal(t, 90.0, d.Duration)
	assert.Equal(t, 75.0, d.SuccessRate)
	assert.Equal(t, string(domain.OutcomePartial), d.Outcome)

	r.ScheduleID = "s1"
	d = NewRunRecordDTO(r)
	require.NotNil(t, d.ScheduleID)
	assert.Equal(t, "s1", *d.ScheduleID)
	assert.Nil(t, NewRunRecordDTO(nil))
}

func TestStatsDTO(t *testing.T) {
	g, err := NewGlobalStatsDTO(&domain.GlobalStats{TotalSchedules: 2, TotalRuns: 5, SuccessRate: 60, TotalDataUploaded: 1400})
	require.NoError(t, err)
	assert.Equal(t, 2, g.TotalSchedules)
	assert.Equal(t, 5, g.TotalRuns)
	assert.Equal(t, 60.0, g.SuccessRate)
	assert.NotEmpty(t, g.TotalDataDisplay)

	s := NewScheduleStatsDTO(&domain.ScheduleStats{ScheduleID: "s1", AverageDuration: 20 * time.Second})
	assert.Equal(t, 20.0, s.AverageDuration)
	assert.Nil(t, s.LastRun)
}

func TestHistoryListRequest_ToQuery(t *testing.T) {
	q := (&HistoryListRequest{Schedule: "adhoc", Period: "week", Limit: 10}).ToQuery()
	assert.Equal(t, domain.HistoryQuery{ScheduleID: "adhoc", Period: domain.PeriodWeek, Limit: 10}, q)
}
