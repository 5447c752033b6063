package domain

import "time"

// ScheduleStats is derived from history on every read.
type ScheduleStats struct {
	ScheduleID         string
	TotalRuns          int
	SuccessfulRuns     int
	FailedRuns         int
	RunningRuns        int
	SuccessRate        float64
	TotalFilesUploaded int
	TotalDataUploaded  int64
	AverageDuration    time.Duration
	LastRun            *RunRecord
}

// GlobalStats covers all schedules and all retained history.
type GlobalStats struct {
	TotalSchedules     int
	EnabledSchedules   int
	TotalRuns          int
	SuccessfulRuns     int
	FailedRuns         int
	RunningRuns        int
	SuccessRate        float64
	TotalFilesUploaded int
	TotalDataUploaded  int64
}
