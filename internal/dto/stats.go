package dto

import (
	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/convert"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/util"
)

// GlobalStatsDTO 全局统计
type GlobalStatsDTO struct {
	TotalSchedules     int     `json:"totalSchedules"`
	EnabledSchedules   int     `json:"enabledSchedules"`
	TotalRuns          int     `json:"totalRuns"`
	SuccessfulRuns     int     `json:"successfulRuns"`
	FailedRuns         int     `json:"failedRuns"`
	RunningRuns        int     `json:"runningRuns"`
	SuccessRate        float64 `json:"successRate"`
	TotalFilesUploaded int     `json:"totalFilesUploaded"`
	TotalDataUploaded  int64   `json:"totalDataUploaded"`
	TotalDataDisplay   string  `json:"totalDataDisplay"`
}

// NewGlobalStatsDTO 转换全局统计
func NewGlobalStatsDTO(s *domain.GlobalStats) (*GlobalStatsDTO, error) {
	d, err := convert.StructAssign(s, &GlobalStatsDTO{})
	if err != nil {
		return nil, err
	}
	d.TotalDataDisplay = util.FormatBytes(s.TotalDataUploaded)
	return d, nil
}

// ScheduleStatsDTO 单个计划统计
type ScheduleStatsDTO struct {
	ScheduleID             string        `json:"scheduleId"`
	TotalRuns              int           `json:"totalRuns"`
	SuccessfulRuns         int           `json:"successfulRuns"`
	FailedRuns             int           `json:"failedRuns"`
	RunningRuns            int           `json:"runningRuns"`
	SuccessRate            float64       `json:"successRate"`
	TotalFilesUploaded     int           `json:"totalFilesUploaded"`
	TotalDataUploaded      int64         `json:"totalDataUploaded"`
	TotalDataDisplay       string        `json:"totalDataDisplay"`
	AverageDuration        float64       `json:"averageDuration"` // 秒
	AverageDurationDisplay string        `json:"averageDurationDisplay"`
	LastRun                *RunRecordDTO `json:"lastRun"`
}

// NewScheduleStatsDTO 转换计划统计
func NewScheduleStatsDTO(s *domain.ScheduleStats) *ScheduleStatsDTO {
	return &ScheduleStatsDTO{
		ScheduleID:             s.ScheduleID,
		TotalRuns:              s.TotalRuns,
		SuccessfulRuns:         s.SuccessfulRuns,
		FailedRuns:             s.FailedRuns,
		RunningRuns:            s.RunningRuns,
		SuccessRate:            s.SuccessRate,
		TotalFilesUploaded:     s.TotalFilesUploaded,
		TotalDataUploaded:      s.TotalDataUploaded,
		TotalDataDisplay:       util.FormatBytes(s.TotalDataUploaded),
		AverageDuration:        s.AverageDuration.Seconds(),
		AverageDurationDisplay: util.FormatDuration(s.AverageDuration),
		LastRun:                NewRunRecordDTO(s.LastRun),
	}
}

// ScheduleDetailDTO 计划详情，附带统计
type ScheduleDetailDTO struct {
	*ScheduleDTO
	Stats *ScheduleStatsDTO `json:"stats"`
}
