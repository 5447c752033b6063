package dto

import (
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
)

// AdHocRunRequest 手动上传请求（不关联计划）
type AdHocRunRequest struct {
	Categories      []string `json:"categories" form:"categories" binding:"omitempty,dive,required,max=64"`
	Extensions      []string `json:"extensions" form:"extensions" binding:"omitempty,dive,ext"`
	SourceDirectory string   `json:"sourceDirectory" form:"sourceDirectory" binding:"omitempty,relpath"`
	// Wait blocks the request until the run finishes.
	Wait bool `json:"wait" form:"wait"`
}

// ScheduleRunRequest 立即执行计划请求
type ScheduleRunRequest struct {
	Wait bool `json:"wait" form:"wait"`
}

// StopRequest 停止请求
type StopRequest struct {
	Mode string `json:"mode" form:"mode" binding:"omitempty,oneof=graceful force" example:"graceful"`
}

// RunRecordDTO 执行记录响应
type RunRecordDTO struct {
	ID string `json:"id"`
	// ScheduleID is null for ad hoc runs.
	ScheduleID      *string    `json:"scheduleId"`
	ScheduleName    string     `json:"scheduleName"`
	IsAdHoc         bool       `json:"isAdHoc"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime"`
	Duration        float64    `json:"duration"` // 秒
	DurationDisplay string     `json:"durationDisplay"`
	Status          string     `json:"status"`
	Outcome         string     `json:"outcome"`
	Summary         string     `json:"summary"`
	TotalFiles      int        `json:"totalFiles"`
	FilesProcessed  int        `json:"filesProcessed"`
	FilesUploaded   int        `json:"filesUploaded"`
	FilesFailed     int        `json:"filesFailed"`
	SkippedExisting int        `json:"skippedExisting"`
	SkippedTime     int        `json:"skippedTime"`
	NotAttempted    int        `json:"notAttempted"`
	UploadedSize    int64      `json:"uploadedSize"`
	SizeDisplay     string     `json:"sizeDisplay"`
	SuccessRate     float64    `json:"successRate"`
	Error           string     `json:"error,omitempty"`
}

// NewRunRecordDTO 转换执行记录，nil 返回 nil
func NewRunRecordDTO(r *domain.RunRecord) *RunRecordDTO {
	if r == nil {
		return nil
	}
	d := &RunRecordDTO{
		ID:              r.ID,
		ScheduleName:    r.ScheduleName,
		IsAdHoc:         r.IsAdHoc(),
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		Duration:        r.Duration.Seconds(),
		DurationDisplay: r.DurationDisplay(),
		Status:          string(r.Status),
		Outcome:         string(r.Outcome()),
		Summary:         r.Summary(),
		TotalFiles:      r.TotalFiles,
		FilesProcessed:  r.FilesProcessed,
		FilesUploaded:   r.FilesUploaded,
		FilesFailed:     r.FilesFailed,
		SkippedExisting: r.SkippedExisting,
		SkippedTime:     r.SkippedTime,
		NotAttempted:    r.NotAttempted,
		UploadedSize:    r.UploadedSize,
		SizeDisplay:     r.SizeDisplay(),
		SuccessRate:     r.SuccessRate(),
		Error:           r.Error,
	}
	if !r.IsAdHoc() {
		id := r.ScheduleID
		d.ScheduleID = &id
	}
	return d
}

// NewRunRecordDTOList 批量转换
func NewRunRecordDTOList(records []*domain.RunRecord) []*RunRecordDTO {
	out := make([]*RunRecordDTO, 0, len(records))
	for _, r := range records {
		out = append(out, NewRunRecordDTO(r))
	}
	return out
}

// RunStartedDTO 启动结果
type RunStartedDTO struct {
	Skipped bool          `json:"skipped"`
	Record  *RunRecordDTO `json:"record,omitempty"`
}
