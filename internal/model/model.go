package model

import (
	"time"

	"gorm.io/gorm"
)

// Schedule 备份计划表
type Schedule struct {
	ID              string     `gorm:"column:id;primaryKey;size:64"`
	Name            string     `gorm:"column:name;size:255;not null"`
	TriggerKind     string     `gorm:"column:trigger_kind;size:16;not null"`
	IntervalMinutes int64      `gorm:"column:interval_minutes;default:0"`
	CronExpression  string     `gorm:"column:cron_expression;size:128"`
	FilterMode      string     `gorm:"column:filter_mode;size:16"`
	Categories      string     `gorm:"column:categories;size:1024"`
	Extensions      string     `gorm:"column:extensions;size:1024"`
	SourceDirectory string     `gorm:"column:source_directory;size:1024"`
	IsEnabled       int64      `gorm:"column:is_enabled;default:1;index"`
	LastRunAt       *time.Time `gorm:"column:last_run_at"`
	NextRunAt       *time.Time `gorm:"column:next_run_at;index"`
	TriggerError    string     `gorm:"column:trigger_error;size:512"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// RunRecord 执行历史表，Seq 保留追加顺序
type RunRecord struct {
	Seq             int64      `gorm:"column:seq;primaryKey;autoIncrement"`
	RunID           string     `gorm:"column:run_id;size:96;uniqueIndex"`
	ScheduleID      *string    `gorm:"column:schedule_id;size:64;index"`
	ScheduleName    string     `gorm:"column:schedule_name;size:255"`
	StartTime       time.Time  `gorm:"column:start_time;index"`
	EndTime         *time.Time `gorm:"column:end_time"`
	DurationMs      int64      `gorm:"column:duration_ms;default:0"`
	Status          string     `gorm:"column:status;size:16;index"`
	TotalFiles      int64      `gorm:"column:total_files;default:0"`
	FilesProcessed  int64      `gorm:"column:files_processed;default:0"`
	FilesUploaded   int64      `gorm:"column:files_uploaded;default:0"`
	FilesFailed     int64      `gorm:"column:files_failed;default:0"`
	SkippedExisting int64      `gorm:"column:skipped_existing;default:0"`
	SkippedTime     int64      `gorm:"column:skipped_time;default:0"`
	NotAttempted    int64      `gorm:"column:not_attempted;default:0"`
	UploadedSize    int64      `gorm:"column:uploaded_size;default:0"`
	Error           string     `gorm:"column:error;type:text"`
}

// AutoMigrate migrates the table behind key
// AutoMigrate 根据 key 迁移对应的表
func AutoMigrate(db *gorm.DB, key string) error {
	switch key {
	case "Schedule":
		return db.AutoMigrate(Schedule{})
	case "RunRecord":
		return db.AutoMigrate(RunRecord{})
	}
	return nil
}

// AutoMigrateAll migrates every table
func AutoMigrateAll(db *gorm.DB) error {
	for _, key := range []string{"Schedule", "RunRecord"} {
		if err := AutoMigrate(db, key); err != nil {
			return err
		}
	}
	return nil
}
