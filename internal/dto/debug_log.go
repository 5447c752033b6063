package dto

import "github.com/Q-mercy-Q/backups-S3-replication/pkg/logger"

// DebugLogRequest 调试日志查询参数
type DebugLogRequest struct {
	Level string `json:"level" form:"level" binding:"omitempty,max=16" example:"INFO"`
}

// DebugLogDTO 调试日志响应
type DebugLogDTO struct {
	Entries []logger.Entry `json:"entries"`
	Total   int            `json:"total"`
}

// DebugLogClearDTO 清空结果
type DebugLogClearDTO struct {
	Cleared int `json:"cleared"`
}
