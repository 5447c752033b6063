package dto

import "github.com/Q-mercy-Q/backups-S3-replication/internal/domain"

// HistoryListRequest 历史查询参数
type HistoryListRequest struct {
	// Schedule is a schedule ID, "all" or "adhoc".
	Schedule string `json:"schedule" form:"schedule" binding:"omitempty,max=64" example:"all"`
	Period   string `json:"period" form:"period" binding:"omitempty,oneof=all today week month" example:"week"`
	Limit    int    `json:"limit" form:"limit" binding:"omitempty,min=1,max=1000" example:"50"`
}

// ToQuery 转换为领域查询
func (r *HistoryListRequest) ToQuery() domain.HistoryQuery {
	return domain.HistoryQuery{
		ScheduleID: r.Schedule,
		Period:     domain.Period(r.Period),
		Limit:      r.Limit,
	}
}

// HistoryClearDTO 清空结果
type HistoryClearDTO struct {
	Removed int64 `json:"removed"`
}
