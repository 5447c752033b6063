package api_router

import (
	"github.com/Q-mercy-Q/backups-S3-replication/internal/app"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/dto"
	pkgapp "github.com/Q-mercy-Q/backups-S3-replication/pkg/app"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/code"

	"github.com/gin-gonic/gin"
)

// StatsHandler 统计 API 路由处理器
type StatsHandler struct {
	*Handler
}

// NewStatsHandler 创建 StatsHandler 实例
func NewStatsHandler(a *app.App) *StatsHandler {
	return &StatsHandler{Handler: NewHandler(a)}
}

// Global 全局统计
// @Summary Global stats
// @Tags 统计
// @Produce json
// @Success 200 {object} pkgapp.Res{data=dto.GlobalStatsDTO} "成功"
// @Router /api/scheduler/stats [get]
func (h *StatsHandler) Global(c *gin.Context) {
	stats, err := h.App.StatsService.Global(c.Request.Context())
	if err != nil {
		h.fail(c, "StatsHandler.Global", err)
		return
	}
	data, err := dto.NewGlobalStatsDTO(stats)
	if err != nil {
		h.fail(c, "StatsHandler.Global", err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(data))
}

// Schedule 单个计划统计，计划删除后仍可查询
// @Summary Schedule stats
// @Tags 统计
// @Produce json
// @Param id path string true "计划 ID"
// @Success 200 {object} pkgapp.Res{data=dto.ScheduleStatsDTO} "成功"
// @Router /api/scheduler/stats/{id} [get]
func (h *StatsHandler) Schedule(c *gin.Context) {
	stats, err := h.App.StatsService.Schedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "StatsHandler.Schedule", err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(dto.NewScheduleStatsDTO(stats)))
}
