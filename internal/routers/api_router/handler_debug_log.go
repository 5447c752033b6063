package api_router

import (
	"github.com/Q-mercy-Q/backups-S3-replication/internal/app"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/dto"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/service"
	pkgapp "github.com/Q-mercy-Q/backups-S3-replication/pkg/app"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/code"

	"github.com/gin-gonic/gin"
)

var debugLogLimit = pkgapp.LimitConfig{Default: service.DefaultDebugLogLimit, Max: 1000}

// DebugLogHandler 内存调试日志 API 路由处理器
type DebugLogHandler struct {
	*Handler
}

// NewDebugLogHandler 创建 DebugLogHandler 实例
func NewDebugLogHandler(a *app.App) *DebugLogHandler {
	return &DebugLogHandler{Handler: NewHandler(a)}
}

// List 查询最近日志
// @Summary Debug logs
// @Tags 调试
// @Produce json
// @Param level query string false "最低级别" default(INFO)
// @Param limit query int false "条数" default(100)
// @Success 200 {object} pkgapp.Res{data=dto.DebugLogDTO} "成功"
// @Router /api/scheduler/debug_logs [get]
func (h *DebugLogHandler) List(c *gin.Context) {
	params := &dto.DebugLogRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		h.invalidParams(c, "DebugLogHandler.List", errs)
		return
	}
	entries, err := h.App.DebugLogService.Entries(params.Level, pkgapp.GetLimitWithConfig(c, debugLogLimit))
	if err != nil {
		h.fail(c, "DebugLogHandler.List", err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(dto.DebugLogDTO{Entries: entries, Total: len(entries)}))
}

// Clear 清空内存日志
// @Summary Clear debug logs
// @Tags 调试
// @Success 200 {object} pkgapp.Res{data=dto.DebugLogClearDTO} "成功"
// @Router /api/scheduler/debug_logs [delete]
func (h *DebugLogHandler) Clear(c *gin.Context) {
	n := h.App.DebugLogService.Clear()
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(dto.DebugLogClearDTO{Cleared: n}))
}
