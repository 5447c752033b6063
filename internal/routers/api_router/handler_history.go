package api_router

import (
	"github.com/Q-mercy-Q/backups-S3-replication/internal/app"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/dto"
	pkgapp "github.com/Q-mercy-Q/backups-S3-replication/pkg/app"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/code"

	"github.com/gin-gonic/gin"
)

// HistoryHandler 执行历史 API 路由处理器
type HistoryHandler struct {
	*Handler
}

// NewHistoryHandler 创建 HistoryHandler 实例
func NewHistoryHandler(a *app.App) *HistoryHandler {
	return &HistoryHandler{Handler: NewHandler(a)}
}

// List 查询执行历史，最新的在前
// @Summary Run history
// @Tags 历史
// @Produce json
// @Param params query dto.HistoryListRequest false "查询参数"
// @Success 200 {object} pkgapp.Res{data=pkgapp.ListRes{list=[]dto.RunRecordDTO}} "成功"
// @Router /api/scheduler/history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	params := &dto.HistoryListRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		h.invalidParams(c, "HistoryHandler.List", errs)
		return
	}
	records, err := h.App.HistoryService.Query(c.Request.Context(), params.ToQuery())
	if err != nil {
		h.fail(c, "HistoryHandler.List", err)
		return
	}
	list := dto.NewRunRecordDTOList(records)
	pkgapp.NewResponse(c).ToResponseList(code.Success, list, len(list))
}

// Clear 清空已完成的历史记录
// @Summary Clear history
// @Tags 历史
// @Success 200 {object} pkgapp.Res{data=dto.HistoryClearDTO} "成功"
// @Router /api/scheduler/history [delete]
func (h *HistoryHandler) Clear(c *gin.Context) {
	n, err := h.App.HistoryService.Clear(c.Request.Context())
	if err != nil {
		h.fail(c, "HistoryHandler.Clear", err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(dto.HistoryClearDTO{Removed: n}))
}
