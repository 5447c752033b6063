package api_router

import (
	"github.com/Q-mercy-Q/backups-S3-replication/internal/app"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/dto"
	pkgapp "github.com/Q-mercy-Q/backups-S3-replication/pkg/app"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/code"

	"github.com/gin-gonic/gin"
)

// ScheduleHandler 备份计划 API 路由处理器
type ScheduleHandler struct {
	*Handler
}

// NewScheduleHandler 创建 ScheduleHandler 实例
func NewScheduleHandler(a *app.App) *ScheduleHandler {
	return &ScheduleHandler{Handler: NewHandler(a)}
}

// List 获取全部计划
// @Summary List schedules
// @Tags 计划
// @Produce json
// @Success 200 {object} pkgapp.Res{data=pkgapp.ListRes{list=[]dto.ScheduleDTO}} "成功"
// @Router /api/scheduler/schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.App.ScheduleService.List(c.Request.Context())
	if err != nil {
		h.fail(c, "ScheduleHandler.List", err)
		return
	}
	list := make([]*dto.ScheduleDTO, 0, len(schedules))
	for _, s := range schedules {
		list = append(list, dto.NewScheduleDTO(s, h.App.Executor.IsRunning(s.ID)))
	}
	pkgapp.NewResponse(c).ToResponseList(code.Success, list, len(list))
}

// Create 创建计划
// @Summary Create schedule
// @Tags 计划
// @Accept json
// @Produce json
// @Param params body dto.ScheduleCreateRequest true "计划参数"
// @Success 200 {object} pkgapp.Res{data=dto.ScheduleDTO} "成功"
// @Router /api/scheduler/schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	params := &dto.ScheduleCreateRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		h.invalidParams(c, "ScheduleHandler.Create", errs)
		return
	}

	spec, err := params.ToSpec()
	if err != nil {
		h.fail(c, "ScheduleHandler.Create", err)
		return
	}
	s, err := h.App.ScheduleService.Create(c.Request.Context(), spec)
	if err != nil {
		h.fail(c, "ScheduleHandler.Create", err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(dto.NewScheduleDTO(s, false)))
}

// Get 获取计划详情（含统计）
// @Summary Get schedule
// @Tags 计划
// @Produce json
// @Param id path string true "计划 ID"
// @Success 200 {object} pkgapp.Res{data=dto.ScheduleDetailDTO} "成功"
// @Router /api/scheduler/schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	s, err := h.App.ScheduleService.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, "ScheduleHandler.Get", err)
		return
	}
	stats, err := h.App.StatsService.Schedule(ctx, s.ID)
	if err != nil {
		h.fail(c, "ScheduleHandler.Get.Stats", err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(dto.ScheduleDetailDTO{
		ScheduleDTO: dto.NewScheduleDTO(s, h.App.Executor.IsRunning(s.ID)),
		Stats:       dto.NewScheduleStatsDTO(stats),
	}))
}

// Update 部分更新计划
// @Summary Update schedule
// @Tags 计划
// @Accept json
// @Produce json
// @Param id path string true "计划 ID"
// @Param params body dto.ScheduleUpdateRequest true "更新字段"
// @Success 200 {object} pkgapp.Res{data=dto.ScheduleDTO} "成功"
// @Router /api/scheduler/schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	params := &dto.ScheduleUpdateRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		h.invalidParams(c, "ScheduleHandler.Update", errs)
		return
	}

	ctx := c.Request.Context()
	cur, err := h.App.ScheduleService.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, "ScheduleHandler.Update", err)
		return
	}
	patch, err := params.ToPatch(cur)
	if err != nil {
		h.fail(c, "ScheduleHandler.Update", err)
		return
	}
	s, err := h.App.ScheduleService.Update(ctx, cur.ID, patch)
	if err != nil {
		h.fail(c, "ScheduleHandler.Update", err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(dto.NewScheduleDTO(s, h.App.Executor.IsRunning(s.ID))))
}

// Delete 删除计划，历史记录保留
// @Summary Delete schedule
// @Tags 计划
// @Param id path string true "计划 ID"
// @Success 200 {object} pkgapp.Res "成功"
// @Router /api/scheduler/schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.App.ScheduleService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "ScheduleHandler.Delete", err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success)
}
