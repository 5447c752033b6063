package api_router

import (
	"github.com/Q-mercy-Q/backups-S3-replication/internal/app"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/dto"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/service"
	pkgapp "github.com/Q-mercy-Q/backups-S3-replication/pkg/app"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/code"

	"github.com/gin-gonic/gin"
)

// RunHandler 立即执行与停止 API 路由处理器
type RunHandler struct {
	*Handler
}

// NewRunHandler 创建 RunHandler 实例
func NewRunHandler(a *app.App) *RunHandler {
	return &RunHandler{Handler: NewHandler(a)}
}

// RunSchedule 立即执行计划
// @Summary Run schedule now
// @Description Starts the schedule in the background; with wait=true the request blocks until the run ends.
// @Tags 执行
// @Produce json
// @Param id path string true "计划 ID"
// @Param params body dto.ScheduleRunRequest false "执行参数"
// @Success 200 {object} pkgapp.Res{data=dto.RunStartedDTO} "成功"
// @Router /api/scheduler/run/{id} [post]
func (h *RunHandler) RunSchedule(c *gin.Context) {
	params := &dto.ScheduleRunRequest{}
	if valid, errs := bindOptional(c, params); !valid {
		h.invalidParams(c, "RunHandler.RunSchedule", errs)
		return
	}

	s, err := h.App.ScheduleService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "RunHandler.RunSchedule", err)
		return
	}
	h.start(c, "RunHandler.RunSchedule", service.ScheduleTarget(s), params.Wait)
}

// RunAdHoc 不关联计划的手动上传
// @Summary Ad hoc upload
// @Tags 执行
// @Accept json
// @Produce json
// @Param params body dto.AdHocRunRequest true "过滤条件"
// @Success 200 {object} pkgapp.Res{data=dto.RunStartedDTO} "成功"
// @Router /api/scheduler/run [post]
func (h *RunHandler) RunAdHoc(c *gin.Context) {
	params := &dto.AdHocRunRequest{}
	if valid, errs := pkgapp.BindAndValid(c, params); !valid {
		h.invalidParams(c, "RunHandler.RunAdHoc", errs)
		return
	}
	filter, err := domain.NewFilter(params.Categories, params.Extensions)
	if err != nil {
		h.fail(c, "RunHandler.RunAdHoc", err)
		return
	}
	h.start(c, "RunHandler.RunAdHoc", service.AdHocTarget(filter, params.SourceDirectory), params.Wait)
}

func (h *RunHandler) start(c *gin.Context, method string, target service.RunTarget, wait bool) {
	var (
		outcome service.RunOutcome
		err     error
	)
	if wait {
		outcome, err = h.App.Executor.Run(c.Request.Context(), target)
	} else {
		outcome, err = h.App.StartRun(c.Request.Context(), target)
	}
	if err != nil {
		h.fail(c, method, err)
		return
	}

	data := dto.RunStartedDTO{Skipped: outcome.Skipped, Record: dto.NewRunRecordDTO(outcome.Record)}
	response := pkgapp.NewResponse(c)
	if outcome.Skipped {
		response.ToResponse(code.SuccessRunSkipped.WithData(data))
		return
	}
	response.ToResponse(code.SuccessRunStarted.WithData(data))
}

// Stop 停止正在执行的备份，id 为计划 ID 或 adhoc
// @Summary Stop run
// @Tags 执行
// @Param id path string true "计划 ID 或 adhoc"
// @Param params body dto.StopRequest false "停止模式"
// @Success 200 {object} pkgapp.Res "成功"
// @Router /api/scheduler/run/{id}/stop [post]
func (h *RunHandler) Stop(c *gin.Context) {
	params := &dto.StopRequest{}
	if valid, errs := bindOptional(c, params); !valid {
		h.invalidParams(c, "RunHandler.Stop", errs)
		return
	}
	mode, err := service.ParseStopMode(params.Mode)
	if err != nil {
		h.fail(c, "RunHandler.Stop", err)
		return
	}

	id := c.Param("id")
	if id != service.ScheduleAdHoc {
		if _, err := h.App.ScheduleService.Get(c.Request.Context(), id); err != nil {
			h.fail(c, "RunHandler.Stop", err)
			return
		}
	}
	if err := h.App.Executor.Stop(id, mode); err != nil {
		h.fail(c, "RunHandler.Stop", err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.SuccessRunStopped)
}

// bindOptional binds a request whose body may be empty; query parameters
// are still read through form binding.
func bindOptional(c *gin.Context, v interface{}) (bool, pkgapp.ValidErrors) {
	if c.Request.ContentLength == 0 {
		c.Request.Header.Del("Content-Type")
	}
	return pkgapp.BindAndValid(c, v)
}
