// Package api_router 提供 HTTP API 路由处理器
package api_router

import (
	"context"
	"errors"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/app"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/middleware"
	pkgapp "github.com/Q-mercy-Q/backups-S3-replication/pkg/app"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/code"
	apperrors "github.com/Q-mercy-Q/backups-S3-replication/pkg/errors"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/logger"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/workerpool"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 基础 Handler 结构体，封装 App Container
// 所有 API Handler 都应该嵌入此结构体以获得依赖注入能力
type Handler struct {
	App *app.App
}

// NewHandler 创建基础 Handler 实例
func NewHandler(a *app.App) *Handler {
	return &Handler{App: a}
}

// logError 记录错误日志，包含 Trace ID
func (h *Handler) logError(ctx context.Context, method string, err error) {
	h.App.Logger().Error(method,
		zap.Error(err),
		zap.String(logger.FieldTraceID, middleware.GetTraceID(ctx)),
	)
}

// invalidParams 输出参数校验错误
func (h *Handler) invalidParams(c *gin.Context, method string, errs pkgapp.ValidErrors) {
	h.App.Logger().Warn(method+".BindAndValid err", zap.Error(errs))
	pkgapp.NewResponse(c).ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
}

// fail maps domain and infrastructure errors onto response codes.
// fail 将领域错误映射为响应码
func (h *Handler) fail(c *gin.Context, method string, err error) {
	response := pkgapp.NewResponse(c)

	var verr *domain.ValidationError
	var collab *domain.CollaboratorError
	switch {
	case errors.As(err, &verr):
		response.ToResponse(code.ErrorInvalidParams.WithDetails(verr.Error()))
	case domain.IsTriggerError(err):
		response.ToResponse(code.ErrorScheduleInvalid.WithDetails(err.Error()))
	case errors.Is(err, domain.ErrScheduleNotFound):
		response.ToResponse(code.ErrorScheduleNotFound)
	case errors.Is(err, domain.ErrRunNotFound):
		response.ToResponse(code.ErrorRunNotFound)
	case errors.Is(err, workerpool.ErrWorkerPoolFull):
		h.logError(c.Request.Context(), method, err)
		response.ToResponse(code.ErrorWorkerPoolFull)
	case errors.Is(err, workerpool.ErrWorkerPoolClosed):
		response.ToResponse(code.ErrorShuttingDown)
	case errors.As(err, &collab) && collab.Op == "storage":
		h.logError(c.Request.Context(), method, err)
		response.ToResponse(code.ErrorStorageNotReady.WithDetails(collab.Err.Error()))
	default:
		h.logError(c.Request.Context(), method, err)
		apperrors.ErrorResponse(c, err)
	}
}
