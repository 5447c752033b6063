package api_router

import (
	"context"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/app"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/dto"
	pkgapp "github.com/Q-mercy-Q/backups-S3-replication/pkg/app"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/code"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/disk"
	"go.uber.org/zap"
)

const storagePingTimeout = 5 * time.Second

// HealthHandler 健康检查处理器
type HealthHandler struct {
	*Handler
}

// NewHealthHandler 创建健康检查处理器实例
func NewHealthHandler(a *app.App) *HealthHandler {
	return &HealthHandler{Handler: NewHandler(a)}
}

// Check 健康检查接口
// @Summary 健康检查
// @Description 检查数据库连接与 NFS 挂载；storage=true 时同时检查上传目标
// @Tags 系统
// @Produce json
// @Param storage query bool false "检查上传目标"
// @Success 200 {object} pkgapp.Res{data=dto.HealthDTO}
// @Router /api/health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()
	v := h.App.Version()
	res := dto.HealthDTO{
		Status:   "ok",
		Database: "connected",
		NFS:      "mounted",
		Storage:  "unchecked",
		Running:  len(h.App.Executor.Running()),
		Version:  dto.VersionDTO{Version: v.Version, GitTag: v.GitTag, BuildTime: v.BuildTime},
	}

	if sqlDB, err := h.App.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		res.Status = "degraded"
		res.Database = "error"
	}

	nfsPath := h.App.Config().Backup.NFSPath
	if usage, err := disk.UsageWithContext(ctx, nfsPath); err != nil {
		h.App.Logger().Warn("HealthHandler.Check disk usage", zap.String("path", nfsPath), zap.Error(err))
		res.Status = "degraded"
		res.NFS = "unavailable"
	} else {
		res.Disk = &dto.DiskUsageDTO{
			Path:        nfsPath,
			Total:       usage.Total,
			Used:        usage.Used,
			Free:        usage.Free,
			UsedPercent: usage.UsedPercent,
		}
	}

	if c.Query("storage") == "true" {
		pctx, cancel := context.WithTimeout(ctx, storagePingTimeout)
		defer cancel()
		if err := h.App.Uploader.Ping(pctx); err != nil {
			h.App.Logger().Warn("HealthHandler.Check storage ping", zap.Error(err))
			res.Status = "degraded"
			res.Storage = "error"
		} else {
			res.Storage = "ok"
		}
	}

	if res.Status != "ok" {
		pkgapp.NewResponse(c).ToResponse(code.Failed.WithData(res))
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(res))
}
