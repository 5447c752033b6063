package routers

import (
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/app"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/middleware"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/routers/api_router"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/limiter"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
)

// Polling endpoints logged at debug level by the access log.
var quietPaths = []string{
	"/api/health",
	"/api/scheduler/stats",
	"/api/scheduler/debug_logs",
}

// newRunLimiter bounds how often runs can be started by hand.
func newRunLimiter(perSecond int64) limiter.Face {
	if perSecond <= 0 {
		return limiter.NewMethodLimiter()
	}
	return limiter.NewMethodLimiter().AddBuckets(
		limiter.BucketRule{
			Key:          "/api/scheduler/run",
			FillInterval: time.Second,
			Capacity:     perSecond,
			Quantum:      perSecond,
		},
	)
}

// NewRouter 创建 HTTP API 路由
func NewRouter(appContainer *app.App, uni *ut.UniversalTranslator) *gin.Engine {
	cfg := appContainer.Config()
	lg := appContainer.Logger()

	r := gin.New()
	r.Use(middleware.TraceMiddleware(cfg.Tracer.Enabled, cfg.Tracer.Header))
	r.Use(middleware.AccessLog(lg, quietPaths...))
	r.Use(middleware.RecoveryWithLogger(lg))

	api := r.Group("/api")
	{
		api.Use(middleware.AppInfo(app.Name, appContainer.Version().Version))
		api.Use(middleware.ContextTimeout(time.Duration(cfg.App.DefaultContextTimeout) * time.Second))
		if uni != nil {
			api.Use(middleware.LangWithTranslator(uni))
		}

		versionHandler := api_router.NewVersionHandler(appContainer)
		healthHandler := api_router.NewHealthHandler(appContainer)
		api.GET("/version", versionHandler.ServerVersion)
		api.GET("/health", healthHandler.Check)

		scheduleHandler := api_router.NewScheduleHandler(appContainer)
		runHandler := api_router.NewRunHandler(appContainer)
		historyHandler := api_router.NewHistoryHandler(appContainer)
		statsHandler := api_router.NewStatsHandler(appContainer)
		debugLogHandler := api_router.NewDebugLogHandler(appContainer)

		s := api.Group("/scheduler")
		s.Use(middleware.SimpleAuthTokenWithConfig(cfg.App.AuthToken))
		s.Use(middleware.RateLimiter(newRunLimiter(cfg.App.RunRateLimit)))

		s.GET("/stats", statsHandler.Global)
		s.GET("/stats/:id", statsHandler.Schedule)

		s.GET("/schedules", scheduleHandler.List)
		s.POST("/schedules", scheduleHandler.Create)
		s.GET("/schedules/:id", scheduleHandler.Get)
		s.PUT("/schedules/:id", scheduleHandler.Update)
		s.DELETE("/schedules/:id", scheduleHandler.Delete)

		s.POST("/run", runHandler.RunAdHoc)
		s.POST("/run/:id", runHandler.RunSchedule)
		s.POST("/run/:id/stop", runHandler.Stop)

		s.GET("/history", historyHandler.List)
		s.DELETE("/history", historyHandler.Clear)

		s.GET("/debug_logs", debugLogHandler.List)
		s.DELETE("/debug_logs", debugLogHandler.Clear)
	}

	r.NoRoute(middleware.NoFound())

	return r
}
