// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/dao"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/domain"
	"github.com/Q-mercy-Q/backups-S3-replication/internal/service"
	pkgapp "github.com/Q-mercy-Q/backups-S3-replication/pkg/app"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/logger"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/metrics"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/scanner"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/storage"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/workerpool"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/writequeue"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

// App 应用容器，封装所有依赖和服务
type App struct {
	// 基础设施（注入的依赖）
	config *AppConfig
	logger *zap.Logger
	ring   *logger.Ring
	DB     *gorm.DB
	Dao    *dao.Dao

	// 并发控制组件
	workerPool    *workerpool.Pool
	writeQueueMgr *writequeue.Manager

	// Repository 层
	ScheduleRepo domain.ScheduleRepository
	HistoryRepo  domain.HistoryRepository

	// 采集与上传
	Scanner  *scanner.Scanner
	Uploader storage.Uploader

	// Service 层
	ScheduleService service.ScheduleService
	HistoryService  service.HistoryService
	StatsService    service.StatsService
	DebugLogService service.DebugLogService
	Executor        *service.RunExecutor

	// 关闭控制
	shutdownCh chan struct{}
}

// Option 应用容器可选配置
type Option func(*App)

// WithUploader injects the upload destination instead of building one from config.
func WithUploader(u storage.Uploader) Option {
	return func(a *App) { a.Uploader = u }
}

// WithDebugRing uses ring as the debug log buffer. The ring should already be
// teed into logger.
func WithDebugRing(ring *logger.Ring) Option {
	return func(a *App) { a.ring = ring }
}

// NewApp 创建应用容器实例
// 初始化所有依赖并进行依赖注入
func NewApp(ctx context.Context, cfg *AppConfig, lg *zap.Logger, db *gorm.DB, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if lg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	a := &App{
		config:     cfg,
		logger:     lg,
		DB:         db,
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.ring == nil {
		// 未注入时只保留本容器自身产生的日志
		a.ring = logger.NewRing(cfg.Scheduler.DebugLogSize, zapcore.DebugLevel)
		a.logger = zap.New(zapcore.NewTee(lg.Core(), a.ring))
	}

	if a.Uploader == nil {
		u, err := storage.NewClient(ctx, &cfg.Storage, a.logger)
		if err != nil {
			return nil, fmt.Errorf("storage client: %w", err)
		}
		a.Uploader = u
	}

	// 初始化 Worker Pool
	wpConfig := cfg.GetWorkerPoolConfig()
	a.workerPool = workerpool.New(&wpConfig, a.logger)

	// 初始化 Write Queue Manager
	wqConfig := cfg.GetWriteQueueConfig()
	a.writeQueueMgr = writequeue.New(&wqConfig, a.logger)

	// 初始化 DAO（使用依赖注入）
	a.Dao = dao.New(db, context.Background(),
		dao.WithLogger(a.logger),
		dao.WithWriteQueueManager(a.writeQueueMgr),
	)

	// 初始化 Repository 层
	a.ScheduleRepo = dao.NewScheduleRepository(a.Dao)
	a.HistoryRepo = dao.NewHistoryRepository(a.Dao, cfg.Scheduler.HistoryLimit)

	a.Scanner = scanner.New(cfg.Backup.ExtTagMap)

	// 初始化 Service 层（依赖注入）
	a.ScheduleService = service.NewScheduleService(a.ScheduleRepo, a.logger, nil)
	a.HistoryService = service.NewHistoryService(a.HistoryRepo, a.logger, nil)
	a.StatsService = service.NewStatsService(a.ScheduleRepo, a.HistoryRepo)
	a.DebugLogService = service.NewDebugLogService(a.ring)
	a.Executor = service.NewRunExecutor(
		cfg.GetExecutorConfig(),
		a.Scanner,
		a.Uploader,
		a.HistoryRepo,
		a.ScheduleService,
		a.logger,
		nil,
	)

	a.registerGauges()

	a.logger.Info("App container initialized successfully",
		zap.String("storage", a.Uploader.Name()),
		zap.Int("workerPoolMaxWorkers", wpConfig.MaxWorkers),
		zap.Int("writeQueueCapacity", wqConfig.QueueCapacity))

	return a, nil
}

// registerGauges exposes pool and queue depth. Re-registering replaces the
// gauges of a previous container after a config reload.
func (a *App) registerGauges() {
	metrics.SetGaugeFunc("worker_pool_active", "Worker pool tasks currently executing.", func() float64 {
		return float64(a.workerPool.GetMetrics().ActiveCount)
	})
	metrics.SetGaugeFunc("worker_pool_queued", "Worker pool tasks waiting for a worker.", func() float64 {
		return float64(a.workerPool.GetMetrics().QueuedCount)
	})
	metrics.SetGaugeFunc("write_queue_active_queues", "Write queues with a live worker.", func() float64 {
		return float64(a.writeQueueMgr.GetMetrics().ActiveQueues)
	})
	metrics.SetGaugeFunc("schedules_running", "Backup runs currently holding a schedule lock.", func() float64 {
		return float64(len(a.Executor.Running()))
	})
}

// Close 释放应用容器持有的资源
func (a *App) Close() error {
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql.DB: %w", err)
		}
		if err := sqlDB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		a.logger.Info("Database connection closed")
	}
	return nil
}

// Config 获取应用配置
func (a *App) Config() *AppConfig {
	return a.config
}

// Logger 获取日志器
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// DebugRing 获取内存调试日志
func (a *App) DebugRing() *logger.Ring {
	return a.ring
}

// StartRun starts target on the worker pool. The executor releases the
// schedule lock itself when the pool rejects the run.
// StartRun 在 Worker Pool 中启动一次备份
func (a *App) StartRun(ctx context.Context, target service.RunTarget) (service.RunOutcome, error) {
	if a.IsShuttingDown() {
		return service.RunOutcome{}, workerpool.ErrWorkerPoolClosed
	}
	return a.Executor.Start(ctx, target, a.workerPool)
}

// Version 获取版本信息
func (a *App) Version() pkgapp.VersionInfo {
	return pkgapp.VersionInfo{
		Version:   Version,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}
}

// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

// Shutdown 优雅关闭应用容器
// 按顺序关闭：Executor -> Worker Pool -> Write Queue Manager -> Database
// ctx 用于控制关闭超时，如果为 nil 则使用默认 30 秒超时
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("App container shutting down...")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
	}

	// 标记关闭
	select {
	case <-a.shutdownCh:
		return nil
	default:
		close(a.shutdownCh)
	}

	var errs []error

	// 1. 中断执行中的备份，记录写为 failed
	if a.Executor != nil {
		a.logger.Info("Stopping running backups...", zap.Int("running", len(a.Executor.Running())))
		if err := a.Executor.Shutdown(ctx); err != nil {
			a.logger.Warn("Executor shutdown error", zap.Error(err))
			errs = append(errs, fmt.Errorf("executor shutdown: %w", err))
		}
	}

	// 2. 关闭 Worker Pool（停止接受新任务，等待现有任务完成）
	if a.workerPool != nil {
		a.logger.Info("Shutting down worker pool...")
		if err := a.workerPool.Shutdown(ctx); err != nil {
			a.logger.Warn("Worker pool shutdown error", zap.Error(err))
			errs = append(errs, fmt.Errorf("worker pool shutdown: %w", err))
		}
	}

	// 3. 关闭 Write Queue Manager（排空所有队列）
	if a.writeQueueMgr != nil {
		a.logger.Info("Shutting down write queue manager...")
		if err := a.writeQueueMgr.Shutdown(ctx); err != nil {
			a.logger.Warn("write queue manager shutdown error", zap.Error(err))
			errs = append(errs, fmt.Errorf("write queue manager shutdown: %w", err))
		}
	}

	// 4. 关闭数据库连接
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		a.logger.Warn("App container shutdown completed with errors",
			zap.Int("errorCount", len(errs)))
		return fmt.Errorf("shutdown completed with %d errors: %v", len(errs), errs)
	}

	a.logger.Info("App container shutdown completed successfully")
	return nil
}

// IsShuttingDown 检查应用是否正在关闭
func (a *App) IsShuttingDown() bool {
	select {
	case <-a.shutdownCh:
		return true
	default:
		return false
	}
}
