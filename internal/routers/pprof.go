package routers

import (
	"net/http/pprof"

	"github.com/Q-mercy-Q/backups-S3-replication/internal/middleware"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/metrics"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// runtime profiles served under /debug/pprof/<name>
var pprofProfiles = []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"}

// NewPrivateRouterWithLogger builds the router of the private listener:
// prometheus metrics always, pprof in debug run mode only.
// NewPrivateRouterWithLogger 创建私有路由（metrics / pprof）
func NewPrivateRouterWithLogger(runMode string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RecoveryWithLogger(logger))

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	if runMode != "debug" {
		return r
	}

	p := r.Group("/debug/pprof")
	p.GET("/", gin.WrapF(pprof.Index))
	p.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	p.GET("/profile", gin.WrapF(pprof.Profile))
	p.Match([]string{"GET", "POST"}, "/symbol", gin.WrapF(pprof.Symbol))
	p.GET("/trace", gin.WrapF(pprof.Trace))
	for _, name := range pprofProfiles {
		p.GET("/"+name, gin.WrapH(pprof.Handler(name)))
	}
	return r
}
