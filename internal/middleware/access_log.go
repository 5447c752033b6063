package middleware

import (
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/pkg/app"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccessLog logs one line per request. Polling endpoints are logged at
// debug level so they do not flood the debug log ring.
func AccessLog(lg *zap.Logger, quietPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		startTime := time.Now()
		c.Next()

		timeCost := time.Since(startTime)

		log := lg.Info
		if _, ok := quiet[c.FullPath()]; ok {
			log = lg.Debug
		}
		log(path,
			zap.String(logger.FieldMethod, c.Request.Method),
			zap.String("url", path+"?"+query),
			zap.Int("status", c.Writer.Status()),
			zap.Int("code", c.GetInt(app.CtxKeyAppCode)),
			zap.Duration("time-cost", timeCost),
			zap.String("ip", app.GetRequestIP(c)),
			zap.String(logger.FieldTraceID, GetTraceIDFromGin(c)),
			zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()),
		)
	}
}
