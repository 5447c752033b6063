package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/Q-mercy-Q/backups-S3-replication/pkg/app"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/code"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryWithLogger turns a handler panic into an internal error response.
// Only error panics expose their message in details; other values are logged
// and answered with a generic internal error.
// RecoveryWithLogger 捕获 panic 并返回统一错误
func RecoveryWithLogger(lg *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}

			fields := []zap.Field{
				zap.String(logger.FieldMethod, c.Request.Method),
				zap.String("route", c.FullPath()),
				zap.String("query", c.Request.URL.RawQuery),
				zap.String("ip", app.GetRequestIP(c)),
				zap.String(logger.FieldTraceID, GetTraceIDFromGin(c)),
				zap.ByteString("stack", debug.Stack()),
			}

			res := code.ErrorServerInternal
			if err, ok := v.(error); ok {
				fields = append(fields, zap.Error(err))
				res = res.WithDetails(err.Error())
			} else {
				fields = append(fields, zap.String("panic", fmt.Sprint(v)))
			}
			lg.Error("handler panic recovered", fields...)

			if !c.Writer.Written() {
				app.NewResponse(c).ToResponse(res)
			}
			c.Abort()
		}()

		c.Next()
	}
}
