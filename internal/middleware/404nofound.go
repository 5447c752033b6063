package middleware

import (
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/app"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/code"

	"github.com/gin-gonic/gin"
)

// NoFound 404 handler
// NoFound 404 处理
func NoFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := app.NewResponse(c)
		response.ToResponse(code.ErrorNotFoundAPI)
		c.Abort()
	}
}
