package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// ContextTimeout bounds the request context of API handlers. Runs started by a
// request derive from the executor context, so the timeout never cancels a
// backup, only the store reads and writes made on behalf of the request.
// timeout <= 0 disables it.
// ContextTimeout 为请求上下文设置超时
func ContextTimeout(timeout time.Duration) gin.HandlerFunc {
	if timeout <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
