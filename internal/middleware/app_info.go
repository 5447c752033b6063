package middleware

import (
	"github.com/gin-gonic/gin"
)

// AppInfo stamps every API response with the service name and version so a
// client can tell which build answered.
// AppInfo 在响应头中写入服务名与版本
func AppInfo(name, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-App-Name", name)
		c.Header("X-App-Version", version)
		c.Next()
	}
}
