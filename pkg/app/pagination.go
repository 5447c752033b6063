package app

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// LimitConfig bounds the `limit` query parameter
// LimitConfig 限制 limit 查询参数
type LimitConfig struct {
	Default int
	Max     int
}

// GetLimitWithConfig reads `limit` from query or form, clamped to cfg.
// GetLimitWithConfig 获取 limit（使用注入的配置）
func GetLimitWithConfig(c *gin.Context, cfg LimitConfig) int {
	var limit int

	if s, exist := c.GetQuery("limit"); exist {
		limit, _ = strconv.Atoi(s)
	} else if s := c.PostForm("limit"); s != "" {
		limit, _ = strconv.Atoi(s)
	}

	if limit <= 0 {
		return cfg.Default
	}
	if limit > cfg.Max {
		return cfg.Max
	}
	return limit
}
