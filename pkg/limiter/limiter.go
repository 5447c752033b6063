// Package limiter holds token buckets keyed by request path.
// Package limiter 按请求路径维护令牌桶
package limiter

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"
)

// Face is consumed by the RateLimiter middleware.
type Face interface {
	Key(c *gin.Context) string
	GetBucket(key string) (*ratelimit.Bucket, bool)
	AddBuckets(rules ...BucketRule) Face
}

// BucketRule describes one bucket
// BucketRule 令牌桶规则
type BucketRule struct {
	Key          string        // path prefix // 路径前缀
	FillInterval time.Duration // refill interval // 填充间隔
	Capacity     int64         // bucket capacity // 桶容量
	Quantum      int64         // tokens per refill // 每次填充数量
}

// MethodLimiter matches buckets by the longest registered path prefix.
type MethodLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*ratelimit.Bucket
}

func NewMethodLimiter() Face {
	return &MethodLimiter{buckets: make(map[string]*ratelimit.Bucket)}
}

func (l *MethodLimiter) Key(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	best := ""
	for k := range l.buckets {
		if strings.HasPrefix(path, k) && len(k) > len(best) {
			best = k
		}
	}
	return best
}

func (l *MethodLimiter) GetBucket(key string) (*ratelimit.Bucket, bool) {
	if key == "" {
		return nil, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.buckets[key]
	return b, ok
}

func (l *MethodLimiter) AddBuckets(rules ...BucketRule) Face {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range rules {
		if r.Capacity <= 0 || r.FillInterval <= 0 {
			continue
		}
		if _, ok := l.buckets[r.Key]; ok {
			continue
		}
		quantum := r.Quantum
		if quantum <= 0 {
			quantum = 1
		}
		l.buckets[r.Key] = ratelimit.NewBucketWithQuantum(r.FillInterval, r.Capacity, quantum)
	}
	return l
}
