package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Q-mercy-Q/backups-S3-replication/pkg/code"
	"github.com/Q-mercy-Q/backups-S3-replication/pkg/limiter"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTraceMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(TraceMiddleware(true, "X-Req"))
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetTraceID(c.Request.Context())+"|"+GetTraceIDFromGin(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Req", "abc")
	w := serve(r, req)
	assert.Equal(t, "abc|abc", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get("X-Req"))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get("X-Req"))

	off := gin.New()
	off.Use(TraceMiddleware(false, ""))
	off.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetTraceIDFromGin(c)) })
	w = serve(off, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, w.Body.String())
	assert.Empty(t, w.Header().Get(DefaultTraceIDHeader))
}

func TestSimpleAuthToken(t *testing.T) {
	r := gin.New()
	r.Use(SimpleAuthTokenWithConfig("secret"))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, w.Body.String(), `"code":401`)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer secret")
	assert.Equal(t, "ok", serve(r, req).Body.String())

	assert.Equal(t, "ok", serve(r, httptest.NewRequest(http.MethodGet, "/?authorization=secret", nil)).Body.String())

	open := gin.New()
	open.Use(SimpleAuthTokenWithConfig(""))
	open.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	assert.Equal(t, "ok", serve(open, httptest.NewRequest(http.MethodGet, "/", nil)).Body.String())
}

func TestRateLimiter(t *testing.T) {
	l := limiter.NewMethodLimiter().AddBuckets(limiter.BucketRule{
		Key: "/run", FillInterval: time.Hour, Capacity: 1, Quantum: 1,
	})
	r := gin.New()
	r.Use(RateLimiter(l))
	r.POST("/run", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/free", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	assert.Equal(t, "ok", serve(r, httptest.NewRequest(http.MethodPost, "/run", nil)).Body.String())
	assert.Contains(t, serve(r, httptest.NewRequest(http.MethodPost, "/run", nil)).Body.String(), `"code":429`)
	for i := 0; i < 3; i++ {
		assert.Equal(t, "ok", serve(r, httptest.NewRequest(http.MethodGet, "/free", nil)).Body.String())
	}
}

func TestRecoveryAndNotFound(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryWithLogger(zap.NewNop()), AccessLog(zap.NewNop()))
	r.NoRoute(NoFound())
	r.GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Contains(t, w.Body.String(), `"code":500`)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Contains(t, w.Body.String(), `"code":404`)
}

func TestLangWithTranslator(t *testing.T) {
	defer code.SetGlobalDefaultLang(code.FALLBACK_LNG)

	uni := ut.New(en.New(), en.New(), zh.New())
	r := gin.New()
	r.Use(LangWithTranslator(uni))
	r.GET("/", func(c *gin.Context) {
		trans := c.MustGet("trans").(ut.Translator)
		c.String(http.StatusOK, trans.Locale()+"|"+code.GetGlobalDefaultLang())
	})

	cases := []struct {
		name   string
		target string
		header map[string]string
		want   string
	}{
		{"default", "/", nil, "en|en"},
		{"query", "/?lang=zh-CN", nil, "zh|zh_cn"},
		{"header", "/", map[string]string{"lang": "zh"}, "zh|zh_cn"},
		{"accept-language", "/", map[string]string{"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8"}, "zh|zh_cn"},
		{"unknown", "/?lang=fr", nil, "en|en"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, serve(r, req).Body.String())
		})
	}
}

func TestRecoveryErrorDetails(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryWithLogger(zap.NewNop()))
	r.GET("/err", func(c *gin.Context) { panic(assert.AnError) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/err", nil))
	assert.Contains(t, w.Body.String(), `"code":500`)
	assert.Contains(t, w.Body.String(), assert.AnError.Error())
}
