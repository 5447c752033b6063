package middleware

import (
	"strings"

	"github.com/Q-mercy-Q/backups-S3-replication/pkg/code"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
)

// LangWithTranslator picks the validation translator and response message
// language from ?lang=, the lang header or Accept-Language, in that order.
// "zh-CN", "zh_cn" and "zh" all select Chinese; anything else falls back to English.
// LangWithTranslator 根据请求选择校验翻译器与响应语言
func LangWithTranslator(uni *ut.UniversalTranslator) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := requestLang(c)

		// 翻译器按基础语言注册（en / zh）
		base, _, _ := strings.Cut(lang, "_")
		trans, found := uni.GetTranslator(base)
		if !found {
			trans, _ = uni.GetTranslator(code.FALLBACK_LNG)
		}
		c.Set("trans", trans)

		if base == "zh" {
			lang = "zh_cn"
		}
		_ = code.SetGlobalDefaultLang(lang)

		c.Next()
	}
}

func requestLang(c *gin.Context) string {
	lang, ok := c.GetQuery("lang")
	if !ok || lang == "" {
		lang = c.GetHeader("lang")
	}
	if lang == "" {
		// "zh-CN,zh;q=0.9,en;q=0.8" → "zh-CN"
		lang, _, _ = strings.Cut(c.GetHeader("Accept-Language"), ",")
		lang, _, _ = strings.Cut(lang, ";")
	}
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lang), "-", "_"))
}
